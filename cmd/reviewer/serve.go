package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/reviewer-backend/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(a *app.App) error {
			return a.Serve(cmd.Context())
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
