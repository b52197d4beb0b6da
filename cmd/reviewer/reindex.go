package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/reviewer-backend/internal/app"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the vector index from the stored knowledge chunks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(a *app.App) error {
			n, err := a.Services.Pipeline.Reindex(cmd.Context(), examType)
			if err != nil {
				return fmt.Errorf("reindex failed: %w", err)
			}
			if n == 0 {
				warnColor.Fprintln(cmd.OutOrStdout(), "no knowledge chunks to index")
				return nil
			}
			okColor.Fprintf(cmd.OutOrStdout(), "indexed %d knowledge chunks\n", n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
