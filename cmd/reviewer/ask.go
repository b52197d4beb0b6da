package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/reviewer-backend/internal/app"
	"github.com/yungbote/reviewer-backend/internal/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the ingested material",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		return withApp(cmd, func(a *app.App) error {
			ans, err := a.Services.Pipeline.Query(cmd.Context(), question, examType)
			if err != nil {
				return fmt.Errorf("ask failed: %w", err)
			}
			out := cmd.OutOrStdout()
			if ans.Source == domain.SourceGrounded {
				okColor.Fprintf(out, "[%s, %d passages]\n", ans.Source, len(ans.Context))
			} else {
				warnColor.Fprintf(out, "[%s]\n", ans.Source)
			}
			fmt.Fprintln(out, ans.Text)
			for _, c := range ans.Context {
				dimColor.Fprintf(out, "  - %s\n", c.ID)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
