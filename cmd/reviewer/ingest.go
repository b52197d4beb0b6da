package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/reviewer-backend/internal/app"
	"github.com/yungbote/reviewer-backend/internal/modules/reviewer/pipeline"
)

var ingestNoAI bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <pdf>",
	Short: "Extract, parse and store a review PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			res, err := a.Services.Pipeline.Ingest(cmd.Context(), pipeline.IngestRequest{
				PDFPath:  args[0],
				ExamType: examType,
				UseAI:    !ingestNoAI,
			})
			if err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}
			out := cmd.OutOrStdout()
			okColor.Fprintln(out, res.Message)
			dimColor.Fprintf(out, "exam=%s mode=%s index_rebuilt=%t\n", res.ExamType, res.Mode, res.IndexRebuilt)
			return nil
		})
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestNoAI, "no-ai", false, "skip the AI-assisted parsing step")
	rootCmd.AddCommand(ingestCmd)
}
