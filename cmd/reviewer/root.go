package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yungbote/reviewer-backend/internal/app"
)

var examType string

var rootCmd = &cobra.Command{
	Use:   "reviewer",
	Short: "Exam reviewer backend",
	Long: `Ingests exam review PDFs into per-exam chunk stores and answers
questions grounded in the ingested material.`,
	SilenceUsage: true,
}

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	dimColor  = color.New(color.Faint)
)

func init() {
	rootCmd.PersistentFlags().StringVar(&examType, "exam", "", "exam type (defaults to DEFAULT_EXAM_TYPE)")
}

// withApp builds the application for one command and always tears it down.
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	a, err := app.New(cmd.Context())
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()
	return fn(a)
}
