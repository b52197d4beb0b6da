package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/reviewer-backend/internal/app"
	"github.com/yungbote/reviewer-backend/internal/platform/auth"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

var (
	tokenSubject string
	tokenScopes  string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token signed with JWT_SECRET_KEY",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		log := logger.NewNop()
		cfg, err := app.LoadConfig(log)
		if err != nil {
			return err
		}
		if cfg.JWTSecretKey == "" {
			return errors.New("JWT_SECRET_KEY is not set")
		}
		authn, err := auth.NewJWTAuthenticator(log, cfg.JWTSecretKey)
		if err != nil {
			return err
		}
		var scopes []string
		for _, s := range strings.Split(tokenScopes, ",") {
			if s = strings.TrimSpace(s); s != "" {
				scopes = append(scopes, s)
			}
		}
		tok, err := authn.Issue(tokenSubject, scopes, tokenTTL)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "sub", "", "token subject")
	tokenCmd.Flags().StringVar(&tokenScopes, "scopes", auth.ScopeAdmin, "comma-separated scopes")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("sub")
	rootCmd.AddCommand(tokenCmd)
}
