package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pkordes/placekeeper/internal/auth"
	"github.com/pkordes/placekeeper/internal/config"
	"github.com/pkordes/placekeeper/internal/domain"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Work with session tokens",
	}

	var (
		userID string
		role   string
		ttl    time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Print a signed session token for local development",
		Long: `Print a session token signed with JWT_SECRET.

Send it as "Authorization: Bearer <token>" or in the session cookie.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.RequireJWT(); err != nil {
				return err
			}

			id, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("--user: %w", err)
			}
			r, err := domain.ParseRole(role)
			if err != nil {
				return fmt.Errorf("--role: %w", err)
			}

			p := auth.NewJWTProvider([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.SessionCookie)
			tok, err := p.Issue(domain.Identity{UserID: id, Role: r}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	issue.Flags().StringVar(&userID, "user", "", "user id (required)")
	issue.Flags().StringVar(&role, "role", "member", "member or admin")
	issue.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = issue.MarkFlagRequired("user")

	cmd.AddCommand(issue)
	return cmd
}
