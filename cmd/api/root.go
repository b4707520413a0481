package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pkordes/placekeeper/internal/config"
	"github.com/pkordes/placekeeper/internal/storage"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "placekeeper",
		Short: "Onboarding progress service for Placekeeper",
		Long: `placekeeper serves the onboarding progress API and manages its database.

Configuration is read from the environment (and a .env file when present).
DATABASE_URL selects the store: postgres://… for Postgres, sqlite:<path>
for an embedded SQLite file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newUserCmd(),
		newTokenCmd(),
	)
	return root
}

// openStore loads the configuration and opens the configured store.
// The caller closes the store.
func openStore(ctx context.Context) (config.Config, *storage.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	store, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("open store: %w", err)
	}
	return cfg, store, nil
}
