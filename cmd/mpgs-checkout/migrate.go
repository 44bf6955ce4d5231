package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/config"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/log"
	"github.com/andrey-berenda/mpgs-checkout/internal/pkg/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the orders schema in Postgres",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	if cfg.Database.URL == "" {
		return errors.New("database.url is required")
	}

	logger := log.NewLogger(cfg.Log.Path)
	defer func() { _ = logger.Sync() }()

	store, err := storage.New(cmd.Context(), cfg.Database.URL, logger)
	if err != nil {
		return fmt.Errorf("storage.New: %w", err)
	}
	defer store.Close()

	if err = store.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("store.Migrate: %w", err)
	}
	return nil
}
