package main

import (
	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/config"
	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)
			if err := database.Migrate(cfg.DatabaseURL); err != nil {
				return err
			}
			logger.Info("migrations applied")
			return nil
		},
	}
}
