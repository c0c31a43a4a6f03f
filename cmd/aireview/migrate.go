package main

import (
	"github.com/spf13/cobra"

	"github.com/drewdunne/aireview/internal/logging"
	"github.com/drewdunne/aireview/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger, err := logging.New(cfg.Logging, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer logger.Close()

		db, err := store.Open(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := store.Migrate(db); err != nil {
			return err
		}
		logger.Info("migrations applied", "driver", cfg.Database.Driver)
		return nil
	},
}
