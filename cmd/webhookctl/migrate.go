package main

import (
	"context"
	"fmt"

	"github.com/boddenberg/atendimento-webhook-go/internal/config"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/postgres"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the engagement and visit tables in DATABASE_URL",
		Long: `Applies the embedded schema. Statements use IF NOT EXISTS, so running
it against an existing deployment is a no-op.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if cfg.StoreBackend != config.BackendPostgres {
				return fmt.Errorf("migrate needs STORE_BACKEND=%s, got %q", config.BackendPostgres, cfg.StoreBackend)
			}

			ctx := context.Background()
			db, err := postgres.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(ctx); err != nil {
				return err
			}
			logger.Info("schema applied", zap.String("backend", cfg.StoreBackend))
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}
