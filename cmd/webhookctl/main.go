// Command webhookctl is the operator CLI: it normalizes payload files
// offline, exports stored rows as CSV and applies the PostgreSQL schema.
package main

import (
	"fmt"
	"os"

	"github.com/boddenberg/atendimento-webhook-go/internal/config"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/observability"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "webhookctl",
		Short:         "Operate the engagement and visit webhook service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = config.LoadDotEnv(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(normalizeCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(migrateCmd())
	return root
}

// loadConfig reads and validates the environment for commands that talk
// to the store.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.LogLevel, zap.String("service", "webhookctl"))
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
