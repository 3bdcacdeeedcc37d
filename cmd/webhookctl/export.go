package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/boddenberg/atendimento-webhook-go/internal/app"
	"github.com/boddenberg/atendimento-webhook-go/internal/infra/observability"
	"github.com/boddenberg/atendimento-webhook-go/internal/service"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:       "export (engagements|visits)",
		Short:     "Export stored rows as CSV",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"engagements", "visits"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := context.Background()
			store, err := app.OpenStore(ctx, cfg, observability.NewMetrics(), logger)
			if err != nil {
				return err
			}
			defer store.Close()
			dash := service.NewDashboard(store, nil, logger)

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			switch args[0] {
			case "engagements":
				rows, err := dash.AllEngagements(ctx)
				if err != nil {
					return err
				}
				return service.WriteEngagementsCSV(w, rows)
			case "visits":
				rows, err := dash.AllVisits(ctx)
				if err != nil {
					return err
				}
				return service.WriteVisitsCSV(w, rows)
			}
			return fmt.Errorf("unknown table %q (want engagements or visits)", args[0])
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
