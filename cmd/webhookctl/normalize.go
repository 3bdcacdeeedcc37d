package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/boddenberg/atendimento-webhook-go/internal/app"
	"github.com/boddenberg/atendimento-webhook-go/internal/config"
	"github.com/boddenberg/atendimento-webhook-go/internal/domain"
	"github.com/boddenberg/atendimento-webhook-go/internal/normalize"

	"github.com/spf13/cobra"
)

func normalizeCmd() *cobra.Command {
	var (
		source string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "normalize [file]",
		Short: "Print the canonical record a payload would be stored as",
		Long: `Runs a webhook body through the same normalizer the server uses and
prints the resulting row as JSON. Reads stdin when no file is given.
Nothing is stored.

Examples:
  webhookctl normalize payload.json
  cat visit.json | webhookctl normalize --source visit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			cfg := config.Load()
			if cmd.Flags().Changed("strict") {
				cfg.StrictValidation = strict
			}
			engagements, visits, err := app.Assemblers(cfg)
			if err != nil {
				return err
			}

			p, err := normalize.ParsePayload(body)
			if err != nil {
				return err
			}

			var rec any
			switch source {
			case domain.SourceEngagement:
				rec, err = engagements.Assemble(p)
				if err != nil {
					return err
				}
			case domain.SourceVisit:
				rec = visits.Assemble(p)
			default:
				return fmt.Errorf("unknown source %q (want %s or %s)", source, domain.SourceEngagement, domain.SourceVisit)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", domain.SourceEngagement, "payload source (engagement, visit)")
	cmd.Flags().BoolVar(&strict, "strict", true, "reject engagements without name and phone")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
