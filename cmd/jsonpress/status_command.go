package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"jsonpress/internal/config"
	"jsonpress/internal/jobs"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue counts and store health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *jobs.Store) error {
				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}

				rows := [][]string{
					{"created", strconv.Itoa(health.Created)},
					{"running", strconv.Itoa(health.Running)},
					{"succeeded", strconv.Itoa(health.Succeeded)},
					{"failed", strconv.Itoa(health.Failed)},
					{"total", strconv.Itoa(health.Total)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Status", "Jobs"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				fmt.Fprintf(cmd.OutOrStdout(), "Database: %s\n", cfg.DatabasePath())
				return nil
			})
		},
	}
}
