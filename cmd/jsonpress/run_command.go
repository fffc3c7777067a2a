package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jsonpress/internal/config"
	"jsonpress/internal/jobs"
	"jsonpress/internal/logging"
	"jsonpress/internal/pipeline"
)

// newRunCommand drains the queue in the foreground, useful on hosts that do
// not run the daemon.
func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process queued jobs in the foreground until the queue is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *jobs.Store) error {
				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return err
				}
				manager := pipeline.NewManager(cfg, store, logger)

				processed := 0
				for {
					job, err := store.NextForStatuses(cmd.Context(), jobs.StatusCreated)
					if err != nil {
						return err
					}
					if job == nil {
						break
					}
					if err := manager.ProcessJob(cmd.Context(), job); err != nil {
						return err
					}
					processed++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Processed %d job(s)\n", processed)
				return nil
			})
		},
	}
}
