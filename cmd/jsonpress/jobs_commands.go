package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jsonpress/internal/config"
	"jsonpress/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage the job queue",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))
	jobsCmd.AddCommand(newJobsRemoveCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				var statuses []jobs.Status
				if statusFlag != "" {
					status, err := jobs.ParseStatus(statusFlag)
					if err != nil {
						return err
					}
					statuses = append(statuses, status)
				}

				list, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
					return nil
				}

				rows := make([][]string, 0, len(list))
				for _, rec := range list {
					rows = append(rows, []string{
						rec.ReferenceID,
						string(rec.Status),
						rec.OwnerEmail,
						rec.FileName,
						formatTimestamp(rec.UpdatedAt),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Reference", "Status", "Owner", "File", "Updated"},
					rows,
					nil,
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&statusFlag, "status", "s", "", "Filter by status (created, running, succeeded, failed)")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <reference-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				rec, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Reference:  %s\n", rec.ReferenceID)
				fmt.Fprintf(out, "Status:     %s\n", rec.Status)
				fmt.Fprintf(out, "Owner:      %s\n", rec.OwnerEmail)
				fmt.Fprintf(out, "File:       %s\n", rec.FileName)
				fmt.Fprintf(out, "Input:      %s\n", rec.InputLocation)
				fmt.Fprintf(out, "Format:     %s\n", rec.OutputFormat)
				if rec.Stage != "" {
					fmt.Fprintf(out, "Stage:      %s\n", rec.Stage)
				}
				if rec.OutputLocation != "" {
					fmt.Fprintf(out, "Output:     %s\n", rec.OutputLocation)
				}
				if rec.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:      %s\n", rec.ErrorMessage)
				}
				fmt.Fprintf(out, "Created:    %s\n", formatTimestamp(rec.CreatedAt))
				fmt.Fprintf(out, "Updated:    %s\n", formatTimestamp(rec.UpdatedAt))
				if rec.StartedAt != nil {
					fmt.Fprintf(out, "Started:    %s\n", formatTimestamp(*rec.StartedAt))
				}
				if rec.FinishedAt != nil {
					fmt.Fprintf(out, "Finished:   %s\n", formatTimestamp(*rec.FinishedAt))
				}
				return nil
			})
		},
	}
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [reference-id...]",
		Short: "Move failed jobs back to created for reprocessing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				count, err := store.RetryFailed(cmd.Context(), args...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d job(s)\n", count)
				return nil
			})
		},
	}
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var failedFlag bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove succeeded jobs (or failed jobs with --failed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				var (
					count int64
					err   error
					label string
				)
				if failedFlag {
					count, err = store.ClearFailed(cmd.Context())
					label = "failed"
				} else {
					count, err = store.ClearCompleted(cmd.Context())
					label = "succeeded"
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d %s job(s)\n", count, label)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&failedFlag, "failed", false, "Clear failed jobs instead of succeeded ones")
	return cmd
}

func newJobsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <reference-id>",
		Short: "Delete one job record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *jobs.Store) error {
				if err := store.Remove(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}
}

func formatTimestamp(t time.Time) string {
	return strings.TrimSpace(t.Local().Format("2006-01-02 15:04:05"))
}
