package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"jsonpress/internal/config"
	"jsonpress/internal/jobs"
	"jsonpress/internal/watch"
)

// newSubmitCommand copies a JSON file into the input directory and queues a
// job for it, the same path a watched file takes.
func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var emailFlag string

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Queue a JSON file for flattening",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.TrimSpace(emailFlag)
			if email == "" || !strings.Contains(email, "@") {
				return fmt.Errorf("a valid --email is required")
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			fileName := filepath.Base(args[0])
			if !strings.EqualFold(filepath.Ext(fileName), ".json") {
				return fmt.Errorf("input must be a .json file, got %s", fileName)
			}

			return ctx.withStore(func(cfg *config.Config, store *jobs.Store) error {
				inputName := email + "_" + fileName
				target := filepath.Join(cfg.Paths.InputDir, inputName)
				if err := os.WriteFile(target, data, 0o644); err != nil {
					return fmt.Errorf("stage input: %w", err)
				}

				rec, err := store.Create(cmd.Context(), jobs.Metadata{
					ReferenceID:   watch.NewReferenceID(),
					OwnerEmail:    email,
					FileName:      fileName,
					InputLocation: inputName,
					OutputFormat:  cfg.Flatten.OutputFormat,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s as %s\n", fileName, rec.ReferenceID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&emailFlag, "email", "e", "", "Owner email for the job (required)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
