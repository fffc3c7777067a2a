package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"jsonpress/internal/flatten"
	"jsonpress/internal/record"
)

// newFlattenCommand flattens one file without touching the job queue, which
// is handy for previewing output before submitting.
func newFlattenCommand(ctx *commandContext) *cobra.Command {
	var (
		formatFlag     string
		emptyListsFlag string
		outputFlag     string
	)

	cmd := &cobra.Command{
		Use:   "flatten <file>",
		Short: "Flatten a JSON file to CSV or XLSX without queueing a job",
		Args:  cobra.ExactArgs(1),
		Annotations: map[string]string{
			"skipConfigLoad": "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			batch, err := record.DecodeBatch(data)
			if err != nil {
				return err
			}
			table, err := flatten.Flatten(batch, flatten.Options{
				EmptyLists: flatten.PolicyFromString(emptyListsFlag),
			})
			if err != nil {
				return err
			}
			out, err := flatten.Encode(table, formatFlag)
			if err != nil {
				return err
			}

			if outputFlag == "" || outputFlag == "-" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			if err := os.WriteFile(outputFlag, out, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows x %d columns to %s\n",
				len(table.Rows), len(table.Columns), outputFlag)
			return nil
		},
	}

	cmd.Flags().StringVarP(&formatFlag, "format", "f", flatten.FormatCSV, "Output format (csv or xlsx)")
	cmd.Flags().StringVar(&emptyListsFlag, "empty-lists", "drop", "Empty list handling (drop or keep)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file (default stdout)")
	return cmd
}
