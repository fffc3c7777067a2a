package main

import (
	"github.com/spf13/cobra"

	"jsonpress/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var linesFlag int
	var followFlag bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return logs.Tail(cmd.Context(), cmd.OutOrStdout(), cfg.LogPath(), logs.TailOptions{
				Lines:  linesFlag,
				Follow: followFlag,
			})
		},
	}

	cmd.Flags().IntVarP(&linesFlag, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&followFlag, "follow", "f", false, "Keep printing new lines until interrupted")
	return cmd
}
