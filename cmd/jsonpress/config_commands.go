package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jsonpress/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the jsonpress configuration file",
		Annotations: map[string]string{
			"skipConfigLoad": "true",
		},
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var forceFlag bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		Annotations: map[string]string{
			"skipConfigLoad": "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}
			if _, statErr := os.Stat(path); statErr == nil && !forceFlag {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample config to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&forceFlag, "force", false, "Overwrite an existing config file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if ctx.configExists {
				fmt.Fprintf(out, "Config file:  %s\n", ctx.configPath)
			} else {
				fmt.Fprintln(out, "Config file:  (defaults, no file found)")
			}
			fmt.Fprintf(out, "Input dir:    %s\n", cfg.Paths.InputDir)
			fmt.Fprintf(out, "Output dir:   %s\n", cfg.Paths.OutputDir)
			fmt.Fprintf(out, "Data dir:     %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "Log dir:      %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "Format:       %s\n", cfg.Flatten.OutputFormat)
			fmt.Fprintf(out, "Empty lists:  %s\n", cfg.Flatten.EmptyLists)
			fmt.Fprintf(out, "Workers:      %d\n", cfg.Workflow.Workers)
			fmt.Fprintf(out, "Watcher:      %s\n", yesNo(cfg.Watch.Enabled))
			fmt.Fprintf(out, "API:          %s", yesNo(cfg.API.Enabled))
			if cfg.API.Enabled {
				fmt.Fprintf(out, " (%s)", cfg.API.Bind)
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Ntfy topic:   %s\n", orNone(cfg.Notifications.NtfyTopic))
			return nil
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func orNone(value string) string {
	if value == "" {
		return "(none)"
	}
	return value
}
