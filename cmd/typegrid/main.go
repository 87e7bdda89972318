package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/typegrid/internal/config"
	"github.com/jward/typegrid/internal/ctxlog"
)

var (
	flagConfig    string
	flagFormat    string
	flagLogLevel  string
	flagLogFormat string
)

// cfg is loaded by the root command before any subcommand runs.
var cfg *config.Config

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "typegrid",
	Short:         "Compile hierarchical spreadsheet type definitions into tables",
	Long:          "Typegrid reads a workbook of type grids, builds the configuration tree rooted at one grid, and flattens it into one table per type.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		var err error
		if cfg, err = config.Load(cmd.Context(), flagConfig); err != nil {
			return err
		}
		level, format := cfg.LogLevel, cfg.LogFormat
		if cmd.Flags().Changed("log-level") {
			level = flagLogLevel
		}
		if cmd.Flags().Changed("log-format") {
			format = flagLogFormat
		}
		logger := ctxlog.New(level, format, cmd.ErrOrStderr())
		cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
		return nil
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", config.DefaultFile, "configuration file")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "log format: text|json")

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(sheetsCmd)
	rootCmd.AddCommand(queryCmd)
}
