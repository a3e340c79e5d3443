// Package cmd implements the CLI commands for flatdoc using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Persistent flag variables.
var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
	flagDB        string
)

var rootCmd = &cobra.Command{
	Use:   "flatdoc",
	Short: "flatdoc: convert documents to and from a flat annotated model",
	Long: `flatdoc converts documents between the pandoc AST and a flat document
model where text nodes carry range annotations instead of nested markup.

Usage:
  flatdoc convert <input> --to <format> [flags]
  flatdoc import <input> [flags]
  flatdoc docs list|show|export|delete`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: trace, debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: console or json (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Document store path (overrides config)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
