// Package cmd contains all CLI commands for cx.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the current version of cx.
var Version = "0.1.0"

var (
	verbose    bool
	configPath string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cx",
	Short: "Canonical Metadata Model indexer for Python codebases",
	Long: `cx scans a Python codebase and builds a language-neutral metadata graph
of its entities (classes, functions, methods) and their relations (calls,
inherits), persisted to a SQLite database.

A syntactic pass extracts entities and candidate relations directly from
source. A second, optional pass resolves candidate call relations against a
running language server to verify them and attach type hints.

Examples:
  cx scan .            # scan the current directory
  cx migrate cmm.db    # bring an older database up to the current schema`,
	Version: Version,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose flag (accepted; no command changes its output with it)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: .cx/config.yaml)")
}
