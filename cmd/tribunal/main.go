// Package main provides the tribunal CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/richinex/tribunal/cli"
)

var (
	// Global flags
	configPath string
	bugFile    string
	codebase   string
	historyDB  string
	outputOnly bool
	verbose    bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "tribunal",
		Short: "Multi-AI bug investigation workflow",
		Long: `Coordinates three sequential phases of model calls to investigate a bug:
two independent analyst reports, a cross-critique round, and a final
arbitration that produces the definitive fix list.

Each run creates a new bug####_results/ folder with all outputs.`,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Configuration file")
	rootCmd.PersistentFlags().StringVar(&bugFile, "bug", "", "Bug description file (default from config)")
	rootCmd.PersistentFlags().StringVar(&codebase, "codebase", "", "Codebase folder to analyze (default from config)")
	rootCmd.PersistentFlags().StringVar(&historyDB, "history-db", "", "Run history database path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(testConnectionsCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(setupCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		ConfigPath:     configPath,
		BugFile:        bugFile,
		CodebaseFolder: codebase,
		HistoryDB:      historyDB,
		OutputOnly:     outputOnly,
	}
}

func newLogger() *zap.Logger {
	var logger *zap.Logger
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		logger, err = cfg.Build()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the complete three-phase investigation",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()
			return cli.Run(context.Background(), options(), logger)
		},
	}
	cmd.Flags().BoolVar(&outputOnly, "output-only", false, "Only print the final output")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate content sizes against each role's budget, without network calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()
			return cli.Validate(options(), logger)
		},
	}
}

func testConnectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-connections",
		Short: "Send one test prompt to every configured role provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()
			return cli.TestConnections(context.Background(), options(), logger)
		},
	}
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List recorded investigation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()
			return cli.History(context.Background(), options(), logger)
		},
	}
}

func setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the expected project structure",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()
			return cli.Setup(logger)
		},
	}
}
