package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/buddykit/internal/logger"
)

var (
	// Global flags
	verbose  bool
	quiet    bool
	jsonOut  bool
	logFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "buddyctl",
	Short: "Inspect and exercise a buddy-system heap",
	Long: `buddyctl drives the buddy allocator from the command line. It shows how
an address range is tiled into power-of-two blocks and runs seeded
allocation workloads against a locked heap, checking every heap invariant
afterwards.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write JSON logs to this file")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to $"+logger.EnvVar)
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// initLogging enables the logger when a level is given by flag or env var.
func initLogging() error {
	level := logLevel
	if level == "" {
		level = os.Getenv(logger.EnvVar)
	}
	if level == "" {
		return logger.Init(logger.Options{})
	}
	lvl, err := logger.ParseLevel(level)
	if err != nil {
		return err
	}
	return logger.Init(logger.Options{Enabled: true, Path: logFile, Level: lvl})
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprint(os.Stdout, numbers.Sprintf(format, args...))
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprint(os.Stdout, numbers.Sprintf(format, args...))
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
