// Package main provides the bibnet CLI entry point.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-cz/devslog"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matsen/bibnet/internal/config"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput   bool
	verbose       bool
	workspaceFlag string
	metricsAddr   string
)

// settings are resolved once before any command runs.
var settings = &config.Settings{}

func main() {
	if err := rootCmd.Execute(); err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bibnet",
	Short: "Bibliometric data platform",
	Long: `bibnet stores papers, tables and graphs in configurable data sources
and builds citation, author and term networks from them.

Sources are declared in .bibnet/sources.yml. Every entity is addressed
by a key; "@*" in any key position matches every value there.

All commands output JSON by default; use --human for text.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "", "Workspace root (default: search upward from the current directory)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the command runs")
	rootCmd.Version = Version
}

// setup loads .env, installs the logger and resolves global settings.
func setup(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	var handler slog.Handler
	if humanOutput {
		handler = devslog.NewHandler(os.Stderr, &devslog.Options{
			HandlerOptions: &slog.HandlerOptions{Level: level},
		})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))

	s, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	settings = s
	if metricsAddr == "" {
		metricsAddr = settings.MetricsAddr
	}
	return nil
}
