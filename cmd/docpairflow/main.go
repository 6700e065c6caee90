// Package main implements the docpairflow CLI: a staged pipeline that turns
// a raw office-document corpus into paired training and validation datasets.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/docpairflow/internal/config"
	"github.com/Lllllllleong/docpairflow/internal/report"
)

var (
	configPath string
	logLevel   string
	logFormat  string
	reportPath string
	dryRun     bool
	workers    int
	onExists   string

	// cfg is the resolved configuration, loaded before any subcommand runs.
	cfg *config.Config

	version = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "docpairflow",
	Short: "Build document-pair datasets from an office document corpus",
	Long: `docpairflow processes a directory of docx, doc, and pdf files through
staged commands: inventory the corpus, convert legacy formats, deduplicate
format variants, classify documents into categories, extract markdown text,
and pair documents across categories into training and validation JSONL
datasets keyed by reference code.

Each stage reads the previous stage's output directory and writes its own,
so stages can be re-run independently. Every stage records a per-document
decision report; pass --report to write it as a JSON artifact.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(logLevel, logFormat)

		loaded, err := config.NewLoader(nil).Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cmd.Flags().Changed("workers") {
			loaded.Workers = workers
		}
		if cmd.Flags().Changed("on-exists") {
			loaded.OnExists = onExists
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
	rootCmd.PersistentFlags().StringVar(&reportPath, "report", "", "write the stage's decision report to this path")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "plan actions without writing any files")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "per-document concurrency (overrides config)")
	rootCmd.PersistentFlags().StringVar(&onExists, "on-exists", "", "output collision policy: skip, overwrite, or suffix (overrides config)")
}

func setupLogging(level, format string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// finishReport stamps the report and writes it when --report is set. Report
// write failures never mask the stage's own outcome.
func finishReport(rep *report.RunReport) {
	rep.Finish()
	if reportPath == "" {
		return
	}
	if err := rep.WriteFile(reportPath); err != nil {
		slog.Error("Failed to write report.", "path", reportPath, "error", err)
		return
	}
	slog.Info("Wrote report.", "path", reportPath)
}

// printJSON renders a stage response on stdout for scripting.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render response: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
