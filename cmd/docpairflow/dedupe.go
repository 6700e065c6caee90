package main

import (
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/docpairflow/internal/models"
	"github.com/Lllllllleong/docpairflow/internal/report"
	"github.com/Lllllllleong/docpairflow/internal/services"
)

var (
	dedupeInput  string
	dedupeOutput string
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Retain one document per identity and copy keepers to the output",
	Long: `Group documents that share a base name (ignoring case, extension, and
timestamp collision suffixes) and retain exactly one per group: the highest
priority format (docx > doc > pdf), then the latest modification time, then
the lexicographically smallest path. Keepers are copied into the output
directory; inputs are never modified or deleted.

Examples:
  docpairflow dedupe --input ./corpus --output ./deduped
  docpairflow dedupe --input ./corpus --output ./deduped --dry-run`,
	RunE: runDedupe,
}

func init() {
	dedupeCmd.Flags().StringVar(&dedupeInput, "input", "", "directory of raw documents (required)")
	dedupeCmd.Flags().StringVar(&dedupeOutput, "output", "", "directory for retained documents (required)")
	_ = dedupeCmd.MarkFlagRequired("input")
	_ = dedupeCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(dedupeCmd)
}

func runDedupe(cmd *cobra.Command, args []string) error {
	stage := services.NewDedupeStage(cfg)
	rep := report.New("dedupe", dryRun)

	resp, err := stage.Process(cmd.Context(), models.DedupeRequest{
		InputDir:  dedupeInput,
		OutputDir: dedupeOutput,
		DryRun:    dryRun,
		OnExists:  models.OnExists(cfg.OnExists),
		Workers:   cfg.Workers,
	}, rep)
	finishReport(rep)
	if err != nil {
		return err
	}
	return printJSON(resp)
}
