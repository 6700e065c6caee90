package main

import (
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/docpairflow/internal/models"
	"github.com/Lllllllleong/docpairflow/internal/report"
	"github.com/Lllllllleong/docpairflow/internal/services"
)

var (
	extractInput  string
	extractOutput string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Render classified documents to cleaned markdown artifacts",
	Long: `Render every classified document to a markdown artifact, mirroring the
input tree's category layout. Headings, lists, and tables survive the
rendering; cover pages, tables of contents, and page-number noise are
stripped. The pairing stage reads these artifacts by convention.

Examples:
  docpairflow extract --input ./classified --output ./markdown
  docpairflow extract --input ./classified --output ./markdown --on-exists suffix`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractInput, "input", "", "directory of classified documents (required)")
	extractCmd.Flags().StringVar(&extractOutput, "output", "", "directory for markdown artifacts (required)")
	_ = extractCmd.MarkFlagRequired("input")
	_ = extractCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	registry := services.NewExtractorRegistry(cfg)
	stage := services.NewExtractStage(cfg, registry)
	rep := report.New("extract", dryRun)

	resp, err := stage.Process(cmd.Context(), models.ExtractRequest{
		InputDir:  extractInput,
		OutputDir: extractOutput,
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
