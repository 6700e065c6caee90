package main

import (
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/docpairflow/internal/models"
	"github.com/Lllllllleong/docpairflow/internal/report"
	"github.com/Lllllllleong/docpairflow/internal/services"
)

var (
	classifyInput  string
	classifyOutput string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Assign each document to a category and copy it into place",
	Long: `Classify each document into exactly one category by an ordered rule
cascade over its filename and first-page text, then copy it into the
matching category subdirectory of the output. A reference pattern match in
the content wins over filename keyword signals; unreadable documents
degrade to the "other" category and are recorded as errors.

Category signals and reference patterns come from the configuration.

Examples:
  docpairflow classify --input ./deduped --output ./classified
  docpairflow classify --input ./deduped --output ./classified --workers 4`,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVar(&classifyInput, "input", "", "directory of retained documents (required)")
	classifyCmd.Flags().StringVar(&classifyOutput, "output", "", "directory for category subdirectories (required)")
	_ = classifyCmd.MarkFlagRequired("input")
	_ = classifyCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	registry := services.NewExtractorRegistry(cfg)
	stage, err := services.NewClassifyStage(cfg, registry)
	if err != nil {
		return err
	}
	rep := report.New("classify", dryRun)

	resp, err := stage.Process(cmd.Context(), models.ClassifyRequest{
		InputDir:  classifyInput,
		OutputDir: classifyOutput,
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
