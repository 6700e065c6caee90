package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/docpairflow/internal/models"
	"github.com/Lllllllleong/docpairflow/internal/report"
	"github.com/Lllllllleong/docpairflow/internal/services"
)

var (
	pairClassified string
	pairMarkdown   string
	pairOutput     string
	pairStrategy   string
	pairTrainRatio float64
	pairPublishURL string
)

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Join categories by reference code and emit dataset files",
	Long: `Join the source and target categories by extracted reference code and
produce train.jsonl and val.jsonl, one JSON record per pair with both
documents' markdown text and provenance metadata.

Strategies: version_match pairs documents with equal version tokens;
all_combinations pairs every source with every target; latest_only and
first_only pick a single document per side. Codes with members on one side
only are reported as orphans. The train/validation split is deterministic
for an unchanged input set.

Examples:
  docpairflow pair --classified ./classified --markdown ./markdown --output ./dataset
  docpairflow pair --classified ./classified --markdown ./markdown --output ./dataset \
      --strategy all_combinations --train-ratio 0.8
  docpairflow pair --classified ./classified --markdown ./markdown --output ./dataset \
      --publish gs://training-data/docpairflow`,
	RunE: runPair,
}

func init() {
	pairCmd.Flags().StringVar(&pairClassified, "classified", "", "directory of classified documents (required)")
	pairCmd.Flags().StringVar(&pairMarkdown, "markdown", "", "directory of extracted markdown artifacts (required)")
	pairCmd.Flags().StringVar(&pairOutput, "output", "", "directory for dataset files (required)")
	pairCmd.Flags().StringVar(&pairStrategy, "strategy", "", "pairing strategy: version_match, all_combinations, latest_only, or first_only (overrides config)")
	pairCmd.Flags().Float64Var(&pairTrainRatio, "train-ratio", 0, "fraction of pairs assigned to the training split (overrides config)")
	pairCmd.Flags().StringVar(&pairPublishURL, "publish", "", "publish dataset files to a gs://bucket/prefix URL")
	_ = pairCmd.MarkFlagRequired("classified")
	_ = pairCmd.MarkFlagRequired("markdown")
	_ = pairCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(pairCmd)
}

func runPair(cmd *cobra.Command, args []string) error {
	strategy, err := models.ParseStrategy(cfg.Pairing.Strategy)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("strategy") {
		if strategy, err = models.ParseStrategy(pairStrategy); err != nil {
			return err
		}
	}
	ratio := cfg.Pairing.TrainRatio
	if cmd.Flags().Changed("train-ratio") {
		ratio = pairTrainRatio
	}
	if ratio <= 0 || ratio > 1 {
		return fmt.Errorf("train ratio must be in (0, 1], got %v", ratio)
	}

	registry := services.NewExtractorRegistry(cfg)
	stage, err := services.NewPairStage(cfg, registry)
	if err != nil {
		return err
	}
	rep := report.New("pair", dryRun)

	resp, err := stage.Process(cmd.Context(), models.PairRequest{
		ClassifiedDir: pairClassified,
		MarkdownDir:   pairMarkdown,
		OutputDir:     pairOutput,
		Strategy:      strategy,
		TrainRatio:    ratio,
		DryRun:        dryRun,
		OnExists:      models.OnExists(cfg.OnExists),
		PublishURL:    pairPublishURL,
	}, rep)
	finishReport(rep)
	if err != nil {
		return err
	}
	return printJSON(resp)
}
