package main

import (
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/docpairflow/internal/models"
	"github.com/Lllllllleong/docpairflow/internal/report"
	"github.com/Lllllllleong/docpairflow/internal/services"
)

var inventoryInput string

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Survey a raw corpus: tally extensions and flag odd file names",
	Long: `Survey a raw corpus before processing. Tallies files by extension,
counts how many are in a supported document format, and flags names that
usually indicate a renaming accident (duplicated extensions, whitespace in
the extension).

Examples:
  docpairflow inventory --input ./corpus
  docpairflow inventory --input ./corpus --report inventory.json`,
	RunE: runInventory,
}

func init() {
	inventoryCmd.Flags().StringVar(&inventoryInput, "input", "", "directory of raw documents (required)")
	_ = inventoryCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(inventoryCmd)
}

func runInventory(cmd *cobra.Command, args []string) error {
	stage := services.NewInventoryStage(cfg)
	rep := report.New("inventory", dryRun)

	resp, err := stage.Process(cmd.Context(), models.InventoryRequest{InputDir: inventoryInput}, rep)
	finishReport(rep)
	if err != nil {
		return err
	}
	return printJSON(resp)
}
