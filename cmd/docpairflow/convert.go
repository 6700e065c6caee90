package main

import (
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/docpairflow/internal/models"
	"github.com/Lllllllleong/docpairflow/internal/report"
	"github.com/Lllllllleong/docpairflow/internal/services"
)

var convertInput string

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert legacy .doc files to .docx siblings",
	Long: `Convert every legacy .doc file under the input directory to a .docx
sibling using a headless office binary (soffice). Originals are left in
place; the dedupe stage later supersedes them by format priority.

The office binary is located from soffice_path in the config, the
SOFFICE_PATH environment variable, or $PATH.

Examples:
  docpairflow convert --input ./corpus
  docpairflow convert --input ./corpus --dry-run
  docpairflow convert --input ./corpus --on-exists overwrite`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&convertInput, "input", "", "directory of raw documents (required)")
	_ = convertCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	stage := services.NewConvertStage(cfg)
	rep := report.New("convert", dryRun)

	resp, err := stage.Process(cmd.Context(), models.ConvertRequest{
		InputDir: convertInput,
		DryRun:   dryRun,
		OnExists: models.OnExists(cfg.OnExists),
		Workers:  cfg.Workers,
	}, rep)
	finishReport(rep)
	if err != nil {
		return err
	}
	return printJSON(resp)
}
