package models

// These structs define the inputs and results for each pipeline stage.
// Stage services accept a request, do their work, and return a response
// alongside the run report; the CLI layer fills requests from flags.

// InventoryRequest is the input for the inventory stage.
type InventoryRequest struct {
	InputDir string `json:"inputDir"`
}

// InventoryResponse summarizes the corpus scan.
type InventoryResponse struct {
	TotalFiles  int            `json:"totalFiles"`
	ByExtension map[string]int `json:"byExtension"`
	Supported   int            `json:"supported"`
	Unsupported int            `json:"unsupported"`
	Malformed   []string       `json:"malformed,omitempty"`
}

// ConvertRequest is the input for the doc-to-docx conversion stage.
type ConvertRequest struct {
	InputDir string   `json:"inputDir"`
	DryRun   bool     `json:"dryRun"`
	OnExists OnExists `json:"onExists"`
	Workers  int      `json:"workers"`
}

// ConvertResponse summarizes conversion outcomes.
type ConvertResponse struct {
	Planned   int `json:"planned"`
	Converted int `json:"converted"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// DedupeRequest is the input for the deduplication stage.
type DedupeRequest struct {
	InputDir  string   `json:"inputDir"`
	OutputDir string   `json:"outputDir"`
	DryRun    bool     `json:"dryRun"`
	OnExists  OnExists `json:"onExists"`
	Workers   int      `json:"workers"`
}

// DedupeResponse summarizes retention decisions.
type DedupeResponse struct {
	Groups     int `json:"groups"`
	Retained   int `json:"retained"`
	Superseded int `json:"superseded"`
	Copied     int `json:"copied"`
}

// ClassifyRequest is the input for the classification stage.
type ClassifyRequest struct {
	InputDir  string   `json:"inputDir"`
	OutputDir string   `json:"outputDir"`
	DryRun    bool     `json:"dryRun"`
	OnExists  OnExists `json:"onExists"`
	Workers   int      `json:"workers"`
}

// ClassifyResponse summarizes classification outcomes per category.
type ClassifyResponse struct {
	Classified map[Category]int `json:"classified"`
	Errors     int              `json:"errors"`
}

// ExtractRequest is the input for the markdown extraction stage.
type ExtractRequest struct {
	InputDir  string   `json:"inputDir"`
	OutputDir string   `json:"outputDir"`
	DryRun    bool     `json:"dryRun"`
	OnExists  OnExists `json:"onExists"`
	Workers   int      `json:"workers"`
}

// ExtractResponse summarizes extraction outcomes.
type ExtractResponse struct {
	Planned   int `json:"planned"`
	Extracted int `json:"extracted"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// PairRequest is the input for the pairing stage. ClassifiedDir holds the
// per-category subdirectories produced by classify; MarkdownDir holds the
// mirrored markdown tree produced by extract.
type PairRequest struct {
	ClassifiedDir string   `json:"classifiedDir"`
	MarkdownDir   string   `json:"markdownDir"`
	OutputDir     string   `json:"outputDir"`
	Strategy      Strategy `json:"strategy"`
	TrainRatio    float64  `json:"trainRatio"`
	DryRun        bool     `json:"dryRun"`
	OnExists      OnExists `json:"onExists"`
	PublishURL    string   `json:"publishUrl,omitempty"`
}

// PairResponse summarizes the pairing run.
type PairResponse struct {
	Codes          int    `json:"codes"`
	Pairs          int    `json:"pairs"`
	Train          int    `json:"train"`
	Validation     int    `json:"validation"`
	Unmatched      int    `json:"unmatched"`
	Orphans        int    `json:"orphans"`
	TrainPath      string `json:"trainPath,omitempty"`
	ValidationPath string `json:"validationPath,omitempty"`
}
