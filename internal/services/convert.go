package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/docpairflow/internal/config"
	"github.com/Lllllllleong/docpairflow/internal/models"
	"github.com/Lllllllleong/docpairflow/internal/office"
	"github.com/Lllllllleong/docpairflow/internal/report"
)

// ConvertConfig carries the conversion stage's settings.
type ConvertConfig struct {
	SofficePath string
	SkipDirs    []string
}

// ConvertStage upgrades legacy .doc files to .docx siblings so the rest of
// the pipeline can prefer the richer format. Originals are left in place;
// deduplication later supersedes them by format priority.
type ConvertStage struct {
	config ConvertConfig
}

func NewConvertStage(cfg *config.Config) *ConvertStage {
	return &ConvertStage{config: ConvertConfig{
		SofficePath: cfg.SofficePath,
		SkipDirs:    cfg.SkipDirs,
	}}
}

func (s *ConvertStage) Process(ctx context.Context, req models.ConvertRequest, rep *report.RunReport) (*models.ConvertResponse, error) {
	logCtx := slog.With("inputDir", req.InputDir, "dryRun", req.DryRun)
	logCtx.Info("Starting legacy document conversion.")

	if err := requireDir(req.InputDir, "--input"); err != nil {
		return nil, err
	}

	// --- 1. Discover legacy documents ---
	records, err := ScanDocuments(req.InputDir, s.config.SkipDirs)
	if err != nil {
		return nil, err
	}
	var docs []*models.DocumentRecord
	for _, r := range records {
		if r.Format == models.FormatDoc {
			docs = append(docs, r)
		}
	}

	resp := &models.ConvertResponse{Planned: len(docs)}
	if len(docs) == 0 {
		logCtx.Info("No legacy documents found.")
		return resp, nil
	}
	logCtx.Info("Found legacy documents.", "count", len(docs))

	if req.DryRun {
		for _, doc := range docs {
			rep.AddDecision(doc.Path, "convert", "legacy doc format", docxSibling(doc.Path))
		}
		return resp, nil
	}

	// --- 2. Locate the office binary ---
	binary, err := office.Find(s.config.SofficePath)
	if err != nil {
		return nil, fmt.Errorf("conversion requires an office binary: %w", err)
	}
	converter := office.NewConverter(binary)
	logCtx.Info("Using office binary.", "binary", binary)

	// --- 3. Convert concurrently ---
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(req.Workers)
	outcomes := make([]string, len(docs))
	for i, doc := range docs {
		i, doc := i, doc
		eg.Go(func() error {
			outcome, err := s.convertOne(gctx, converter, doc, req.OnExists, rep)
			if err != nil {
				// Per-document failures are recorded, never fatal.
				outcomes[i] = "failed"
				rep.AddError(doc.Path, err)
				slog.Error("Conversion failed.", "path", doc.Path, "error", err)
				return gctx.Err()
			}
			outcomes[i] = outcome
			return gctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("conversion interrupted: %w", err)
	}

	// --- 4. Summarize ---
	for _, o := range outcomes {
		switch o {
		case "converted":
			resp.Converted++
		case "skipped":
			resp.Skipped++
		case "failed":
			resp.Failed++
		}
	}
	logCtx.Info("Conversion complete.",
		"converted", resp.Converted,
		"skipped", resp.Skipped,
		"failed", resp.Failed,
	)
	return resp, nil
}

// convertOne converts a single document into its sibling .docx, honoring
// the collision policy.
func (s *ConvertStage) convertOne(ctx context.Context, converter *office.Converter, doc *models.DocumentRecord, policy models.OnExists, rep *report.RunReport) (string, error) {
	dest, skip := resolveDestination(docxSibling(doc.Path), policy)
	if skip {
		rep.AddDecision(doc.Path, "skip", "output already exists", dest)
		return "skipped", nil
	}

	// soffice writes a fixed output name, so convert into scratch space and
	// move the result to the policy-resolved destination.
	tempDir, err := os.MkdirTemp("", "docpairflow-convert-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	outPath, err := converter.Convert(ctx, doc.Path, "docx", tempDir)
	if err != nil {
		return "", err
	}
	if err := copyFile(outPath, dest); err != nil {
		return "", fmt.Errorf("failed to place converted file: %w", err)
	}
	rep.AddDecision(doc.Path, "convert", "legacy doc format", dest)
	return "converted", nil
}

// docxSibling maps input.doc to input.docx in the same directory.
func docxSibling(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".docx"
}
