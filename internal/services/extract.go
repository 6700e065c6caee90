package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/docpairflow/internal/config"
	"github.com/Lllllllleong/docpairflow/internal/extract"
	"github.com/Lllllllleong/docpairflow/internal/models"
	"github.com/Lllllllleong/docpairflow/internal/office"
	"github.com/Lllllllleong/docpairflow/internal/report"
)

// NewExtractorRegistry builds the per-format extractor registry, wiring in
// an office converter when one can be found. Without a converter, legacy
// doc extraction fails per document instead of at startup.
func NewExtractorRegistry(cfg *config.Config) *extract.Registry {
	var conv *office.Converter
	if binary, err := office.Find(cfg.SofficePath); err == nil {
		conv = office.NewConverter(binary)
	} else {
		slog.Warn("Office binary not found; legacy doc extraction is unavailable.", "error", err)
	}
	return extract.NewRegistry(conv)
}

// ExtractConfig carries the extraction stage's walk settings.
type ExtractConfig struct {
	SkipDirs []string
}

// ExtractStage renders every classified document to a cleaned markdown
// artifact, mirroring the input tree's category layout so the pairing stage
// can find each document's text by convention.
type ExtractStage struct {
	config   ExtractConfig
	registry *extract.Registry
}

func NewExtractStage(cfg *config.Config, registry *extract.Registry) *ExtractStage {
	return &ExtractStage{
		config:   ExtractConfig{SkipDirs: cfg.SkipDirs},
		registry: registry,
	}
}

func (s *ExtractStage) Process(ctx context.Context, req models.ExtractRequest, rep *report.RunReport) (*models.ExtractResponse, error) {
	logCtx := slog.With("inputDir", req.InputDir, "outputDir", req.OutputDir, "dryRun", req.DryRun)
	logCtx.Info("Starting markdown extraction.")

	if err := requireDir(req.InputDir, "--input"); err != nil {
		return nil, err
	}

	// --- 1. Scan classified documents ---
	records, err := ScanDocuments(req.InputDir, s.config.SkipDirs)
	if err != nil {
		return nil, err
	}
	resp := &models.ExtractResponse{Planned: len(records)}
	logCtx.Info("Found documents to extract.", "count", len(records))

	if req.DryRun {
		for _, doc := range records {
			rep.AddDecision(doc.Path, "extract", "", s.destination(req, doc))
		}
		return resp, nil
	}

	// --- 2. Extract concurrently ---
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(req.Workers)
	outcomes := make([]string, len(records))
	for i, doc := range records {
		i, doc := i, doc
		eg.Go(func() error {
			outcome, err := s.extractOne(gctx, req, doc, rep)
			if err != nil {
				outcomes[i] = "failed"
				rep.AddError(doc.Path, err)
				slog.Error("Extraction failed.", "path", doc.Path, "error", err)
				return gctx.Err()
			}
			outcomes[i] = outcome
			return gctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("extraction interrupted: %w", err)
	}

	// --- 3. Summarize ---
	for _, o := range outcomes {
		switch o {
		case "extracted":
			resp.Extracted++
		case "skipped":
			resp.Skipped++
		case "failed":
			resp.Failed++
		}
	}
	logCtx.Info("Extraction complete.",
		"extracted", resp.Extracted,
		"skipped", resp.Skipped,
		"failed", resp.Failed,
	)
	return resp, nil
}

// extractOne renders one document to markdown at its mirrored output path.
func (s *ExtractStage) extractOne(ctx context.Context, req models.ExtractRequest, doc *models.DocumentRecord, rep *report.RunReport) (string, error) {
	dest, skip := resolveDestination(s.destination(req, doc), req.OnExists)
	if skip {
		rep.AddDecision(doc.Path, "skip", "output already exists", dest)
		return "skipped", nil
	}

	reason := ""
	if doc.Format == models.FormatPDF {
		if pages, err := extract.PageCount(doc.Path); err == nil {
			reason = fmt.Sprintf("%d pages", pages)
		}
	}

	text, err := s.registry.Markdown(ctx, doc.Path)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("document produced no text")
	}
	if err := writeFileAtomic(dest, []byte(text)); err != nil {
		return "", err
	}
	rep.AddDecision(doc.Path, "extract", reason, dest)
	return "extracted", nil
}

// destination mirrors the document's path under the output directory with a
// .md extension.
func (s *ExtractStage) destination(req models.ExtractRequest, doc *models.DocumentRecord) string {
	rel, err := filepath.Rel(req.InputDir, doc.Path)
	if err != nil {
		rel = filepath.Base(doc.Path)
	}
	return filepath.Join(req.OutputDir, strings.TrimSuffix(rel, filepath.Ext(rel))+".md")
}
