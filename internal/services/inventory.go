package services

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Lllllllleong/docpairflow/internal/config"
	"github.com/Lllllllleong/docpairflow/internal/models"
	"github.com/Lllllllleong/docpairflow/internal/report"
)

// InventoryConfig carries the inventory stage's walk settings.
type InventoryConfig struct {
	SkipDirs []string
}

// InventoryStage surveys a raw corpus before any processing: it tallies
// files by extension and flags names that usually indicate a renaming
// accident, so operators can fix the corpus before running the pipeline.
type InventoryStage struct {
	config InventoryConfig
}

func NewInventoryStage(cfg *config.Config) *InventoryStage {
	return &InventoryStage{config: InventoryConfig{SkipDirs: cfg.SkipDirs}}
}

func (s *InventoryStage) Process(ctx context.Context, req models.InventoryRequest, rep *report.RunReport) (*models.InventoryResponse, error) {
	logCtx := slog.With("inputDir", req.InputDir)
	logCtx.Info("Scanning corpus.")

	if err := requireDir(req.InputDir, "--input"); err != nil {
		return nil, err
	}

	resp := &models.InventoryResponse{ByExtension: make(map[string]int)}
	skip := make(map[string]bool, len(s.config.SkipDirs))
	for _, name := range s.config.SkipDirs {
		skip[name] = true
	}

	err := filepath.WalkDir(req.InputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if skip[d.Name()] && path != req.InputDir {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext == "" {
			ext = "(none)"
		}
		resp.TotalFiles++
		resp.ByExtension[ext]++

		if _, ok := models.FormatFromPath(name); ok {
			resp.Supported++
		} else {
			resp.Unsupported++
			rep.AddDecision(path, "ignore", "unsupported extension "+ext, "")
		}
		if reason := malformedName(name); reason != "" {
			resp.Malformed = append(resp.Malformed, path)
			rep.AddDecision(path, "flag", reason, "")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", req.InputDir, err)
	}
	sort.Strings(resp.Malformed)

	logCtx.Info("Corpus inventory complete.",
		"totalFiles", resp.TotalFiles,
		"supported", resp.Supported,
		"unsupported", resp.Unsupported,
		"malformed", len(resp.Malformed),
	)
	return resp, nil
}

// malformedName flags extension anomalies: whitespace inside the extension
// or a duplicated document extension such as report.docx.docx.
func malformedName(name string) string {
	ext := filepath.Ext(name)
	if ext != strings.TrimSpace(ext) {
		return "whitespace in extension"
	}
	if _, ok := models.FormatFromPath(name); !ok {
		return ""
	}
	if _, ok := models.FormatFromPath(strings.TrimSuffix(name, ext)); ok {
		return "duplicated document extension"
	}
	return ""
}
