package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/docpairflow/internal/config"
	"github.com/Lllllllleong/docpairflow/internal/models"
	"github.com/Lllllllleong/docpairflow/internal/report"
)

// DedupeConfig carries the deduplication stage's walk settings.
type DedupeConfig struct {
	SkipDirs []string
}

// DedupeStage resolves each identity group down to a single retained
// document and copies the keepers into the output directory. Inputs are
// never modified or deleted; losers are only marked superseded.
type DedupeStage struct {
	config DedupeConfig
}

func NewDedupeStage(cfg *config.Config) *DedupeStage {
	return &DedupeStage{config: DedupeConfig{SkipDirs: cfg.SkipDirs}}
}

func (s *DedupeStage) Process(ctx context.Context, req models.DedupeRequest, rep *report.RunReport) (*models.DedupeResponse, error) {
	logCtx := slog.With("inputDir", req.InputDir, "outputDir", req.OutputDir, "dryRun", req.DryRun)
	logCtx.Info("Starting deduplication.")

	if err := requireDir(req.InputDir, "--input"); err != nil {
		return nil, err
	}

	// --- 1. Scan and group by identity ---
	records, err := ScanDocuments(req.InputDir, s.config.SkipDirs)
	if err != nil {
		return nil, err
	}
	groups := models.GroupByIdentity(records)
	logCtx.Info("Grouped documents by identity.", "documents", len(records), "groups", len(groups))

	// --- 2. Resolve groups and copy keepers ---
	// Each group is resolved by exactly one worker, so record mutation stays
	// race-free without locking.
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(req.Workers)
	copied := make([]bool, len(groups))
	for i, group := range groups {
		i, group := i, group
		eg.Go(func() error {
			winner := selectRetained(group)
			winner.Retained = true
			for _, m := range group.Members {
				if m == winner {
					continue
				}
				m.SupersededReason = supersedeReason(m, winner)
				rep.AddDecision(m.Path, "supersede", m.SupersededReason, winner.Path)
			}

			dest := filepath.Join(req.OutputDir, winner.BaseName+"."+string(winner.Format))
			rep.AddDecision(winner.Path, "retain", retainReason(group, winner), dest)
			if req.DryRun {
				return gctx.Err()
			}

			dest, skip := resolveDestination(dest, req.OnExists)
			if skip {
				rep.AddDecision(winner.Path, "skip", "output already exists", dest)
				return gctx.Err()
			}
			if err := copyFile(winner.Path, dest); err != nil {
				rep.AddError(winner.Path, err)
				slog.Error("Failed to copy retained document.", "path", winner.Path, "error", err)
				return gctx.Err()
			}
			copied[i] = true
			return gctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("deduplication interrupted: %w", err)
	}

	// --- 3. Summarize ---
	resp := &models.DedupeResponse{Groups: len(groups)}
	for _, g := range groups {
		resp.Retained++
		resp.Superseded += len(g.Members) - 1
	}
	for _, c := range copied {
		if c {
			resp.Copied++
		}
	}
	logCtx.Info("Deduplication complete.",
		"groups", resp.Groups,
		"retained", resp.Retained,
		"superseded", resp.Superseded,
		"copied", resp.Copied,
	)
	return resp, nil
}

// selectRetained picks the group member to keep: highest format priority
// first, then latest modification time, then lexicographically smallest
// path. The result is deterministic for any member order.
func selectRetained(group *models.IdentityGroup) *models.DocumentRecord {
	var best *models.DocumentRecord
	for _, m := range group.Members {
		if best == nil {
			best = m
			continue
		}
		switch {
		case m.Format.Priority() > best.Format.Priority():
			best = m
		case m.Format.Priority() < best.Format.Priority():
		case m.ModTime.After(best.ModTime):
			best = m
		case m.ModTime.Equal(best.ModTime) && m.Path < best.Path:
			best = m
		}
	}
	return best
}

func retainReason(group *models.IdentityGroup, winner *models.DocumentRecord) string {
	if len(group.Members) == 1 {
		return "only member of its identity group"
	}
	return fmt.Sprintf("preferred among %d duplicates (format %s)", len(group.Members), winner.Format)
}

func supersedeReason(loser, winner *models.DocumentRecord) string {
	if loser.Format != winner.Format {
		return fmt.Sprintf("higher-priority format present (%s)", winner.Format)
	}
	if loser.ModTime.Before(winner.ModTime) {
		return "newer copy retained"
	}
	return "tie broken by path order"
}
