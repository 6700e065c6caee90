package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/docpairflow/internal/config"
	"github.com/Lllllllleong/docpairflow/internal/extract"
	"github.com/Lllllllleong/docpairflow/internal/models"
	"github.com/Lllllllleong/docpairflow/internal/refcode"
	"github.com/Lllllllleong/docpairflow/internal/report"
)

// docSignals are the folded, lowercased inputs the rule cascade reads. They
// are computed once per document so every rule sees the same view.
type docSignals struct {
	filename    string
	firstPage   string
	filenameRef bool
	contentRef  bool
}

// rule is one predicate of the ordered cascade. The first matching rule
// decides the category; later rules are never evaluated.
type rule struct {
	name     string
	category models.Category
	matches  func(sig docSignals) bool
}

// ClassifyConfig carries the classifier's signals and walk settings.
type ClassifyConfig struct {
	BRD      config.CategorySignals
	SkipDirs []string
}

// ClassifyStage assigns each document to exactly one category and copies it
// into the matching category directory. The cascade order is load-bearing:
// a content reference match outranks every filename signal, and the short
// token rule only fires when the content carries no reference match.
type ClassifyStage struct {
	config    ClassifyConfig
	extractor *refcode.Extractor
	registry  *extract.Registry
	rules     []rule
}

func NewClassifyStage(cfg *config.Config, registry *extract.Registry) (*ClassifyStage, error) {
	extractor, err := refcode.NewExtractor(cfg.Patterns.Clients, cfg.Patterns.Prefixes, cfg.Patterns.StageMarkers)
	if err != nil {
		return nil, fmt.Errorf("failed to build reference extractor: %w", err)
	}

	s := &ClassifyStage{
		config:    ClassifyConfig{BRD: cfg.Categories.BRD, SkipDirs: cfg.SkipDirs},
		extractor: extractor,
		registry:  registry,
	}
	if err := s.buildRules(); err != nil {
		return nil, err
	}
	slog.Info("Classifier initialized.", "rules", len(s.rules))
	return s, nil
}

func (s *ClassifyStage) buildRules() error {
	keyword := strings.ToLower(s.config.BRD.Keyword)
	phrases := make([]string, 0, len(s.config.BRD.Phrases))
	for _, p := range s.config.BRD.Phrases {
		if p = strings.ToLower(refcode.Fold(p)); p != "" {
			phrases = append(phrases, p)
		}
	}

	var shortTokenRe *regexp.Regexp
	if token := s.config.BRD.ShortToken; token != "" {
		// The short token must stand alone, otherwise it would also match
		// inside unrelated words.
		re, err := regexp.Compile(`(?i)(?:^|[^a-z0-9])` + regexp.QuoteMeta(token) + `(?:[^a-z0-9]|$)`)
		if err != nil {
			return fmt.Errorf("failed to compile short token pattern: %w", err)
		}
		shortTokenRe = re
	}

	containsAnyPhrase := func(text string) bool {
		for _, p := range phrases {
			if strings.Contains(text, p) {
				return true
			}
		}
		return false
	}

	s.rules = []rule{
		{
			name:     "content-reference",
			category: models.CategoryScoping,
			matches:  func(sig docSignals) bool { return sig.contentRef },
		},
		{
			name:     "filename-keyword",
			category: models.CategoryBRD,
			matches: func(sig docSignals) bool {
				return keyword != "" && strings.Contains(sig.filename, keyword)
			},
		},
		{
			name:     "filename-phrase",
			category: models.CategoryBRD,
			matches:  func(sig docSignals) bool { return containsAnyPhrase(sig.filename) },
		},
		{
			name:     "filename-short-token",
			category: models.CategoryBRD,
			matches: func(sig docSignals) bool {
				return shortTokenRe != nil && shortTokenRe.MatchString(sig.filename) && !sig.contentRef
			},
		},
		{
			name:     "filename-reference",
			category: models.CategoryScoping,
			matches:  func(sig docSignals) bool { return sig.filenameRef },
		},
		{
			name:     "content-phrase",
			category: models.CategoryBRD,
			matches:  func(sig docSignals) bool { return containsAnyPhrase(sig.firstPage) },
		},
	}
	return nil
}

// classify returns the first matching rule's category and the rule's name
// for the report.
func (s *ClassifyStage) classify(sig docSignals) (models.Category, string) {
	for _, r := range s.rules {
		if r.matches(sig) {
			return r.category, r.name
		}
	}
	return models.CategoryOther, "default"
}

// buildSignals normalizes the filename and first-page text for the cascade.
func (s *ClassifyStage) buildSignals(ctx context.Context, doc *models.DocumentRecord) (docSignals, error) {
	filename := strings.ToLower(refcode.Fold(filepath.Base(doc.Path)))

	text, err := s.registry.FirstPageText(ctx, doc.Path)
	if err != nil {
		return docSignals{}, fmt.Errorf("failed to read first page: %w", err)
	}
	firstPage := strings.ToLower(refcode.Fold(text))

	return docSignals{
		filename:    filename,
		firstPage:   firstPage,
		filenameRef: s.extractor.Matches(filename),
		contentRef:  s.extractor.Matches(firstPage),
	}, nil
}

func (s *ClassifyStage) Process(ctx context.Context, req models.ClassifyRequest, rep *report.RunReport) (*models.ClassifyResponse, error) {
	logCtx := slog.With("inputDir", req.InputDir, "outputDir", req.OutputDir, "dryRun", req.DryRun)
	logCtx.Info("Starting classification.")

	if err := requireDir(req.InputDir, "--input"); err != nil {
		return nil, err
	}

	// --- 1. Scan documents ---
	records, err := ScanDocuments(req.InputDir, s.config.SkipDirs)
	if err != nil {
		return nil, err
	}
	logCtx.Info("Found documents to classify.", "count", len(records))

	// --- 2. Classify concurrently ---
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(req.Workers)
	degraded := make([]bool, len(records))
	for i, doc := range records {
		i, doc := i, doc
		eg.Go(func() error {
			sig, err := s.buildSignals(gctx, doc)
			if err != nil {
				// Unreadable documents degrade to "other" instead of
				// aborting the run.
				doc.Category = models.CategoryOther
				degraded[i] = true
				rep.AddError(doc.Path, err)
				rep.AddDecision(doc.Path, "classify", "degraded: "+err.Error(),
					filepath.Join(req.OutputDir, string(models.CategoryOther), filepath.Base(doc.Path)))
				slog.Warn("Classification degraded to other.", "path", doc.Path, "error", err)
				return gctx.Err()
			}
			category, ruleName := s.classify(sig)
			doc.Category = category
			rep.AddDecision(doc.Path, "classify", ruleName,
				filepath.Join(req.OutputDir, string(category), filepath.Base(doc.Path)))
			return gctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("classification interrupted: %w", err)
	}

	// --- 3. Bucket and copy ---
	buckets := make(models.CategoryBucket)
	for _, doc := range records {
		buckets.Add(doc.Category, doc)
	}
	resp := &models.ClassifyResponse{Classified: make(map[models.Category]int)}
	for category, docs := range buckets {
		resp.Classified[category] = len(docs)
	}
	for _, d := range degraded {
		if d {
			resp.Errors++
		}
	}

	if !req.DryRun {
		if err := s.copyBuckets(ctx, req, buckets, rep); err != nil {
			return nil, fmt.Errorf("classification interrupted: %w", err)
		}
	}

	logCtx.Info("Classification complete.", "classified", resp.Classified, "errors", resp.Errors)
	return resp, nil
}

// copyBuckets copies every record into its category directory, honoring the
// collision policy. Copy failures are per-document errors.
func (s *ClassifyStage) copyBuckets(ctx context.Context, req models.ClassifyRequest, buckets models.CategoryBucket, rep *report.RunReport) error {
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(req.Workers)
	for category, docs := range buckets {
		for _, doc := range docs {
			category, doc := category, doc
			eg.Go(func() error {
				dest := filepath.Join(req.OutputDir, string(category), filepath.Base(doc.Path))
				dest, skip := resolveDestination(dest, req.OnExists)
				if skip {
					rep.AddDecision(doc.Path, "skip", "output already exists", dest)
					return gctx.Err()
				}
				if err := copyFile(doc.Path, dest); err != nil {
					rep.AddError(doc.Path, err)
					slog.Error("Failed to copy classified document.", "path", doc.Path, "error", err)
				}
				return gctx.Err()
			})
		}
	}
	return eg.Wait()
}
