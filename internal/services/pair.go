package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Lllllllleong/docpairflow/internal/config"
	"github.com/Lllllllleong/docpairflow/internal/dataset"
	"github.com/Lllllllleong/docpairflow/internal/extract"
	"github.com/Lllllllleong/docpairflow/internal/gcs"
	"github.com/Lllllllleong/docpairflow/internal/models"
	"github.com/Lllllllleong/docpairflow/internal/refcode"
	"github.com/Lllllllleong/docpairflow/internal/report"
)

// PairConfig carries the pairing stage's join settings.
type PairConfig struct {
	SourceCategory models.Category
	TargetCategory models.Category
	SkipDirs       []string
}

// pairCandidate is one source/target match before its markdown is loaded.
type pairCandidate struct {
	source *models.DocumentRecord
	target *models.DocumentRecord
	kind   models.MatchKind
}

// PairStage joins two classified categories by reference code and emits the
// training and validation JSONL dataset files. Codes with members on only
// one side are orphans: they yield zero pairs and one report entry, never a
// silent drop.
type PairStage struct {
	config    PairConfig
	extractor *refcode.Extractor
	registry  *extract.Registry
}

func NewPairStage(cfg *config.Config, registry *extract.Registry) (*PairStage, error) {
	extractor, err := refcode.NewExtractor(cfg.Patterns.Clients, cfg.Patterns.Prefixes, cfg.Patterns.StageMarkers)
	if err != nil {
		return nil, fmt.Errorf("failed to build reference extractor: %w", err)
	}
	source, err := models.ParseCategory(cfg.Pairing.SourceCategory)
	if err != nil {
		return nil, fmt.Errorf("pairing source: %w", err)
	}
	target, err := models.ParseCategory(cfg.Pairing.TargetCategory)
	if err != nil {
		return nil, fmt.Errorf("pairing target: %w", err)
	}

	return &PairStage{
		config: PairConfig{
			SourceCategory: source,
			TargetCategory: target,
			SkipDirs:       cfg.SkipDirs,
		},
		extractor: extractor,
		registry:  registry,
	}, nil
}

func (s *PairStage) Process(ctx context.Context, req models.PairRequest, rep *report.RunReport) (*models.PairResponse, error) {
	logCtx := slog.With(
		"classifiedDir", req.ClassifiedDir,
		"markdownDir", req.MarkdownDir,
		"strategy", string(req.Strategy),
		"dryRun", req.DryRun,
	)
	logCtx.Info("Starting pairing.")

	// --- 1. Collect both sides ---
	sourceDocs, err := s.sideDocuments(req.ClassifiedDir, s.config.SourceCategory)
	if err != nil {
		return nil, err
	}
	targetDocs, err := s.sideDocuments(req.ClassifiedDir, s.config.TargetCategory)
	if err != nil {
		return nil, err
	}
	logCtx.Info("Collected documents.", "source", len(sourceDocs), "target", len(targetDocs))

	// --- 2. Assign reference codes and join ---
	groups, unmatched := s.joinByReference(ctx, sourceDocs, targetDocs, rep)

	// --- 3. Apply the pairing strategy ---
	var candidates []pairCandidate
	orphans := 0
	for _, g := range groups {
		if g.Orphaned() {
			orphans++
			s.reportOrphan(g, rep)
			continue
		}
		pairs, n := s.pairGroup(g, req.Strategy, rep)
		candidates = append(candidates, pairs...)
		unmatched += n
	}

	// --- 4. Load markdown and build records ---
	records := s.buildRecords(req, candidates, rep)

	// --- 5. Split deterministically ---
	dataset.SortRecords(records)
	train, validation := dataset.AssignSplits(records, req.TrainRatio)

	resp := &models.PairResponse{
		Codes:      len(groups),
		Pairs:      len(records),
		Train:      train,
		Validation: validation,
		Unmatched:  unmatched,
		Orphans:    orphans,
	}

	if req.DryRun {
		logCtx.Info("Dry run complete. No files written.", "pairs", resp.Pairs)
		return resp, nil
	}

	// --- 6. Write dataset files ---
	resp.TrainPath, err = s.writeSplit(records, models.SplitTrain,
		filepath.Join(req.OutputDir, dataset.TrainFileName), req.OnExists, rep)
	if err != nil {
		return nil, err
	}
	resp.ValidationPath, err = s.writeSplit(records, models.SplitValidation,
		filepath.Join(req.OutputDir, dataset.ValidationFileName), req.OnExists, rep)
	if err != nil {
		return nil, err
	}

	// --- 7. Publish ---
	if req.PublishURL != "" {
		if err := s.publish(ctx, req, resp, rep); err != nil {
			return nil, err
		}
	}

	logCtx.Info("Pairing complete.",
		"codes", resp.Codes,
		"pairs", resp.Pairs,
		"train", resp.Train,
		"validation", resp.Validation,
		"unmatched", resp.Unmatched,
		"orphans", resp.Orphans,
	)
	return resp, nil
}

// sideDocuments loads one category's classified documents. A missing
// category directory is a configuration error: pairing needs both sides.
func (s *PairStage) sideDocuments(classifiedDir string, category models.Category) ([]*models.DocumentRecord, error) {
	dir := filepath.Join(classifiedDir, string(category))
	if err := requireDir(dir, "--classified"); err != nil {
		return nil, err
	}
	return ScanDocuments(dir, s.config.SkipDirs)
}

// joinByReference assigns each document its reference code and builds the
// code-keyed join. Documents with no extractable code are reported as
// unmatched and excluded; groups come back sorted by code.
func (s *PairStage) joinByReference(ctx context.Context, sourceDocs, targetDocs []*models.DocumentRecord, rep *report.RunReport) ([]*models.ReferenceGroup, int) {
	index := make(map[string]*models.ReferenceGroup)
	var groups []*models.ReferenceGroup
	unmatched := 0

	assign := func(docs []*models.DocumentRecord, source bool) {
		for _, doc := range docs {
			ref := s.reference(ctx, doc)
			if ref == nil {
				unmatched++
				rep.AddUnmatched(doc.Path, "", "", "no reference code")
				continue
			}
			doc.RefCode = ref.Code
			doc.RefVersion = ref.Version

			g, ok := index[ref.Code]
			if !ok {
				g = &models.ReferenceGroup{Code: ref.Code}
				index[ref.Code] = g
				groups = append(groups, g)
			}
			if source {
				g.Source = append(g.Source, doc)
			} else {
				g.Target = append(g.Target, doc)
			}
		}
	}
	assign(sourceDocs, true)
	assign(targetDocs, false)

	sort.Slice(groups, func(i, j int) bool { return groups[i].Code < groups[j].Code })
	return groups, unmatched
}

// reference extracts a document's code, preferring the filename and falling
// back to the first page of content.
func (s *PairStage) reference(ctx context.Context, doc *models.DocumentRecord) *refcode.Reference {
	if ref := s.extractor.Extract(refcode.Fold(filepath.Base(doc.Path))); ref != nil {
		return ref
	}
	text, err := s.registry.FirstPageText(ctx, doc.Path)
	if err != nil {
		return nil
	}
	return s.extractor.Extract(refcode.Fold(text))
}

func (s *PairStage) reportOrphan(g *models.ReferenceGroup, rep *report.RunReport) {
	category := s.config.SourceCategory
	count := len(g.Source)
	if count == 0 {
		category = s.config.TargetCategory
		count = len(g.Target)
	}
	rep.AddOrphan(g.Code, string(category), count)
	slog.Info("Reference code has members on one side only.",
		"code", g.Code, "category", string(category), "count", count)
}

// pairGroup produces one group's pairs under the selected strategy and the
// number of documents left unmatched by it.
func (s *PairStage) pairGroup(g *models.ReferenceGroup, strategy models.Strategy, rep *report.RunReport) ([]pairCandidate, int) {
	switch strategy {
	case models.StrategyAllCombinations:
		return pairAllCombinations(g), 0
	case models.StrategyLatestOnly:
		return []pairCandidate{{
			source: latestOf(g.Source),
			target: latestOf(g.Target),
			kind:   models.MatchLatest,
		}}, 0
	case models.StrategyFirstOnly:
		return []pairCandidate{{
			source: g.Source[0],
			target: g.Target[0],
			kind:   models.MatchFirst,
		}}, 0
	default:
		return pairVersionMatch(g, rep)
	}
}

// pairVersionMatch pairs documents whose version tokens are equal. A
// document whose version has no counterpart on the other side is reported
// as unmatched for its code.
func pairVersionMatch(g *models.ReferenceGroup, rep *report.RunReport) ([]pairCandidate, int) {
	targetsByVersion := make(map[string][]*models.DocumentRecord)
	for _, t := range g.Target {
		targetsByVersion[t.RefVersion] = append(targetsByVersion[t.RefVersion], t)
	}

	matched := make(map[*models.DocumentRecord]bool)
	var pairs []pairCandidate
	unmatched := 0
	for _, src := range g.Source {
		counterparts := targetsByVersion[src.RefVersion]
		if len(counterparts) == 0 {
			unmatched++
			rep.AddUnmatched(src.Path, g.Code, src.RefVersion, "no version counterpart in target category")
			continue
		}
		kind := models.MatchVersionEqual
		if src.RefVersion == "" {
			kind = models.MatchUnversioned
		}
		for _, tgt := range counterparts {
			pairs = append(pairs, pairCandidate{source: src, target: tgt, kind: kind})
			matched[tgt] = true
		}
	}
	for _, tgt := range g.Target {
		if !matched[tgt] {
			unmatched++
			rep.AddUnmatched(tgt.Path, g.Code, tgt.RefVersion, "no version counterpart in source category")
		}
	}
	return pairs, unmatched
}

func pairAllCombinations(g *models.ReferenceGroup) []pairCandidate {
	pairs := make([]pairCandidate, 0, len(g.Source)*len(g.Target))
	for _, src := range g.Source {
		for _, tgt := range g.Target {
			pairs = append(pairs, pairCandidate{source: src, target: tgt, kind: models.MatchCartesian})
		}
	}
	return pairs
}

// latestOf returns the most recently modified record, breaking timestamp
// ties by lexicographically smallest path.
func latestOf(docs []*models.DocumentRecord) *models.DocumentRecord {
	best := docs[0]
	for _, d := range docs[1:] {
		if d.ModTime.After(best.ModTime) || (d.ModTime.Equal(best.ModTime) && d.Path < best.Path) {
			best = d
		}
	}
	return best
}

// buildRecords loads the markdown artifacts behind each candidate pair. A
// pair with a missing or unreadable artifact is dropped and recorded.
func (s *PairStage) buildRecords(req models.PairRequest, candidates []pairCandidate, rep *report.RunReport) []models.DatasetRecord {
	type loaded struct {
		text string
		ok   bool
	}
	cache := make(map[string]loaded)
	load := func(doc *models.DocumentRecord, category models.Category) (string, bool) {
		path := markdownArtifact(req.MarkdownDir, category, doc.Path)
		if l, hit := cache[path]; hit {
			return l.text, l.ok
		}
		data, err := os.ReadFile(path)
		if err != nil {
			rep.AddError(doc.Path, fmt.Errorf("failed to read markdown artifact %s: %w", path, err))
			cache[path] = loaded{}
			return "", false
		}
		l := loaded{text: string(data), ok: true}
		cache[path] = l
		return l.text, true
	}

	var records []models.DatasetRecord
	for _, c := range candidates {
		sourceText, ok := load(c.source, s.config.SourceCategory)
		if !ok {
			continue
		}
		targetText, ok := load(c.target, s.config.TargetCategory)
		if !ok {
			continue
		}
		records = append(records, models.DatasetRecord{
			RefCode:       c.source.RefCode,
			SourcePath:    c.source.Path,
			TargetPath:    c.target.Path,
			SourceText:    sourceText,
			TargetText:    targetText,
			SourceVersion: c.source.RefVersion,
			TargetVersion: c.target.RefVersion,
			MatchKind:     c.kind,
			Strategy:      req.Strategy,
		})
		rep.AddDecision(c.source.Path, "pair", string(c.kind), c.target.Path)
	}
	return records
}

// markdownArtifact maps a classified document to its extracted markdown
// path under the markdown tree.
func markdownArtifact(markdownDir string, category models.Category, docPath string) string {
	stem := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
	return filepath.Join(markdownDir, string(category), stem+".md")
}

// writeSplit writes one split's records as JSONL, honoring the collision
// policy for the artifact path.
func (s *PairStage) writeSplit(records []models.DatasetRecord, split models.Split, dest string, policy models.OnExists, rep *report.RunReport) (string, error) {
	subset := dataset.FilterSplit(records, split)
	dest, skip := resolveDestination(dest, policy)
	if skip {
		rep.AddDecision(dest, "skip", "output already exists", "")
		return "", nil
	}
	if err := dataset.WriteJSONL(dest, subset); err != nil {
		return "", err
	}
	rep.AddDecision(dest, "write", fmt.Sprintf("%d records", len(subset)), "")
	slog.Info("Wrote dataset split.", "split", string(split), "path", dest, "records", len(subset))
	return dest, nil
}

// publish uploads the freshly written dataset artifacts.
func (s *PairStage) publish(ctx context.Context, req models.PairRequest, resp *models.PairResponse, rep *report.RunReport) error {
	var paths []string
	if resp.TrainPath != "" {
		paths = append(paths, resp.TrainPath)
	}
	if resp.ValidationPath != "" {
		paths = append(paths, resp.ValidationPath)
	}
	if len(paths) == 0 {
		return nil
	}

	publisher, err := gcs.NewPublisher(ctx, req.PublishURL, req.OnExists)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}
	defer publisher.Close()

	if err := publisher.Publish(ctx, paths); err != nil {
		return fmt.Errorf("failed to publish dataset: %w", err)
	}
	for _, p := range paths {
		rep.AddDecision(p, "publish", "", req.PublishURL)
	}
	return nil
}
