package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/docpairflow/internal/config"
	"github.com/Lllllllleong/docpairflow/internal/extract"
	"github.com/Lllllllleong/docpairflow/internal/models"
	"github.com/Lllllllleong/docpairflow/internal/report"
)

func newClassifyStage(t *testing.T) *ClassifyStage {
	t.Helper()
	stage, err := NewClassifyStage(config.DefaultConfig(), extract.NewRegistry(nil))
	require.NoError(t, err)
	return stage
}

func TestClassifyCascade(t *testing.T) {
	stage := newClassifyStage(t)

	tests := []struct {
		name     string
		sig      docSignals
		category models.Category
		rule     string
	}{
		{
			name:     "content reference outranks every filename signal",
			sig:      docSignals{filename: "acme brd v2.docx", contentRef: true, filenameRef: true},
			category: models.CategoryScoping,
			rule:     "content-reference",
		},
		{
			name:     "filename keyword",
			sig:      docSignals{filename: "acme brd v2.docx"},
			category: models.CategoryBRD,
			rule:     "filename-keyword",
		},
		{
			name:     "filename phrase",
			sig:      docSignals{filename: "acme business requirements document.docx"},
			category: models.CategoryBRD,
			rule:     "filename-phrase",
		},
		{
			name:     "standalone short token",
			sig:      docSignals{filename: "acme br 2024.docx"},
			category: models.CategoryBRD,
			rule:     "filename-short-token",
		},
		{
			name:     "short token suppressed by content reference",
			sig:      docSignals{filename: "acme br 2024.docx", contentRef: true},
			category: models.CategoryScoping,
			rule:     "content-reference",
		},
		{
			name:     "embedded token does not fire",
			sig:      docSignals{filename: "brand guidelines.docx"},
			category: models.CategoryOther,
			rule:     "default",
		},
		{
			name:     "filename reference",
			sig:      docSignals{filename: "caps-2024-17 proposal.docx", filenameRef: true},
			category: models.CategoryScoping,
			rule:     "filename-reference",
		},
		{
			name:     "content phrase",
			sig:      docSignals{firstPage: "this business requirements document covers exports"},
			category: models.CategoryBRD,
			rule:     "content-phrase",
		},
		{
			name:     "no signals",
			sig:      docSignals{filename: "meeting notes.docx", firstPage: "agenda for monday"},
			category: models.CategoryOther,
			rule:     "default",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, rule := stage.classify(tt.sig)
			assert.Equal(t, tt.category, category)
			assert.Equal(t, tt.rule, rule)
		})
	}
}

func TestClassifyBuildSignals(t *testing.T) {
	stage := newClassifyStage(t)
	path := filepath.Join(t.TempDir(), "Équipe BRD.docx")
	writeTestDocx(t, path, "Scope for CAPS-2024-17 delivery.")

	rec, ok := models.NewDocumentRecord(path, time.Now())
	require.True(t, ok)

	sig, err := stage.buildSignals(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "equipe brd.docx", sig.filename, "filename folds diacritics and lowercases")
	assert.Contains(t, sig.firstPage, "caps-2024-17")
	assert.True(t, sig.contentRef)
	assert.False(t, sig.filenameRef)
}

func TestClassifyProcess(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "classified")

	writeTestDocx(t, filepath.Join(in, "Acme BRD v2.docx"), "Requirements body.")
	writeTestDocx(t, filepath.Join(in, "Proposal.docx"), "Scope for CAPS-2024-17 delivery.")
	writeTestDocx(t, filepath.Join(in, "Meeting notes.docx"), "Agenda for Monday.")
	writeRaw(t, filepath.Join(in, "broken.docx"), "not a zip archive")

	stage := newClassifyStage(t)
	rep := report.New("classify", false)
	resp, err := stage.Process(context.Background(), models.ClassifyRequest{
		InputDir:  in,
		OutputDir: out,
		OnExists:  models.OnExistsSkip,
		Workers:   2,
	}, rep)
	require.NoError(t, err)

	assert.Equal(t, map[models.Category]int{
		models.CategoryBRD:     1,
		models.CategoryScoping: 1,
		models.CategoryOther:   2,
	}, resp.Classified)
	assert.Equal(t, 1, resp.Errors, "unreadable documents degrade, not abort")
	assert.Equal(t, 1, rep.ErrorCount())

	for _, want := range []string{
		filepath.Join(out, "brd", "Acme BRD v2.docx"),
		filepath.Join(out, "scoping", "Proposal.docx"),
		filepath.Join(out, "other", "Meeting notes.docx"),
		filepath.Join(out, "other", "broken.docx"),
	} {
		_, err := os.Stat(want)
		assert.NoError(t, err, want)
	}
}

func TestClassifyDryRun(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "classified")
	writeTestDocx(t, filepath.Join(in, "Acme BRD.docx"), "Requirements body.")

	stage := newClassifyStage(t)
	rep := report.New("classify", true)
	resp, err := stage.Process(context.Background(), models.ClassifyRequest{
		InputDir:  in,
		OutputDir: out,
		DryRun:    true,
		OnExists:  models.OnExistsSkip,
		Workers:   2,
	}, rep)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Classified[models.CategoryBRD])
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err), "dry run must not copy")
}
