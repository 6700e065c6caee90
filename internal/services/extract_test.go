package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/docpairflow/internal/config"
	"github.com/Lllllllleong/docpairflow/internal/extract"
	"github.com/Lllllllleong/docpairflow/internal/models"
	"github.com/Lllllllleong/docpairflow/internal/report"
)

func newExtractStage(t *testing.T) *ExtractStage {
	t.Helper()
	return NewExtractStage(config.DefaultConfig(), extract.NewRegistry(nil))
}

func TestExtractProcess(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "markdown")

	writeTestDocx(t, filepath.Join(in, "brd", "Spec.docx"), "Requirements body text.")
	writeRaw(t, filepath.Join(in, "other", "broken.docx"), "not a zip")

	stage := newExtractStage(t)
	rep := report.New("extract", false)
	resp, err := stage.Process(context.Background(), models.ExtractRequest{
		InputDir:  in,
		OutputDir: out,
		OnExists:  models.OnExistsSkip,
		Workers:   2,
	}, rep)
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Planned)
	assert.Equal(t, 1, resp.Extracted)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, 1, rep.ErrorCount())

	data, err := os.ReadFile(filepath.Join(out, "brd", "Spec.md"))
	require.NoError(t, err, "markdown tree mirrors the input layout")
	assert.Contains(t, string(data), "Requirements body text.")
}

func TestExtractEmptyDocumentFails(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "markdown")
	writeTestDocx(t, filepath.Join(in, "empty.docx"))

	stage := newExtractStage(t)
	rep := report.New("extract", false)
	resp, err := stage.Process(context.Background(), models.ExtractRequest{
		InputDir:  in,
		OutputDir: out,
		OnExists:  models.OnExistsSkip,
		Workers:   2,
	}, rep)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Failed)
	require.Len(t, rep.Errors, 1)
	assert.Contains(t, rep.Errors[0].Message, "no text")
}

func TestExtractSkipsExisting(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "markdown")
	writeTestDocx(t, filepath.Join(in, "brd", "Spec.docx"), "Fresh content.")
	writeRaw(t, filepath.Join(out, "brd", "Spec.md"), "previous run")

	stage := newExtractStage(t)
	rep := report.New("extract", false)
	resp, err := stage.Process(context.Background(), models.ExtractRequest{
		InputDir:  in,
		OutputDir: out,
		OnExists:  models.OnExistsSkip,
		Workers:   2,
	}, rep)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Skipped)
	data, err := os.ReadFile(filepath.Join(out, "brd", "Spec.md"))
	require.NoError(t, err)
	assert.Equal(t, "previous run", string(data))
}

func TestExtractDryRun(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "markdown")
	writeTestDocx(t, filepath.Join(in, "brd", "Spec.docx"), "Body.")

	stage := newExtractStage(t)
	rep := report.New("extract", true)
	resp, err := stage.Process(context.Background(), models.ExtractRequest{
		InputDir:  in,
		OutputDir: out,
		DryRun:    true,
		OnExists:  models.OnExistsSkip,
		Workers:   2,
	}, rep)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Planned)
	assert.Equal(t, 0, resp.Extracted)
	require.Len(t, rep.Decisions, 1)
	assert.Equal(t, filepath.Join(out, "brd", "Spec.md"), rep.Decisions[0].Destination)

	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err), "dry run must not write")
}
