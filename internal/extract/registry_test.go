package extract

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/docpairflow/internal/models"
)

func TestNewRegistryCoversCorpusFormats(t *testing.T) {
	reg := NewRegistry(nil)

	for _, format := range []models.Format{models.FormatDocx, models.FormatDoc, models.FormatPDF} {
		assert.NotNil(t, reg.Get(format), "missing extractor for %s", format)
	}
	assert.Nil(t, reg.Get(models.Format("txt")))
}

func TestRegistryForPath(t *testing.T) {
	reg := NewRegistry(nil)

	e := reg.ForPath("reports/Q3 Review.DOCX")
	require.NotNil(t, e)
	assert.Equal(t, models.FormatDocx, e.Format())

	assert.Nil(t, reg.ForPath("readme.txt"))
	assert.Nil(t, reg.ForPath("no-extension"))
}

func TestRegistryUnsupportedPath(t *testing.T) {
	reg := NewRegistry(nil)

	_, err := reg.FirstPageText(context.Background(), "notes.txt")
	require.ErrorContains(t, err, "no extractor for file type")

	_, err = reg.Markdown(context.Background(), "notes.txt")
	require.ErrorContains(t, err, "no extractor for file type")
}

func TestRegistryMarkdownAppliesCleanup(t *testing.T) {
	xml := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
		<w:p><w:r><w:t>Table of Contents</w:t></w:r></w:p>
		<w:p><w:r><w:t>Introduction ......... 4</w:t></w:r></w:p>
		<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Introduction</w:t></w:r></w:p>
		<w:p><w:r><w:t>Content body.</w:t></w:r></w:p>
	</w:body></w:document>`
	path := filepath.Join(t.TempDir(), "toc.docx")
	writeDocx(t, path, xml)

	reg := NewRegistry(nil)
	got, err := reg.Markdown(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "# Introduction"), "got %q", got)
	assert.Contains(t, got, "Content body.")
	assert.NotContains(t, got, ".........")
}

func TestRegistryRegisterReplaces(t *testing.T) {
	reg := NewRegistry(nil)
	replacement := &docxExtractor{}
	reg.Register(replacement)
	assert.Same(t, replacement, reg.Get(models.FormatDocx))
}
