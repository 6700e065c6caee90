package extract

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDocx writes a minimal OOXML package whose word/document.xml is the
// given XML payload.
func writeDocx(t *testing.T, path, documentXML string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	entry, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = entry.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Introduction</w:t></w:r></w:p>
    <w:p><w:r><w:t xml:space="preserve">This document describes the </w:t></w:r><w:r><w:t>billing flow.</w:t></w:r></w:p>
    <w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>Item one</w:t></w:r></w:p>
    <w:p><w:pPr><w:numPr><w:ilvl w:val="1"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>Nested item</w:t></w:r></w:p>
    <w:tbl>
      <w:tr><w:tc><w:p><w:r><w:t>Field</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Value</w:t></w:r></w:p></w:tc></w:tr>
      <w:tr><w:tc><w:p><w:r><w:t>Owner</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Finance</w:t></w:r></w:p></w:tc></w:tr>
    </w:tbl>
    <w:p><w:r><w:br w:type="page"/></w:r></w:p>
    <w:p><w:r><w:t>Second page text.</w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestDocxFirstPageText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.docx")
	writeDocx(t, path, sampleDocumentXML)

	e := &docxExtractor{}
	text, err := e.FirstPageText(context.Background(), path)
	require.NoError(t, err)

	want := "Introduction\nThis document describes the billing flow.\nItem one\nNested item"
	assert.Equal(t, want, text)
	assert.NotContains(t, text, "Second page text.")
	assert.NotContains(t, text, "Finance", "table content must stay out of first-page text")
}

func TestDocxFirstPageTextStopsAtRenderedBreak(t *testing.T) {
	xml := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
		<w:p><w:r><w:t>Cover page.</w:t></w:r></w:p>
		<w:p><w:r><w:lastRenderedPageBreak/><w:t>Start of page two.</w:t></w:r></w:p>
		<w:p><w:r><w:t>Deep in page two.</w:t></w:r></w:p>
	</w:body></w:document>`
	path := filepath.Join(t.TempDir(), "rendered.docx")
	writeDocx(t, path, xml)

	e := &docxExtractor{}
	text, err := e.FirstPageText(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, text, "Cover page.")
	assert.NotContains(t, text, "Deep in page two.")
}

func TestDocxFirstPageTextCharLimit(t *testing.T) {
	long := strings.Repeat("a", firstPageCharLimit+100)
	xml := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
		<w:p><w:r><w:t>` + long + `</w:t></w:r></w:p>
		<w:p><w:r><w:t>After the cap.</w:t></w:r></w:p>
	</w:body></w:document>`
	path := filepath.Join(t.TempDir(), "long.docx")
	writeDocx(t, path, xml)

	e := &docxExtractor{}
	text, err := e.FirstPageText(context.Background(), path)
	require.NoError(t, err)
	assert.NotContains(t, text, "After the cap.")
}

func TestDocxMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.docx")
	writeDocx(t, path, sampleDocumentXML)

	e := &docxExtractor{}
	got, err := e.Markdown(context.Background(), path)
	require.NoError(t, err)

	want := "# Introduction\n\n" +
		"This document describes the billing flow.\n\n" +
		"- Item one\n" +
		"  - Nested item\n" +
		"| Field | Value |\n| --- | --- |\n| Owner | Finance |\n\n" +
		"Second page text.\n\n"
	assert.Equal(t, want, got)
}

func TestDocxMarkdownTitleStyle(t *testing.T) {
	xml := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
		<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Project Charter</w:t></w:r></w:p>
	</w:body></w:document>`
	path := filepath.Join(t.TempDir(), "title.docx")
	writeDocx(t, path, xml)

	e := &docxExtractor{}
	got, err := e.Markdown(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "# Project Charter\n\n", got)
}

func TestDocxPackageErrors(t *testing.T) {
	dir := t.TempDir()
	e := &docxExtractor{}

	notZip := filepath.Join(dir, "broken.docx")
	require.NoError(t, os.WriteFile(notZip, []byte("plain text, not a zip"), 0o644))
	_, err := e.FirstPageText(context.Background(), notZip)
	require.ErrorContains(t, err, "failed to open docx package")

	empty := filepath.Join(dir, "empty.docx")
	f, err := os.Create(empty)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	_, err = zw.Create("word/styles.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = e.Markdown(context.Background(), empty)
	require.ErrorContains(t, err, "no word/document.xml")
}

func TestRenderTable(t *testing.T) {
	t.Run("escapes pipes and pads short rows", func(t *testing.T) {
		got := renderTable([][]string{
			{"Name", "Status"},
			{"a|b", "done"},
			{"solo"},
		})
		want := "| Name | Status |\n" +
			"| --- | --- |\n" +
			`| a\|b | done |` + "\n" +
			"| solo |  |\n"
		assert.Equal(t, want, got)
	})

	t.Run("empty table renders nothing", func(t *testing.T) {
		assert.Equal(t, "", renderTable(nil))
		assert.Equal(t, "", renderTable([][]string{nil}))
	})
}
