package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/Lllllllleong/docpairflow/internal/models"
)

// firstPageCharLimit caps first-page text when a document never renders an
// explicit page break (single-page files, unusual section setups).
const firstPageCharLimit = 12000

var headingStyleRe = regexp.MustCompile(`(?i)^(?:heading|titre)\s*([1-9])$`)

type blockKind int

const (
	blockParagraph blockKind = iota
	blockHeading
	blockListItem
	blockTable
)

// block is one body-level element of a parsed document.
type block struct {
	kind  blockKind
	level int
	text  string
	rows  [][]string
}

// docxExtractor reads OOXML packages directly: a docx file is a zip
// archive whose word/document.xml holds the body.
type docxExtractor struct{}

func (e *docxExtractor) Format() models.Format { return models.FormatDocx }

func (e *docxExtractor) FirstPageText(ctx context.Context, path string) (string, error) {
	data, err := readDocumentXML(path)
	if err != nil {
		return "", err
	}
	blocks, err := parseDocumentXML(data, true)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, b := range blocks {
		if b.kind == blockTable {
			continue
		}
		parts = append(parts, b.text)
	}
	return strings.Join(parts, "\n"), nil
}

func (e *docxExtractor) Markdown(ctx context.Context, path string) (string, error) {
	data, err := readDocumentXML(path)
	if err != nil {
		return "", err
	}
	blocks, err := parseDocumentXML(data, false)
	if err != nil {
		return "", err
	}
	return renderMarkdown(blocks), nil
}

// readDocumentXML opens the OOXML package and returns word/document.xml.
func readDocumentXML(path string) ([]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open docx package: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open document XML: %w", err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to read document XML: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("docx package has no word/document.xml")
}

// parseDocumentXML walks the document body into blocks. With firstPageOnly
// the walk stops at the first explicit or rendered page break, or at the
// character cap, whichever comes first.
func parseDocumentXML(data []byte, firstPageOnly bool) ([]block, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var blocks []block
	charCount := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse document XML: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "p":
			blk, pageBreak, err := parseParagraph(dec)
			if err != nil {
				return nil, err
			}
			if blk != nil {
				blocks = append(blocks, *blk)
				charCount += len(blk.text)
			}
			if firstPageOnly && (pageBreak || charCount >= firstPageCharLimit) {
				return blocks, nil
			}
		case "tbl":
			rows, err := parseTable(dec)
			if err != nil {
				return nil, err
			}
			if len(rows) > 0 {
				blocks = append(blocks, block{kind: blockTable, rows: rows})
			}
		}
	}
	return blocks, nil
}

// parseParagraph consumes tokens until the paragraph closes, returning the
// resulting block (nil for empty paragraphs) and whether the paragraph
// contained a page break.
func parseParagraph(dec *xml.Decoder) (*block, bool, error) {
	var (
		text      strings.Builder
		style     string
		isList    bool
		listLevel int
		pageBreak bool
		inText    bool
		depth     = 1
	)

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, false, fmt.Errorf("failed to parse paragraph: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				depth++
			case "pStyle":
				style = attrValue(t, "val")
			case "numPr":
				isList = true
			case "ilvl":
				if v, err := strconv.Atoi(attrValue(t, "val")); err == nil {
					listLevel = v
				}
			case "t":
				inText = true
			case "br":
				if attrValue(t, "type") == "page" {
					pageBreak = true
				}
			case "lastRenderedPageBreak":
				pageBreak = true
			case "tab":
				text.WriteString("\t")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				depth--
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		}
	}

	content := strings.TrimSpace(text.String())
	if content == "" {
		return nil, pageBreak, nil
	}

	blk := &block{kind: blockParagraph, text: content}
	switch {
	case isList:
		blk.kind = blockListItem
		blk.level = listLevel
	case style != "":
		if m := headingStyleRe.FindStringSubmatch(style); m != nil {
			blk.kind = blockHeading
			blk.level, _ = strconv.Atoi(m[1])
		} else if strings.EqualFold(style, "Title") || strings.EqualFold(style, "Titre") {
			blk.kind = blockHeading
			blk.level = 1
		}
	}
	return blk, pageBreak, nil
}

// parseTable consumes tokens until the table closes, flattening each cell's
// paragraphs into one space-joined string.
func parseTable(dec *xml.Decoder) ([][]string, error) {
	var (
		rows   [][]string
		cell   strings.Builder
		inText bool
		inCell bool
		depth  = 1
	)

	flushCell := func() {
		if !inCell {
			return
		}
		if len(rows) > 0 {
			rows[len(rows)-1] = append(rows[len(rows)-1], strings.TrimSpace(cell.String()))
		}
		cell.Reset()
		inCell = false
	}

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse table: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				depth++
			case "tr":
				if depth == 1 {
					rows = append(rows, nil)
				}
			case "tc":
				if depth == 1 {
					flushCell()
					inCell = true
				}
			case "t":
				inText = true
			case "tab":
				cell.WriteString(" ")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				depth--
			case "tc":
				if depth == 1 {
					flushCell()
				}
			case "t":
				inText = false
			case "p":
				if inCell {
					cell.WriteString(" ")
				}
			}
		case xml.CharData:
			if inText && inCell {
				cell.Write(t)
			}
		}
	}
	return rows, nil
}

func attrValue(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// renderMarkdown turns parsed blocks into markdown text. Headings map to
// #-prefixed lines, list items to dashes, tables to GitHub-flavored pipe
// tables.
func renderMarkdown(blocks []block) string {
	var b strings.Builder
	for _, blk := range blocks {
		switch blk.kind {
		case blockHeading:
			level := blk.level
			if level > 6 {
				level = 6
			}
			b.WriteString(strings.Repeat("#", level))
			b.WriteString(" ")
			b.WriteString(blk.text)
			b.WriteString("\n\n")
		case blockListItem:
			b.WriteString(strings.Repeat("  ", blk.level))
			b.WriteString("- ")
			b.WriteString(blk.text)
			b.WriteString("\n")
		case blockTable:
			b.WriteString(renderTable(blk.rows))
			b.WriteString("\n")
		default:
			b.WriteString(blk.text)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

// renderTable renders rows as a GitHub-flavored pipe table, padding short
// rows so every line has the header's column count.
func renderTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	cols := 0
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(row []string) {
		b.WriteString("|")
		for i := 0; i < cols; i++ {
			value := ""
			if i < len(row) {
				value = strings.ReplaceAll(row[i], "|", `\|`)
			}
			b.WriteString(" ")
			b.WriteString(value)
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[0])
	b.WriteString("|")
	for i := 0; i < cols; i++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows[1:] {
		writeRow(row)
	}
	return b.String()
}
