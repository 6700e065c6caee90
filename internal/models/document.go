package models

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Format is one of the closed set of supported document formats.
type Format string

const (
	FormatDocx Format = "docx"
	FormatDoc  Format = "doc"
	FormatPDF  Format = "pdf"
)

// Priority orders formats for deduplication. Higher wins: docx > doc > pdf.
func (f Format) Priority() int {
	switch f {
	case FormatDocx:
		return 3
	case FormatDoc:
		return 2
	case FormatPDF:
		return 1
	default:
		return 0
	}
}

// FormatFromPath derives the format from a file's extension. The second
// return value is false for unsupported extensions.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return FormatDocx, true
	case ".doc":
		return FormatDoc, true
	case ".pdf":
		return FormatPDF, true
	default:
		return "", false
	}
}

// Category is a classification label from the fixed closed set.
type Category string

const (
	CategoryBRD     Category = "brd"
	CategoryScoping Category = "scoping"
	CategoryOther   Category = "other"
)

// ParseCategory validates a category name from configuration or flags.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryBRD:
		return CategoryBRD, nil
	case CategoryScoping:
		return CategoryScoping, nil
	case CategoryOther:
		return CategoryOther, nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

// OnExists is the output collision policy for stages that write files.
type OnExists string

const (
	OnExistsSkip      OnExists = "skip"
	OnExistsOverwrite OnExists = "overwrite"
	OnExistsSuffix    OnExists = "suffix"
)

// ParseOnExists validates an on-exists policy name.
func ParseOnExists(s string) (OnExists, error) {
	switch OnExists(strings.ToLower(strings.TrimSpace(s))) {
	case OnExistsSkip:
		return OnExistsSkip, nil
	case OnExistsOverwrite:
		return OnExistsOverwrite, nil
	case OnExistsSuffix:
		return OnExistsSuffix, nil
	default:
		return "", fmt.Errorf("unknown on-exists policy %q", s)
	}
}

// collisionSuffixRe matches the timestamp suffix appended by the "suffix"
// collision policy, e.g. report_20240101_120000.docx.
var collisionSuffixRe = regexp.MustCompile(`_\d{8}_\d{6}$`)

// DocumentRecord is the main record for one discovered corpus file. It is
// created at discovery and mutated only by assigning the classification and
// extraction fields; dedupe never deletes records, it marks losers
// superseded.
type DocumentRecord struct {
	Path             string    `json:"path"`
	BaseName         string    `json:"baseName"`
	IdentityKey      string    `json:"identityKey"`
	Format           Format    `json:"format"`
	ModTime          time.Time `json:"modTime"`
	RefCode          string    `json:"refCode,omitempty"`
	RefVersion       string    `json:"refVersion,omitempty"`
	Category         Category  `json:"category,omitempty"`
	Retained         bool      `json:"retained"`
	SupersededReason string    `json:"supersededReason,omitempty"`
}

// NewDocumentRecord builds a record for a discovered file. The base name has
// any collision suffix stripped; the identity key lowercases it so format
// variants of one logical document group together. Returns false for
// unsupported formats.
func NewDocumentRecord(path string, modTime time.Time) (*DocumentRecord, bool) {
	format, ok := FormatFromPath(path)
	if !ok {
		return nil, false
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base := collisionSuffixRe.ReplaceAllString(stem, "")
	return &DocumentRecord{
		Path:        path,
		BaseName:    base,
		IdentityKey: strings.ToLower(strings.TrimSpace(base)),
		Format:      format,
		ModTime:     modTime,
	}, true
}

// IdentityGroup is the set of records sharing one identity key. After
// dedupe exactly one member is retained and every other member carries a
// superseded reason.
type IdentityGroup struct {
	Key     string            `json:"key"`
	Members []*DocumentRecord `json:"members"`
}

// Retained returns the group's retained member, or nil before dedupe has
// resolved the group.
func (g *IdentityGroup) Retained() *DocumentRecord {
	for _, m := range g.Members {
		if m.Retained {
			return m
		}
	}
	return nil
}

// GroupByIdentity partitions records into identity groups. Member order
// inside a group follows input order, so callers get deterministic results
// for a fixed input ordering.
func GroupByIdentity(records []*DocumentRecord) []*IdentityGroup {
	index := make(map[string]*IdentityGroup)
	var groups []*IdentityGroup
	for _, r := range records {
		g, ok := index[r.IdentityKey]
		if !ok {
			g = &IdentityGroup{Key: r.IdentityKey}
			index[r.IdentityKey] = g
			groups = append(groups, g)
		}
		g.Members = append(g.Members, r)
	}
	return groups
}

// CategoryBucket maps each category label to the ordered records assigned
// to it. Every retained record belongs to exactly one bucket.
type CategoryBucket map[Category][]*DocumentRecord

// Add appends a record to its category's sequence.
func (b CategoryBucket) Add(c Category, r *DocumentRecord) {
	b[c] = append(b[c], r)
}
