package models

import (
	"testing"
	"time"
)

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path   string
		want   Format
		wantOK bool
	}{
		{"report.docx", FormatDocx, true},
		{"report.DOCX", FormatDocx, true},
		{"legacy.doc", FormatDoc, true},
		{"scan.pdf", FormatPDF, true},
		{"notes.txt", "", false},
		{"archive.docx.zip", "", false},
		{"noextension", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := FormatFromPath(tt.path)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("FormatFromPath(%q) = %q, %v, want %q, %v", tt.path, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFormatPriority(t *testing.T) {
	if !(FormatDocx.Priority() > FormatDoc.Priority() && FormatDoc.Priority() > FormatPDF.Priority()) {
		t.Errorf("format priority order broken: docx=%d doc=%d pdf=%d",
			FormatDocx.Priority(), FormatDoc.Priority(), FormatPDF.Priority())
	}
}

func TestNewDocumentRecord(t *testing.T) {
	now := time.Now()

	rec, ok := NewDocumentRecord("/corpus/Quarterly Report.docx", now)
	if !ok {
		t.Fatal("expected a record for a docx file")
	}
	if rec.BaseName != "Quarterly Report" {
		t.Errorf("expected base name without extension, got %q", rec.BaseName)
	}
	if rec.IdentityKey != "quarterly report" {
		t.Errorf("expected lowercased identity key, got %q", rec.IdentityKey)
	}
	if rec.Format != FormatDocx {
		t.Errorf("expected docx format, got %q", rec.Format)
	}

	if _, ok := NewDocumentRecord("/corpus/notes.txt", now); ok {
		t.Error("expected no record for an unsupported extension")
	}
}

func TestNewDocumentRecord_StripsCollisionSuffix(t *testing.T) {
	now := time.Now()

	rec, ok := NewDocumentRecord("/corpus/report_20240101_120000.docx", now)
	if !ok {
		t.Fatal("expected a record")
	}
	if rec.BaseName != "report" {
		t.Errorf("expected collision suffix stripped, got %q", rec.BaseName)
	}

	// A suffix-free name with digits stays untouched.
	rec, _ = NewDocumentRecord("/corpus/report_2024.docx", now)
	if rec.BaseName != "report_2024" {
		t.Errorf("expected name preserved, got %q", rec.BaseName)
	}
}

func TestGroupByIdentity(t *testing.T) {
	now := time.Now()
	paths := []string{
		"/a/report.docx",
		"/b/Report.pdf",
		"/c/report_20240101_120000.doc",
		"/d/other.docx",
	}

	var records []*DocumentRecord
	for _, p := range paths {
		rec, ok := NewDocumentRecord(p, now)
		if !ok {
			t.Fatalf("expected a record for %s", p)
		}
		records = append(records, rec)
	}

	groups := GroupByIdentity(records)
	if len(groups) != 2 {
		t.Fatalf("expected 2 identity groups, got %d", len(groups))
	}
	// Insertion order: the shared "report" group first.
	if groups[0].Key != "report" || len(groups[0].Members) != 3 {
		t.Errorf("expected report group with 3 members, got %q with %d", groups[0].Key, len(groups[0].Members))
	}
	if groups[1].Key != "other" || len(groups[1].Members) != 1 {
		t.Errorf("expected other group with 1 member, got %q with %d", groups[1].Key, len(groups[1].Members))
	}
}

func TestIdentityGroupRetained(t *testing.T) {
	now := time.Now()
	a, _ := NewDocumentRecord("/a/report.docx", now)
	b, _ := NewDocumentRecord("/b/report.pdf", now)
	g := &IdentityGroup{Key: "report", Members: []*DocumentRecord{a, b}}

	if g.Retained() != nil {
		t.Error("expected nil before dedupe resolves the group")
	}
	a.Retained = true
	if g.Retained() != a {
		t.Error("expected the marked member")
	}
}

func TestCategoryBucket(t *testing.T) {
	now := time.Now()
	a, _ := NewDocumentRecord("/a/one.docx", now)
	b, _ := NewDocumentRecord("/b/two.docx", now)

	buckets := make(CategoryBucket)
	buckets.Add(CategoryBRD, a)
	buckets.Add(CategoryBRD, b)

	if len(buckets[CategoryBRD]) != 2 {
		t.Errorf("expected 2 records in brd bucket, got %d", len(buckets[CategoryBRD]))
	}
	if buckets[CategoryBRD][0] != a {
		t.Error("expected bucket to preserve insertion order")
	}
}

func TestParseOnExists(t *testing.T) {
	for _, valid := range []string{"skip", "overwrite", "suffix", " Skip "} {
		if _, err := ParseOnExists(valid); err != nil {
			t.Errorf("ParseOnExists(%q) unexpected error: %v", valid, err)
		}
	}
	if _, err := ParseOnExists("rename"); err == nil {
		t.Error("expected an error for an unknown policy")
	}
}

func TestParseCategory(t *testing.T) {
	if got, err := ParseCategory("BRD"); err != nil || got != CategoryBRD {
		t.Errorf("ParseCategory(BRD) = %q, %v", got, err)
	}
	if _, err := ParseCategory("unknown"); err == nil {
		t.Error("expected an error for an unknown category")
	}
}
