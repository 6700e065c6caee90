// Package report accumulates per-document decisions, errors, and pairing
// outcomes for one stage run. The report is an explicit object passed
// through the stage, not package state, so stages stay independently
// testable; every run can serialize it as a JSON artifact.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Decision records one action taken (or planned, under dry-run) for one
// document: what happened, why, and where the output went.
type Decision struct {
	Path        string `json:"path"`
	Action      string `json:"action"`
	Reason      string `json:"reason,omitempty"`
	Destination string `json:"destination,omitempty"`
}

// DocError records a per-document failure. These never abort the run.
type DocError struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// Unmatched records a document excluded from pairing, either for lacking a
// reference code or for having no version counterpart.
type Unmatched struct {
	Path    string `json:"path"`
	Code    string `json:"code,omitempty"`
	Version string `json:"version,omitempty"`
	Reason  string `json:"reason"`
}

// Orphan records a reference code with members in only one category.
type Orphan struct {
	Code     string `json:"code"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// RunReport is the full disposition record for one stage run. Add methods
// are safe for concurrent use by stage workers.
type RunReport struct {
	mu sync.Mutex

	RunID      string      `json:"runId"`
	Stage      string      `json:"stage"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt time.Time   `json:"finishedAt,omitzero"`
	DryRun     bool        `json:"dryRun,omitempty"`
	Decisions  []Decision  `json:"decisions"`
	Errors     []DocError  `json:"errors,omitempty"`
	Unmatched  []Unmatched `json:"unmatched,omitempty"`
	Orphans    []Orphan    `json:"orphans,omitempty"`
}

// New creates a report for one stage run with a fresh run ID.
func New(stage string, dryRun bool) *RunReport {
	return &RunReport{
		RunID:     uuid.NewString(),
		Stage:     stage,
		StartedAt: time.Now().UTC(),
		DryRun:    dryRun,
	}
}

// AddDecision appends a decision entry.
func (r *RunReport) AddDecision(path, action, reason, destination string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Decisions = append(r.Decisions, Decision{
		Path:        path,
		Action:      action,
		Reason:      reason,
		Destination: destination,
	})
}

// AddError appends a per-document error entry.
func (r *RunReport) AddError(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, DocError{Path: path, Message: err.Error()})
}

// AddUnmatched appends an unmatched-document entry.
func (r *RunReport) AddUnmatched(path, code, version, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Unmatched = append(r.Unmatched, Unmatched{
		Path:    path,
		Code:    code,
		Version: version,
		Reason:  reason,
	})
}

// AddOrphan appends a one-sided reference code entry.
func (r *RunReport) AddOrphan(code, category string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Orphans = append(r.Orphans, Orphan{Code: code, Category: category, Count: count})
}

// Finish stamps the report's end time.
func (r *RunReport) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FinishedAt = time.Now().UTC()
}

// ErrorCount returns the number of recorded per-document errors.
func (r *RunReport) ErrorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Errors)
}

// WriteFile serializes the report as indented JSON at path, creating parent
// directories as needed.
func (r *RunReport) WriteFile(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return nil
}
