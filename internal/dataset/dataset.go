// Package dataset orders pair records, assigns deterministic
// train/validation splits, and writes newline-delimited JSON artifacts.
package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/Lllllllleong/docpairflow/internal/models"
)

// TrainFileName and ValidationFileName are the artifact names written into
// the pairing stage's output directory.
const (
	TrainFileName      = "train.jsonl"
	ValidationFileName = "val.jsonl"
)

// SortRecords orders records by reference code, then source path, then
// target path. The split is taken over this ordering, so reruns on
// unchanged input partition identically.
func SortRecords(records []models.DatasetRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.RefCode != b.RefCode {
			return a.RefCode < b.RefCode
		}
		if a.SourcePath != b.SourcePath {
			return a.SourcePath < b.SourcePath
		}
		return a.TargetPath < b.TargetPath
	})
}

// AssignSplits partitions ordered records by ratio: record i goes to
// training while i < floor(n*ratio), validation otherwise. Returns the
// partition sizes.
func AssignSplits(records []models.DatasetRecord, ratio float64) (train, validation int) {
	cut := int(math.Floor(float64(len(records)) * ratio))
	for i := range records {
		if i < cut {
			records[i].Split = models.SplitTrain
			train++
		} else {
			records[i].Split = models.SplitValidation
			validation++
		}
	}
	return train, validation
}

// FilterSplit returns the records assigned to one split, preserving order.
func FilterSplit(records []models.DatasetRecord, split models.Split) []models.DatasetRecord {
	var out []models.DatasetRecord
	for _, r := range records {
		if r.Split == split {
			out = append(out, r)
		}
	}
	return out
}

// WriteJSONL writes records to path, one JSON object per line, creating
// parent directories as needed.
func WriteJSONL(path string, records []models.DatasetRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create dataset directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dataset file: %w", err)
	}

	enc := json.NewEncoder(f)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to encode dataset record: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to finalize dataset file: %w", err)
	}
	return nil
}
