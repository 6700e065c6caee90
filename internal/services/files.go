package services

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Lllllllleong/docpairflow/internal/models"
)

// ScanDocuments walks root collecting supported documents, skipping the
// configured directory names. Results are sorted by path so every stage
// sees a deterministic input order.
func ScanDocuments(root string, skipDirs []string) ([]*models.DocumentRecord, error) {
	skip := make(map[string]bool, len(skipDirs))
	for _, name := range skipDirs {
		skip[name] = true
	}

	var records []*models.DocumentRecord
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skip[d.Name()] && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if rec, ok := models.NewDocumentRecord(path, info.ModTime()); ok {
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	return records, nil
}

// resolveDestination applies the on-exists policy to a planned output path.
// The second return value is true when the write should be skipped.
func resolveDestination(dst string, policy models.OnExists) (string, bool) {
	if _, err := os.Stat(dst); err != nil {
		return dst, false
	}
	switch policy {
	case models.OnExistsOverwrite:
		return dst, false
	case models.OnExistsSuffix:
		return suffixedPath(dst), false
	default:
		return dst, true
	}
}

// suffixedPath appends a timestamp collision suffix before the extension.
func suffixedPath(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	return stem + time.Now().UTC().Format("_20060102_150405") + ext
}

// copyFile copies src to dst preserving the source's modification time, so
// later stages still see the original document timestamps.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat source: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy contents: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to finalize copy: %w", err)
	}

	if err := os.Chtimes(dst, time.Now(), info.ModTime()); err != nil {
		return fmt.Errorf("failed to preserve modification time: %w", err)
	}
	return nil
}

// writeFileAtomic writes data via a temp file in the destination directory
// and renames it into place.
func writeFileAtomic(dst string, data []byte) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to move temp file into place: %w", err)
	}
	return nil
}

// requireDir fails with a configuration error when the directory is missing.
func requireDir(path, flag string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("required directory %s does not exist (%s): %w", path, flag, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory (%s)", path, flag)
	}
	return nil
}
