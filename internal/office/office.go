// Package office shells out to a LibreOffice-compatible soffice binary for
// document format conversion. The rest of the system treats conversion as
// an opaque collaborator: path and target format in, converted path or
// error out.
package office

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Lllllllleong/docpairflow/internal/config"
)

// DefaultTimeout bounds a single conversion. Large documents with embedded
// media can take soffice well over a minute.
const DefaultTimeout = 3 * time.Minute

// Find locates the soffice binary: explicit configuration first, then the
// SOFFICE_PATH environment variable, then $PATH under the usual names.
func Find(configured string) (string, error) {
	candidates := []string{
		configured,
		config.GetEnv("SOFFICE_PATH", ""),
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	for _, name := range []string{"soffice", "libreoffice"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("soffice binary not found (set soffice_path in config or SOFFICE_PATH)")
}

// Converter runs soffice headless conversions. Each call uses its own
// scratch profile directory so concurrent conversions do not contend on
// the soffice user profile lock.
type Converter struct {
	binary  string
	timeout time.Duration
}

// NewConverter wraps a located soffice binary.
func NewConverter(binary string) *Converter {
	return &Converter{binary: binary, timeout: DefaultTimeout}
}

// Convert converts the document at path to the target format (e.g. "docx",
// "html"), writing into outDir, and returns the converted file's path. The
// caller owns outDir; Convert only guarantees the output file exists on
// success.
func (c *Converter) Convert(ctx context.Context, path, format, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	profileDir, err := os.MkdirTemp("", "soffice-profile-*")
	if err != nil {
		return "", fmt.Errorf("failed to create soffice profile dir: %w", err)
	}
	defer os.RemoveAll(profileDir)

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.binary,
		"--headless",
		"-env:UserInstallation=file://"+profileDir,
		"--convert-to", format,
		"--outdir", outDir,
		path,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("soffice conversion of %s failed: %w (output: %s)",
			filepath.Base(path), err, strings.TrimSpace(string(output)))
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath := filepath.Join(outDir, stem+"."+format)
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("soffice reported success but output is missing: %w", err)
	}
	return outPath, nil
}
