package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Lllllllleong/docpairflow/internal/models"
)

// pageSeparator joins per-page text in whole-document extraction.
const pageSeparator = "\n\n---\n\n"

// pdfExtractor validates files with pdfcpu in relaxed mode before reading
// text. Image-only pages yield empty text, not an error.
type pdfExtractor struct{}

func (e *pdfExtractor) Format() models.Format { return models.FormatPDF }

func (e *pdfExtractor) FirstPageText(ctx context.Context, path string) (string, error) {
	if err := validatePDF(path); err != nil {
		return "", err
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	if r.NumPage() < 1 {
		return "", nil
	}
	page := r.Page(1)
	if page.V.IsNull() {
		return "", nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from page 1: %w", err)
	}
	return text, nil
}

func (e *pdfExtractor) Markdown(ctx context.Context, path string) (string, error) {
	if err := validatePDF(path); err != nil {
		return "", err
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			continue
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, pageSeparator), nil
}

// validatePDF runs pdfcpu validation in relaxed mode, the same posture used
// for splitting real-world PDFs that bend the standard.
func validatePDF(path string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, cfg); err != nil {
		return fmt.Errorf("failed to validate PDF: %w", err)
	}
	return nil
}

// PageCount returns the page count of a PDF, validating it in relaxed mode.
func PageCount(path string) (int, error) {
	if err := validatePDF(path); err != nil {
		return 0, err
	}
	count, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return count, nil
}
