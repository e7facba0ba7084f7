// Package extract turns source documents into ordered, labeled segments.
// PDF text extraction is digital-only; scanned documents come out empty and
// are rejected at ingestion rather than silently producing zero evidence.
package extract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/prasadk/complyscan/internal/model"
)

// Extractor reads a document file and segments its text
type Extractor struct {
	segmenter *Segmenter
}

func NewExtractor() *Extractor {
	return &Extractor{segmenter: NewSegmenter()}
}

// Extract reads the file at path and returns its segments in document order.
// Supported formats: .pdf, .txt, .md.
func (e *Extractor) Extract(path, documentID string) ([]model.Segment, error) {
	var text string
	var err error

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		text, err = extractPDF(path)
	case ".txt", ".md":
		text, err = extractPlain(path)
	default:
		return nil, fmt.Errorf("unsupported file type %q (want .pdf, .txt or .md)", ext)
	}
	if err != nil {
		return nil, err
	}

	text = normalizeText(text)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text extracted from %s (scanned documents are not supported)", filepath.Base(path))
	}

	segments := e.segmenter.Segment(text, documentID)
	if len(segments) == 0 {
		return nil, fmt.Errorf("segmentation produced no segments for %s", filepath.Base(path))
	}
	return segments, nil
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	b, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(b); err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	return buf.String(), nil
}

func extractPlain(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}

var (
	multiSpace = regexp.MustCompile(`[ \t]{2,}`)
	multiBlank = regexp.MustCompile(`\n{3,}`)
)

// normalizeText collapses extraction artifacts so header detection sees
// clean lines
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = multiSpace.ReplaceAllString(text, " ")
	text = multiBlank.ReplaceAllString(text, "\n\n")
	return text
}
