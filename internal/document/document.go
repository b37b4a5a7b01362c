// Package document turns uploaded resume files into plain text.
package document

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/smartintern/internal/errs"
)

// Format is a supported upload format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOC  Format = "doc"
	FormatDOCX Format = "docx"
)

// Raw is an uploaded file.
type Raw struct {
	Data   []byte
	Format Format
}

// FormatFromFilename maps a file extension to a Format.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	case ".doc":
		return FormatDOC, nil
	default:
		return "", fmt.Errorf("%w: unsupported file format %q: only pdf, doc and docx are allowed", errs.ErrInput, filepath.Ext(name))
	}
}

// Extractor reads text out of Raw documents.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract returns the normalised text of raw. Empty text is an input error.
func (e *Extractor) Extract(ctx context.Context, raw Raw) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(raw.Data) == 0 {
		return "", fmt.Errorf("%w: document is empty", errs.ErrInput)
	}

	var (
		text string
		err  error
	)
	switch raw.Format {
	case FormatPDF:
		text, err = extractPDF(raw.Data)
	case FormatDOCX, FormatDOC:
		text, err = extractWord(raw.Data)
	default:
		return "", fmt.Errorf("%w: unsupported document format %q", errs.ErrInput, raw.Format)
	}
	if err != nil {
		return "", err
	}

	text = normalizeWhitespace(text)
	if text == "" {
		return "", fmt.Errorf("%w: no text could be extracted from the %s document", errs.ErrInput, raw.Format)
	}

	e.logger.Debug("document text extracted",
		zap.String("format", string(raw.Format)),
		zap.Int("bytes", len(raw.Data)),
		zap.Int("text_length", len(text)),
	)

	return text, nil
}

var (
	spaceRun   = regexp.MustCompile(`[ \t\r\f\v]+`)
	newlineRun = regexp.MustCompile(`\n(?:[ \t]*\n)+`)
)

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00A0", " ")
	s = spaceRun.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")

	s = newlineRun.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
