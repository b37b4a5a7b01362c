package document

import (
	"bytes"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"github.com/spigell/smartintern/internal/errs"
)

// extractPDF reads the document page by page, one output line per text row.
func extractPDF(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: malformed pdf: %v", errs.ErrInput, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %w", errs.ErrInput, err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("%w: read pdf page %d: %w", errs.ErrInput, i, err)
		}

		for _, row := range rows {
			for _, word := range row.Content {
				b.WriteString(word.S)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}
