package document

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/spigell/smartintern/internal/errs"
)

var xmlTag = regexp.MustCompile(`<[^>]+>`)

var xmlEntities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
)

// extractWord reads word/document.xml from an OOXML package. Legacy binary
// .doc files are not zip archives and are rejected.
func extractWord(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return "", fmt.Errorf("%w: unsupported document: not an OOXML word file", errs.ErrInput)
		}
		return "", fmt.Errorf("%w: open word document: %w", errs.ErrInput, err)
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		docXML, err = readZipFile(f)
		if err != nil {
			return "", fmt.Errorf("%w: read word/document.xml: %w", errs.ErrInput, err)
		}
		break
	}
	if len(docXML) == 0 {
		return "", fmt.Errorf("%w: no word/document.xml found in document", errs.ErrInput)
	}

	xml := string(docXML)
	xml = strings.ReplaceAll(xml, "</w:p>", "\n")
	xml = strings.ReplaceAll(xml, "<w:br/>", "\n")
	xml = strings.ReplaceAll(xml, "<w:tab/>", "\t")
	txt := xmlTag.ReplaceAllString(xml, "")

	return xmlEntities.Replace(txt), nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}
