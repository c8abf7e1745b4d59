package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor turns uploaded file bytes into plain text plus a page count.
// Failure here is a whole-document indexing failure.
type Extractor interface {
	ExtractFromPDF(data []byte) (string, int, error)
}

type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractFromPDF returns the plain text of every readable page plus the page
// count. Pages that fail to decode are skipped rather than failing the
// document; a reader error on the file itself fails the whole document.
func (te *PDFExtractor) ExtractFromPDF(data []byte) (string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var fullText strings.Builder
	numPages := reader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		fullText.WriteString(text)
		fullText.WriteString("\n")
	}

	return fullText.String(), numPages, nil
}
