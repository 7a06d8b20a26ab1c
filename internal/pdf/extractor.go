// Package pdf extracts plain text from PDF documents.
package pdf

import (
	"errors"
	"fmt"
	"strings"

	ledongpdf "github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// ErrCorruptFile indicates the file is not a parsable PDF.
var ErrCorruptFile = errors.New("pdf: corrupt or unreadable file")

// Extractor converts PDF files into plain text.
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

// ExtractText opens the PDF at path and returns the text of all pages in
// page order, separated by a newline. Image-only pages contribute empty
// text; there is no OCR. Returns ErrCorruptFile if the file cannot be
// parsed.
func (e *Extractor) ExtractText(path string) (text string, err error) {
	// The underlying parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %s: %v", ErrCorruptFile, path, r)
		}
	}()

	f, reader, err := ledongpdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrCorruptFile, path, err)
	}
	defer f.Close()

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// Pages without extractable text (scanned images) yield
			// empty text, not an error.
			e.logger.Debug("no extractable text on page",
				zap.String("path", path),
				zap.Int("page", i),
				zap.Error(err),
			)
			pageText = ""
		}
		pages = append(pages, pageText)
	}

	return strings.Join(pages, "\n"), nil
}
