package textextract

import (
	"context"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"

	"gasdock/internal/errs"
	"gasdock/internal/ports"
)

// PDFExtractor reads the embedded text layer of a PDF. Scanned documents
// without a text layer yield empty pages.
type PDFExtractor struct{}

var _ ports.TextExtractor = PDFExtractor{}

func NewPDFExtractor() PDFExtractor {
	return PDFExtractor{}
}

func (PDFExtractor) ExtractText(ctx context.Context, path string) (pages []string, err error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("read pdf %s: malformed document: %v", path, r)
		}
	}()

	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, errs.Wrapf(err, "open pdf %s", path)
	}
	defer file.Close()

	total := reader.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(err, "check context")
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, errs.Wrapf(err, "read page %d of %s", i, path)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
