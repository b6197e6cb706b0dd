package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads page text with ledongthuc/pdf. Pages without text are
// skipped; every other page is followed by a newline.
type PDFExtractor struct{}

func (PDFExtractor) ExtractText(ctx context.Context, path string) (text string, err error) {
	// the parser panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pt, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if pt == "" {
			continue
		}
		b.WriteString(pt)
		b.WriteByte('\n')
	}
	return b.String(), nil
}
