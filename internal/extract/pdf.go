package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor prefers pdftotext when it is on PATH and otherwise reads the
// file in-process with github.com/ledongthuc/pdf.
type PDFExtractor struct {
	conv *Converters
}

// NewPDFExtractor creates a PDF extractor. conv may be nil to force the
// in-process reader.
func NewPDFExtractor(conv *Converters) *PDFExtractor {
	return &PDFExtractor{conv: conv}
}

// Extract implements Func.
func (p *PDFExtractor) Extract(ctx context.Context, filename string) (string, error) {
	if _, err := os.Stat(filename); err != nil {
		return "", err
	}
	if p.conv != nil {
		if bin, ok := p.conv.LookPath("pdftotext"); ok {
			text, err := p.conv.Run(ctx, bin, filename, "-")
			if err == nil && strings.TrimSpace(text) != "" {
				return text, nil
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
		}
	}

	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	return PDFText(ctx, f, info.Size())
}

// PDFText returns the text of every page of the PDF in r, one line per
// text object. Pages whose content cannot be interpreted are skipped.
func PDFText(ctx context.Context, r io.ReaderAt, size int64) (text string, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if v := recover(); v != nil {
			text, err = "", fmt.Errorf("malformed PDF: %v", v)
		}
	}()

	doc, err := pdf.NewReader(r, size)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		s, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		b.WriteString(s)
		b.WriteByte('\n')
	}
	return collapseLines(b.String()), nil
}
