package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor pulls the text layer out of PDF files. Scanned PDFs without a
// text layer yield an empty string.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Supports(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

func (e *Extractor) Extract(ctx context.Context, filename string, body io.Reader) (string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("parse pdf %s: %w", filename, err)
	}

	var b strings.Builder
	for page := 1; page <= reader.NumPage(); page++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := reader.Page(page)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf %s page %d: %w", filename, page, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}
