package extractor

import (
	"context"
	"fmt"
	"io"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
	"github.com/kirillkom/leave-policy-bot/internal/core/ports"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/extractor/plaintext"
)

// Mux dispatches to the first extractor supporting the file extension.
type Mux struct {
	extractors []ports.TextExtractor
}

func New(extractors ...ports.TextExtractor) *Mux {
	return &Mux{extractors: extractors}
}

// Default handles PDF, Markdown and plain text.
func Default() *Mux {
	return New(pdf.NewExtractor(), plaintext.NewExtractor())
}

func (m *Mux) Supports(filename string) bool {
	return m.pick(filename) != nil
}

func (m *Mux) Extract(ctx context.Context, filename string, body io.Reader) (string, error) {
	e := m.pick(filename)
	if e == nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract", fmt.Errorf("unsupported file type: %s", filename))
	}
	return e.Extract(ctx, filename, body)
}

func (m *Mux) pick(filename string) ports.TextExtractor {
	for _, e := range m.extractors {
		if e.Supports(filename) {
			return e
		}
	}
	return nil
}
