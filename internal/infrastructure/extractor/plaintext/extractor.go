package plaintext

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Extractor reads Markdown and text files as-is.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Supports(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".txt", ".markdown":
		return true
	default:
		return false
	}
}

func (e *Extractor) Extract(_ context.Context, filename string, body io.Reader) (string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	if !utf8.Valid(raw) {
		return "", fmt.Errorf("not valid utf-8 text: %s", filename)
	}

	return strings.TrimSpace(string(raw)), nil
}
