package pdf

import (
	"context"
	"strings"
	"testing"
)

func TestSupports(t *testing.T) {
	e := NewExtractor()
	if !e.Supports("Policy.PDF") || e.Supports("policy.md") {
		t.Fatalf("unexpected Supports() result")
	}
}

func TestExtractRejectsGarbage(t *testing.T) {
	if _, err := NewExtractor().Extract(context.Background(), "bad.pdf", strings.NewReader("not a pdf")); err == nil {
		t.Fatalf("expected parse error")
	}
}
