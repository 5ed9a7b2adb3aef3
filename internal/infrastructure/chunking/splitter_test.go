package chunking

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

func mustSplitter(t *testing.T, size, overlap int) *Splitter {
	t.Helper()
	s, err := NewSplitter(size, overlap)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	return s
}

func TestSplitTwoWindowsWithOverlap(t *testing.T) {
	text := strings.Repeat("A", 2500)
	chunks := mustSplitter(t, 2000, 300).Split(text)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != text[:2000] {
		t.Fatalf("first chunk must be [0,2000), got len %d", len(chunks[0]))
	}
	if chunks[1] != text[1700:] || len(chunks[1]) != 800 {
		t.Fatalf("second chunk must be [1700,2500), got len %d", len(chunks[1]))
	}
}

func TestSplitEmptyInput(t *testing.T) {
	if chunks := mustSplitter(t, 10, 2).Split(""); len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestSplitCoversInputWithExactOverlap(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		overlap int
		length  int
	}{
		{name: "shorter than window", size: 50, overlap: 10, length: 30},
		{name: "exact window", size: 50, overlap: 10, length: 50},
		{name: "many windows", size: 50, overlap: 10, length: 537},
		{name: "no overlap", size: 64, overlap: 0, length: 300},
		{name: "large overlap", size: 10, overlap: 9, length: 45},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var b strings.Builder
			for i := 0; i < tc.length; i++ {
				b.WriteByte(byte('a' + i%26))
			}
			text := b.String()
			chunks := mustSplitter(t, tc.size, tc.overlap).Split(text)

			var rebuilt strings.Builder
			for i, chunk := range chunks {
				if i < len(chunks)-1 && len(chunk) != tc.size {
					t.Fatalf("chunk %d length = %d, want %d", i, len(chunk), tc.size)
				}
				if i == 0 {
					rebuilt.WriteString(chunk)
					continue
				}
				prev := chunks[i-1]
				if prev[len(prev)-tc.overlap:] != chunk[:tc.overlap] {
					t.Fatalf("chunk %d does not overlap previous by %d", i, tc.overlap)
				}
				rebuilt.WriteString(chunk[tc.overlap:])
			}
			if rebuilt.String() != text {
				t.Fatalf("chunks do not reconstruct input")
			}
		})
	}
}

func TestSplitCountsCharactersNotBytes(t *testing.T) {
	text := strings.Repeat("é", 25)
	chunks := mustSplitter(t, 10, 0).Split(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks[:2] {
		if n := utf8.RuneCountInString(chunk); n != 10 {
			t.Fatalf("chunk %d has %d characters", i, n)
		}
	}
}

func TestSplitKeepsHolidaySpanIntact(t *testing.T) {
	before := strings.Repeat("b", 120)
	span := "LIST OF MANDATORY HOLIDAYS\n1. Republic Day - 26 Jan\n" +
		strings.Repeat("2. Some festival day\n", 40) +
		"Optional Holidays List"
	after := "\n- Raksha Bandhan - 19 Aug\n" + strings.Repeat("z", 50)
	text := before + span + after

	chunks := mustSplitter(t, 100, 20).Split(text)

	matches := 0
	spanIndex := -1
	for i, chunk := range chunks {
		if chunk == span {
			matches++
			spanIndex = i
		}
	}
	if matches != 1 {
		t.Fatalf("expected exactly one verbatim holiday chunk, got %d", matches)
	}
	if len([]rune(span)) <= 100 {
		t.Fatalf("test span should exceed chunk size")
	}
	if spanIndex != 2 {
		t.Fatalf("expected span after the two leading windows, got index %d", spanIndex)
	}
	if chunks[0] != before[:100] || chunks[1] != before[80:] {
		t.Fatalf("leading text not windowed independently")
	}
	if strings.Join(chunks[spanIndex+1:], "") != after {
		t.Fatalf("trailing text should be windowed after the span")
	}
}

func TestHolidaySpanPatternPriority(t *testing.T) {
	text := "intro\nMandatory Public Holidays\nNew Year\nOptional Holidays List\nHoli\n## Summary\nend"
	start, end, ok := HolidaySpan(text)
	if !ok {
		t.Fatalf("expected span match")
	}
	got := text[start:end]
	if !strings.HasPrefix(got, "Mandatory Public Holidays") || !strings.HasSuffix(got, "Optional Holidays List") {
		t.Fatalf("expected mandatory pattern to win, got %q", got)
	}
}

func TestHolidaySpanOptionalUntilLeaveDetails(t *testing.T) {
	text := "Optional Holidays List\nDiwali\n## Leave Policy Details\nSick leave: 12 days"
	start, end, ok := HolidaySpan(text)
	if !ok {
		t.Fatalf("expected span match")
	}
	if text[start:end] != "Optional Holidays List\nDiwali\n## Leave Policy Details" {
		t.Fatalf("unexpected span %q", text[start:end])
	}
}

func TestNewSplitterRejectsInvalidConfig(t *testing.T) {
	for _, tc := range []struct{ size, overlap int }{{0, 0}, {10, 10}, {10, 12}, {10, -1}} {
		if _, err := NewSplitter(tc.size, tc.overlap); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("NewSplitter(%d, %d) error = %v, want invalid input", tc.size, tc.overlap, err)
		}
	}
}

func TestSplitAdvancesWithPathologicalOverlap(t *testing.T) {
	s := &Splitter{ChunkSize: 5, Overlap: 7}
	chunks := s.Split(strings.Repeat("x", 12))
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
}
