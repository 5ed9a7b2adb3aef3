package chunking

import (
	"fmt"
	"regexp"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

const (
	DefaultChunkSize = 2000
	DefaultOverlap   = 300
)

// holidaySpanPatterns are tried in order; the first one that matches wins.
var holidaySpanPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)LIST OF MANDATORY HOLIDAYS.*?Optional Holidays List`),
	regexp.MustCompile(`(?s)Mandatory Public Holidays.*?Optional Holidays List`),
	regexp.MustCompile(`(?s)Optional Holidays List.*?## Summary`),
	regexp.MustCompile(`(?s)Optional Holidays List.*?## Leave Policy Details`),
}

// Splitter cuts text into fixed-size overlapping windows, keeping a holiday
// list section intact as one chunk regardless of its size.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "new splitter", fmt.Errorf("chunk size must be positive, got %d", chunkSize))
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, domain.WrapError(domain.ErrInvalidInput, "new splitter", fmt.Errorf("overlap must be in [0, %d), got %d", chunkSize, overlap))
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}, nil
}

func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}

	start, end, ok := HolidaySpan(text)
	if !ok {
		return s.window(text, nil)
	}

	out := s.window(text[:start], nil)
	out = append(out, text[start:end])
	return s.window(text[end:], out)
}

// HolidaySpan returns the byte offsets of the protected holiday section.
func HolidaySpan(text string) (int, int, bool) {
	for _, pattern := range holidaySpanPatterns {
		if loc := pattern.FindStringIndex(text); loc != nil {
			return loc[0], loc[1], true
		}
	}
	return 0, 0, false
}

func (s *Splitter) window(text string, out []string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return out
	}

	start := 0
	for {
		end := start + s.ChunkSize
		if end > n {
			end = n
		}
		out = append(out, string(runes[start:end]))
		if end == n {
			break
		}

		next := end - s.Overlap
		if next < 0 {
			next = 0
		}
		// must advance even when Overlap >= ChunkSize was set directly
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}
