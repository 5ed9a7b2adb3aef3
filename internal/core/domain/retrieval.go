package domain

import (
	"regexp"
	"strings"
	"time"
)

// GlobalPartition is the country tag visible from every partition.
const GlobalPartition = "global"

// PartitionsFor returns the candidate partition set for a country code.
// Untagged chunks are always eligible in addition to these.
func PartitionsFor(countryCode string) []string {
	cc := strings.TrimSpace(countryCode)
	if cc == "" || cc == GlobalPartition {
		return []string{GlobalPartition}
	}
	return []string{cc, GlobalPartition}
}

type SearchQuery struct {
	Query       string `json:"query"`
	CountryCode string `json:"country_code,omitempty"`
	TopK        int    `json:"top_k,omitempty"`
}

type RetrievedChunk struct {
	ChunkID      string  `json:"chunk_id"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name,omitempty"`
	CountryCode  string  `json:"country_code,omitempty"`
	Position     int     `json:"position"`
	Content      string  `json:"content"`
	Distance     float64 `json:"distance"`
	Score        float64 `json:"similarity"`
}

type QueryClass string

const (
	ClassNone        QueryClass = ""
	ClassHoliday     QueryClass = "holiday"
	ClassLeavePolicy QueryClass = "leave_policy"
)

// QueryRule is one row of the classification table. The first row whose Match
// hits and whose Exclude (when set) misses decides the class of a query.
type QueryRule struct {
	Class            QueryClass
	Match            *regexp.Regexp
	Exclude          *regexp.Regexp
	Boost            *regexp.Regexp
	ExpandCandidates bool
}

func (r QueryRule) Applies(query string) bool {
	if r.Match == nil || !r.Match.MatchString(query) {
		return false
	}
	return r.Exclude == nil || !r.Exclude.MatchString(query)
}

func (r QueryRule) Boosts(content string) bool {
	return r.Boost != nil && r.Boost.MatchString(content)
}

// ContextSource names where the answer context came from.
type ContextSource string

const (
	ContextRetrieval ContextSource = "retrieval"
	ContextFallback  ContextSource = "fallback"
	ContextNone      ContextSource = "none"
)

type AskRequest struct {
	Question    string
	CountryCode string
	TopK        int
	History     []Turn
}

type AskResult struct {
	Text          string           `json:"answer"`
	Sources       []RetrievedChunk `json:"sources,omitempty"`
	ContextSource ContextSource    `json:"context_source"`
	Degraded      bool             `json:"degraded,omitempty"`
	Model         string           `json:"model,omitempty"`
	Usage         TokenUsage       `json:"usage"`
	Latency       time.Duration    `json:"-"`
}

// AnswerInput is what the Answerer sees: the question plus the assembled context.
type AnswerInput struct {
	Question string
	Context  string
	History  []Turn
}

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type Completion struct {
	Text  string
	Model string
	Usage TokenUsage
}
