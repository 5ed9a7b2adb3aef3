package usecase

import (
	"regexp"
	"sort"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

const (
	holidayVocabulary     = `holiday|holidays|festival|celebration|mandatory holiday|optional holiday|public holiday`
	leavePolicyVocabulary = `parental leave|sick leave|earned leave|casual leave|medical leave|leave policy|leave application|leave balance`
)

// DefaultQueryRules is the built-in classification table. Holiday comes first
// and excludes leave-policy vocabulary so the two classes never overlap.
func DefaultQueryRules() []domain.QueryRule {
	return []domain.QueryRule{
		{
			Class:            domain.ClassHoliday,
			Match:            regexp.MustCompile(`(?i)\b(` + holidayVocabulary + `)\b`),
			Exclude:          regexp.MustCompile(`(?i)\b(` + leavePolicyVocabulary + `)\b`),
			Boost:            regexp.MustCompile(`(?i)holiday|mandatory|optional|festival`),
			ExpandCandidates: true,
		},
		{
			Class: domain.ClassLeavePolicy,
			Match: regexp.MustCompile(`(?i)\b(` + leavePolicyVocabulary + `|days.*leave|leave.*days)\b`),
			Boost: regexp.MustCompile(`(?i)\b(` + leavePolicyVocabulary + `|days.*leave|leave.*days|15 days|12 days|26 weeks|30 days)\b`),
		},
	}
}

type QueryClassifier struct {
	rules []domain.QueryRule
}

func NewQueryClassifier(rules []domain.QueryRule) *QueryClassifier {
	if len(rules) == 0 {
		rules = DefaultQueryRules()
	}
	return &QueryClassifier{rules: rules}
}

// Classify returns the first rule that applies to the query.
func (c *QueryClassifier) Classify(query string) (domain.QueryRule, bool) {
	for _, rule := range c.rules {
		if rule.Applies(query) {
			return rule, true
		}
	}
	return domain.QueryRule{}, false
}

// candidateLimit is how many neighbors to fetch before re-ranking.
func candidateLimit(rule domain.QueryRule, matched bool, topK int) int {
	if matched && rule.ExpandCandidates {
		return max(topK*2, 15)
	}
	return topK
}

// rerankByBoost moves boosted chunks ahead of the rest. Ties keep ascending
// distance, so more similar chunks stay first within each group.
func rerankByBoost(chunks []domain.RetrievedChunk, rule domain.QueryRule) []domain.RetrievedChunk {
	if len(chunks) == 0 {
		return chunks
	}

	boosted := make([]bool, len(chunks))
	for i := range chunks {
		boosted[i] = rule.Boosts(chunks[i].Content)
	}

	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if boosted[ia] != boosted[ib] {
			return boosted[ia]
		}
		return chunks[ia].Distance < chunks[ib].Distance
	})

	out := make([]domain.RetrievedChunk, len(chunks))
	for i, idx := range order {
		out[i] = chunks[idx]
	}
	return out
}
