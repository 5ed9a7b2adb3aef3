package rules

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

type file struct {
	Rules []row `yaml:"rules"`
}

type row struct {
	Class   string `yaml:"class"`
	Match   string `yaml:"match"`
	Exclude string `yaml:"exclude"`
	Boost   string `yaml:"boost"`
	Expand  bool   `yaml:"expand"`
}

// LoadFile reads a query classification table. Rows keep file order, which is
// also evaluation order.
func LoadFile(path string) ([]domain.QueryRule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) ([]domain.QueryRule, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse rules", err)
	}
	if len(f.Rules) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse rules", errors.New("no rules defined"))
	}

	out := make([]domain.QueryRule, 0, len(f.Rules))
	for idx, r := range f.Rules {
		rule, err := r.compile()
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse rules", fmt.Errorf("rule %d: %w", idx+1, err))
		}
		out = append(out, rule)
	}
	return out, nil
}

func (r row) compile() (domain.QueryRule, error) {
	class := strings.TrimSpace(r.Class)
	if class == "" {
		return domain.QueryRule{}, errors.New("class is required")
	}
	if strings.TrimSpace(r.Match) == "" {
		return domain.QueryRule{}, errors.New("match is required")
	}

	match, err := compile(r.Match)
	if err != nil {
		return domain.QueryRule{}, fmt.Errorf("match: %w", err)
	}
	exclude, err := compile(r.Exclude)
	if err != nil {
		return domain.QueryRule{}, fmt.Errorf("exclude: %w", err)
	}
	boost, err := compile(r.Boost)
	if err != nil {
		return domain.QueryRule{}, fmt.Errorf("boost: %w", err)
	}

	return domain.QueryRule{
		Class:            domain.QueryClass(class),
		Match:            match,
		Exclude:          exclude,
		Boost:            boost,
		ExpandCandidates: r.Expand,
	}, nil
}

// compile matches case-insensitively unless the pattern sets its own flags.
func compile(pattern string) (*regexp.Regexp, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, nil
	}
	if !strings.HasPrefix(pattern, "(?") {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}
