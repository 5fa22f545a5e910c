package search

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Rewrite is the canonical tuple a matching rule produces.
type Rewrite struct {
	Query      string `mapstructure:"query" json:"query"`
	Category   string `mapstructure:"category" json:"category"`
	Region     string `mapstructure:"region" json:"region"`
	TimeFilter string `mapstructure:"timelimit" json:"timelimit"`
}

// Rule rewrites a query when every marker group has at least one of its
// markers somewhere in the normalized query text.
type Rule struct {
	Name     string     `mapstructure:"name" json:"name"`
	Category string     `mapstructure:"category" json:"category"`
	Markers  [][]string `mapstructure:"markers" json:"markers"`
	Rewrite  Rewrite    `mapstructure:"rewrite" json:"rewrite"`
}

// DefaultRules turns "today's Indonesian news" phrasings into a news search.
var DefaultRules = []Rule{
	{
		Name:     "indonesia-news-today",
		Category: string(CategoryText),
		Markers: [][]string{
			{"indonesia"},
			{"berita", "news"},
			{"hari ini", "today"},
		},
		Rewrite: Rewrite{
			Query:      "berita indonesia",
			Category:   string(CategoryNews),
			Region:     "id-id",
			TimeFilter: string(TimeDay),
		},
	},
}

// Intent is the part of a request the normalizer may rewrite.
type Intent struct {
	Query      string
	Category   Category
	Region     string
	TimeFilter TimeFilter
}

// Normalizer applies the first matching rule of its table.
type Normalizer struct {
	Rules []Rule
}

func NewNormalizer(rules []Rule) *Normalizer {
	if rules == nil {
		rules = DefaultRules
	}
	return &Normalizer{Rules: rules}
}

// NormalizeText lower-cases s and collapses runs of whitespace.
func NormalizeText(s string) string {
	// cases.Caser is stateful and must not be shared between goroutines
	return strings.Join(strings.Fields(cases.Lower(language.Und).String(s)), " ")
}

// Normalize returns in unchanged unless a rule matches.
func (n *Normalizer) Normalize(in Intent) Intent {
	text := NormalizeText(in.Query)
	for _, rule := range n.Rules {
		if !strings.EqualFold(rule.Category, string(in.Category)) {
			continue
		}
		if !rule.matches(text) {
			continue
		}
		out := in
		if rule.Rewrite.Query != "" {
			out.Query = rule.Rewrite.Query
		}
		if c, err := ParseCategory(rule.Rewrite.Category); err == nil {
			out.Category = c
		}
		if rule.Rewrite.Region != "" {
			out.Region = rule.Rewrite.Region
		}
		if tf, err := ParseTimeFilter(rule.Rewrite.TimeFilter); err == nil && tf != TimeAny {
			out.TimeFilter = tf
		}
		return out
	}
	return in
}

func (r Rule) matches(text string) bool {
	if len(r.Markers) == 0 {
		return false
	}
	for _, group := range r.Markers {
		found := false
		for _, marker := range group {
			if m := NormalizeText(marker); m != "" && strings.Contains(text, m) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Apply rewrites the intent fields of r.
func (n *Normalizer) Apply(r Request) Request {
	out := n.Normalize(Intent{Query: r.Query, Category: r.Category, Region: r.Region, TimeFilter: r.TimeFilter})
	r.Query = out.Query
	r.Category = out.Category
	r.Region = out.Region
	r.TimeFilter = out.TimeFilter
	return r
}

// Prepare normalizes r and validates the outcome.
func (n *Normalizer) Prepare(r Request) (Request, error) {
	r = n.Apply(r)
	if err := r.Validate(); err != nil {
		return Request{}, err
	}
	return r, nil
}
