package matcher

import (
	"strings"

	"github.com/corey/botica/internal/domain/catalog"
	"github.com/corey/botica/internal/domain/normalize"
	"github.com/corey/botica/internal/ports"
)

// Matcher selects catalog rows for a keyword set. It holds no mutable state;
// one Matcher serves any number of concurrent sessions.
type Matcher struct {
	cat      *catalog.Catalog
	policy   ports.MatchPolicy
	excluded map[string]bool
}

// NewMatcher binds a catalog and match options. An unknown policy falls back
// to substring containment.
func NewMatcher(cat *catalog.Catalog, opts ports.MatchOptions) *Matcher {
	policy := opts.Policy
	if !policy.Valid() {
		policy = ports.PolicySubstring
	}
	excluded := make(map[string]bool, len(opts.Exclusions))
	for _, e := range normalize.All(opts.Exclusions) {
		excluded[e] = true
	}
	return &Matcher{cat: cat, policy: policy, excluded: excluded}
}

// Policy returns the active match policy.
func (m *Matcher) Policy() ports.MatchPolicy { return m.policy }

// Match returns the rows whose normalized name or category contains any
// keyword, without exact duplicate rows and without excluded categories,
// sorted by name. An empty keyword set returns nil, never every row.
func (m *Matcher) Match(keywords []string) []ports.Product {
	terms := normalize.All(keywords)
	if len(terms) == 0 || m.cat == nil {
		return nil
	}

	contains := m.containsFunc()

	seen := make(map[string]bool)
	var out []ports.Product
	for _, term := range terms {
		match := contains(term)
		for i := 0; i < m.cat.Len(); i++ {
			if !match(m.cat.NormName(i)) && !match(m.cat.NormCategory(i)) {
				continue
			}
			if m.excluded[m.cat.NormCategory(i)] {
				continue
			}
			p := m.cat.At(i)
			if key := p.Key(); !seen[key] {
				seen[key] = true
				out = append(out, p)
			}
		}
	}

	catalog.SortByName(out)
	return out
}

// containsFunc returns, per term, the predicate used on normalized fields.
// The word policy shares its boundary rule with trigger confirmation: any
// Unicode letter or digit continues a word.
func (m *Matcher) containsFunc() func(term string) func(string) bool {
	if m.policy != ports.PolicyWord {
		return func(term string) func(string) bool {
			return func(field string) bool { return strings.Contains(field, term) }
		}
	}
	return func(term string) func(string) bool {
		return func(field string) bool { return containsWord(field, term) }
	}
}
