// Package ahocorasick provides multi-pattern string matching using an Aho-Corasick automaton.
// It wraps the petar-dambovaliev/aho-corasick library for O(n + m + z) matching.
package ahocorasick

import (
	"sort"

	aho "github.com/petar-dambovaliev/aho-corasick"
)

// Matcher implements ports.PatternMatcher. Build() compiles an automaton;
// MatchIndexes() reports which patterns occur in a text.
//
// A Matcher is not safe for concurrent Build and MatchIndexes calls; the
// caller swaps whole matchers when the pattern set changes.
type Matcher struct {
	automaton aho.AhoCorasick
	patterns  []string // non-empty patterns handed to the automaton
	origIdx   []int    // automaton pattern index -> index in the Build slice
	built     bool
}

// New returns a matcher built from patterns.
func New(patterns []string) *Matcher {
	m := &Matcher{}
	m.Build(patterns)
	return m
}

// Build compiles the Aho-Corasick automaton from the given patterns.
// Empty patterns are skipped but keep their index in the caller's slice.
func (m *Matcher) Build(patterns []string) {
	m.patterns = m.patterns[:0]
	m.origIdx = m.origIdx[:0]
	for i, p := range patterns {
		if p == "" {
			continue
		}
		m.patterns = append(m.patterns, p)
		m.origIdx = append(m.origIdx, i)
	}

	m.built = len(m.patterns) > 0
	if !m.built {
		return
	}
	builder := aho.NewAhoCorasickBuilder(aho.Opts{
		DFA: true,
	})
	m.automaton = builder.Build(m.patterns)
}

// MatchIndexes returns the Build-slice indexes of all patterns found in
// content, ascending and deduplicated. Overlapping matches are included, so
// "dormir" and "dormir bien" both report for "dormir bien".
func (m *Matcher) MatchIndexes(content string) []int {
	if !m.built || content == "" {
		return nil
	}

	seen := make(map[int]bool)
	var result []int
	iter := m.automaton.IterOverlappingByte([]byte(content))
	for next := iter.Next(); next != nil; next = iter.Next() {
		idx := m.origIdx[next.Pattern()]
		if !seen[idx] {
			seen[idx] = true
			result = append(result, idx)
		}
	}
	sort.Ints(result)
	return result
}

// Match returns the distinct patterns found in content, in Build order.
func (m *Matcher) Match(content string) []string {
	idxs := m.MatchIndexes(content)
	if len(idxs) == 0 {
		return nil
	}
	pos := make(map[int]int, len(m.origIdx))
	for i, orig := range m.origIdx {
		pos[orig] = i
	}
	out := make([]string, len(idxs))
	for i, idx := range idxs {
		out[i] = m.patterns[pos[idx]]
	}
	return out
}

// PatternCount returns the number of non-empty patterns in the automaton.
func (m *Matcher) PatternCount() int {
	return len(m.patterns)
}
