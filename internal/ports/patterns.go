package ports

// PatternMatcher finds keywords in content using multi-pattern matching (Aho-Corasick).
// A single pass over the content finds all matching patterns simultaneously,
// regardless of how many patterns are in the set.
//
// The matcher must be rebuilt when the pattern set changes (e.g. after learned
// keywords are appended). Rebuild is expected to be infrequent.
type PatternMatcher interface {
	// Build replaces the pattern set and reconstructs the automaton.
	// Empty patterns are ignored.
	Build(patterns []string)

	// MatchIndexes returns the indexes (into the slice given to Build) of every
	// pattern found in content, ascending and without duplicates. Overlapping
	// occurrences are reported. Content is matched as-is (caller normalizes).
	MatchIndexes(content string) []int
}
