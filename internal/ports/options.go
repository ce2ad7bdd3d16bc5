package ports

// MatchPolicy selects how a keyword is compared against name and category.
type MatchPolicy string

const (
	// PolicySubstring matches when the normalized field contains the keyword
	// anywhere ("omega" matches "homega").
	PolicySubstring MatchPolicy = "substring"

	// PolicyWord matches only on word boundaries (\bkeyword\b).
	PolicyWord MatchPolicy = "word"
)

// Valid reports whether p is a known policy.
func (p MatchPolicy) Valid() bool {
	return p == PolicySubstring || p == PolicyWord
}

// MatchOptions controls keyword derivation and row selection.
type MatchOptions struct {
	Policy      MatchPolicy // default PolicySubstring
	Exclusions  []string    // categories never surfaced (normalized by the matcher)
	AllTriggers bool        // collect every matching trigger instead of first match wins
}
