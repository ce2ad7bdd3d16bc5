// Package normalize folds text for accent- and case-insensitive matching.
//
// Every comparison in the matcher goes through Text: user input, catalog
// fields, trigger words, vocabulary and learned keywords. Two strings that
// differ only in case, diacritics or runs of whitespace normalize equal.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Text lowercases s, strips diacritics (NFD, drop nonspacing marks, NFC) and
// collapses whitespace runs to single spaces. "Cúrcuma  Ñame" -> "curcuma name".
func Text(s string) string {
	if s == "" {
		return ""
	}
	// transform.Chain is stateful; build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// All normalizes every element, dropping the ones that normalize to "".
// Order is preserved and duplicates are removed (first occurrence wins).
func All(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		n := Text(it)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
