package normalize

import (
	"strings"
	"unicode"
)

// MinTokenLen is the shortest token kept by Tokenize.
const MinTokenLen = 3

// Stopwords is a set of normalized words excluded from fallback tokens.
type Stopwords map[string]bool

// NewStopwords normalizes words into a set.
func NewStopwords(words []string) Stopwords {
	s := make(Stopwords, len(words))
	for _, w := range words {
		if n := Text(w); n != "" {
			s[n] = true
		}
	}
	return s
}

// Contains reports whether the normalized form of w is a stopword.
func (s Stopwords) Contains(w string) bool {
	return s[Text(w)]
}

// Tokenize splits text into unique normalized tokens.
//  1. Normalize (lowercase, strip diacritics)
//  2. Split on anything that is not a letter or digit
//  3. Discard tokens shorter than MinTokenLen
//  4. Discard stopwords (stop may be nil)
//  5. Drop repeats, keeping first-seen order
func Tokenize(text string, stop Stopwords) []string {
	n := Text(text)
	if n == "" {
		return nil
	}

	words := strings.FieldsFunc(n, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(words))
	var tokens []string
	for _, w := range words {
		if len([]rune(w)) < MinTokenLen || stop[w] || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// Items splits a classifier response into short list items: pieces separated
// by commas, semicolons or newlines, stripped of bullets and numbering, that
// have between 1 and maxWords words. Longer clauses are prose, not list items.
// Items made only of stopwords are dropped. Returned items are normalized.
func Items(response string, maxWords int, stop Stopwords) []string {
	parts := strings.FieldsFunc(response, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r'
	})

	seen := make(map[string]bool, len(parts))
	var items []string
	for _, p := range parts {
		item := Text(strings.TrimLeft(strings.TrimSpace(p), "-*•·0123456789.) "))
		item = strings.Trim(item, " .:!?\"'()[]")
		if item == "" || seen[item] {
			continue
		}
		words := strings.Fields(item)
		if len(words) > maxWords {
			continue
		}
		allStop := true
		for _, w := range words {
			if !stop[w] {
				allStop = false
				break
			}
		}
		if allStop || len([]rune(item)) < MinTokenLen {
			continue
		}
		seen[item] = true
		items = append(items, item)
	}
	return items
}
