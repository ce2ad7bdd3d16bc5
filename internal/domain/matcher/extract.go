package matcher

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/corey/botica/internal/domain/lexicon"
	"github.com/corey/botica/internal/domain/normalize"
	"github.com/corey/botica/internal/ports"
)

// MaxItemWords is the longest comma-separated response item taken as a keyword.
const MaxItemWords = 4

// Source names a keyword derivation path.
type Source string

const (
	SourceTrigger    Source = "trigger"    // static trigger table hit in the query
	SourceVocabulary Source = "vocabulary" // vocabulary term found in the classifier response
	SourceResponse   Source = "response"   // short list item of the classifier response
	SourceSupplied   Source = "supplied"   // keywords passed in by the caller
	SourceFallback   Source = "fallback"   // raw query tokens minus stopwords
	SourceNone       Source = "none"       // nothing usable
)

// Keywords is the derived keyword set with the paths that contributed to it.
type Keywords struct {
	Terms   []string // normalized, deduplicated, first-seen order
	Sources []Source // contributing paths in derivation order

	// Learned lists response items that are not in the vocabulary yet.
	// The caller may persist them in a KeywordStore.
	Learned []string
}

// Empty reports whether no keyword was derived.
func (k Keywords) Empty() bool { return len(k.Terms) == 0 }

// Source joins the contributing paths ("trigger+vocabulary"), or "none".
func (k Keywords) Source() string {
	if len(k.Sources) == 0 {
		return string(SourceNone)
	}
	parts := make([]string, len(k.Sources))
	for i, s := range k.Sources {
		parts[i] = string(s)
	}
	return strings.Join(parts, "+")
}

// MatcherFactory creates an empty pattern matcher. The domain stays
// independent of the automaton implementation.
type MatcherFactory func() ports.PatternMatcher

// Extractor derives candidate keywords from a query and an optional
// classifier response. Safe for concurrent use; SetVocabulary swaps the
// vocabulary automaton atomically with respect to Extract.
type Extractor struct {
	lex         *lexicon.Lexicon
	triggers    ports.PatternMatcher
	newMatcher  MatcherFactory
	allTriggers bool

	mu    sync.RWMutex
	vocab []string
	vm    ports.PatternMatcher
}

// NewExtractor builds trigger and vocabulary automata from the lexicon.
// With allTriggers unset, only the earliest trigger in table order is used.
func NewExtractor(lex *lexicon.Lexicon, newMatcher MatcherFactory, allTriggers bool) *Extractor {
	e := &Extractor{
		lex:         lex,
		newMatcher:  newMatcher,
		allTriggers: allTriggers,
	}
	e.triggers = newMatcher()
	e.triggers.Build(lex.TriggerWords())
	e.SetVocabulary(lex.Vocabulary)
	return e
}

// SetVocabulary replaces the extraction vocabulary (e.g. base vocabulary plus
// learned keywords). Terms are normalized and deduplicated.
func (e *Extractor) SetVocabulary(terms []string) {
	vocab := normalize.All(terms)
	vm := e.newMatcher()
	vm.Build(vocab)

	e.mu.Lock()
	e.vocab = vocab
	e.vm = vm
	e.mu.Unlock()
}

// AddVocabulary merges terms into the current vocabulary and rebuilds the
// automaton. The read, merge and swap happen under one lock, so concurrent
// callers never drop each other's terms.
func (e *Extractor) AddVocabulary(terms ...string) {
	if len(terms) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	merged := make([]string, 0, len(e.vocab)+len(terms))
	merged = append(merged, e.vocab...)
	vocab := normalize.All(append(merged, terms...))
	if len(vocab) == len(e.vocab) {
		return
	}
	vm := e.newMatcher()
	vm.Build(vocab)
	e.vocab = vocab
	e.vm = vm
}

// Vocabulary returns a copy of the current vocabulary.
func (e *Extractor) Vocabulary() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, len(e.vocab))
	copy(out, e.vocab)
	return out
}

// Stopwords returns the lexicon stopwords.
func (e *Extractor) Stopwords() normalize.Stopwords { return e.lex.Stopwords }

// Extract derives keywords:
//  1. trigger words found in the normalized query map to their category
//     (first entry in table order wins unless allTriggers is set);
//  2. vocabulary terms contained in the normalized response, plus short
//     comma/newline separated items of the response;
//  3. supplied keywords as given;
//  4. if all of the above yield nothing, query tokens minus stopwords.
func (e *Extractor) Extract(query, response string, supplied []string) Keywords {
	var kw Keywords
	seen := make(map[string]bool)
	add := func(src Source, terms ...string) {
		contributed := false
		for _, t := range terms {
			t = normalize.Text(t)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			kw.Terms = append(kw.Terms, t)
			contributed = true
		}
		if contributed {
			kw.Sources = append(kw.Sources, src)
		}
	}

	q := normalize.Text(query)
	add(SourceTrigger, e.triggerCategories(q)...)

	if r := normalize.Text(response); r != "" {
		e.mu.RLock()
		vocab, vm := e.vocab, e.vm
		e.mu.RUnlock()

		var hits []string
		for _, idx := range vm.MatchIndexes(r) {
			hits = append(hits, vocab[idx])
		}
		add(SourceVocabulary, hits...)

		known := make(map[string]bool, len(vocab))
		for _, v := range vocab {
			known[v] = true
		}
		items := normalize.Items(response, MaxItemWords, e.lex.Stopwords)
		for _, it := range items {
			if !known[it] {
				kw.Learned = append(kw.Learned, it)
			}
		}
		add(SourceResponse, items...)
	}

	add(SourceSupplied, supplied...)

	if kw.Empty() {
		add(SourceFallback, normalize.Tokenize(q, e.lex.Stopwords)...)
	}
	return kw
}

// triggerCategories returns the categories of trigger words present in q as
// whole words. The automaton reports raw substring hits ("tos" inside
// "productos"), so each hit is confirmed against token boundaries.
func (e *Extractor) triggerCategories(q string) []string {
	var cats []string
	// indexes are ascending: the first confirmed hit is the earliest table entry
	for _, idx := range e.triggers.MatchIndexes(q) {
		t := e.lex.Triggers[idx]
		if !containsWord(q, t.Word) {
			continue
		}
		cats = append(cats, t.Category)
		if !e.allTriggers {
			break
		}
	}
	return cats
}

// containsWord reports whether w occurs in s delimited by non-alphanumeric
// runes or the string ends.
func containsWord(s, w string) bool {
	if w == "" {
		return false
	}
	for off := 0; off <= len(s)-len(w); {
		i := strings.Index(s[off:], w)
		if i < 0 {
			return false
		}
		start, end := off+i, off+i+len(w)
		if boundaryBefore(s, start) && boundaryAfter(s, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		off = start + size
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
