// Package lexicon parses the canonical keyword table: ordered trigger words that
// map free text to a category, the vocabulary used to read classifier
// responses, stopwords and the default exclusion set.
//
// The table is loaded once at startup from embedded JSON. Every entry is
// normalized at load time so the matcher compares folded text only.
package lexicon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/corey/botica/internal/domain/normalize"
)

// File names inside a lexicon version directory.
const (
	FileTriggers   = "triggers.json"
	FileVocabulary = "vocabulary.json"
	FileStopwords  = "stopwords.json"
	FileExclusions = "exclusions.json"
)

// Trigger maps a word or short phrase in user text to a canonical category.
type Trigger struct {
	Word     string `json:"trigger"`
	Category string `json:"category"`
}

// Lexicon holds the parsed keyword table. Triggers keep file order: when
// several triggers occur in one query, the earliest entry wins.
type Lexicon struct {
	Triggers   []Trigger
	Vocabulary []string
	Stopwords  normalize.Stopwords
	Exclusions []string
}

// Load reads the four lexicon files from dir inside fsys.
// Triggers and vocabulary are required; stopwords and exclusions are optional.
func Load(fsys fs.FS, dir string) (*Lexicon, error) {
	var triggers []Trigger
	if err := readJSON(fsys, path.Join(dir, FileTriggers), &triggers, true); err != nil {
		return nil, err
	}
	var vocab, stop, excl []string
	if err := readJSON(fsys, path.Join(dir, FileVocabulary), &vocab, true); err != nil {
		return nil, err
	}
	if err := readJSON(fsys, path.Join(dir, FileStopwords), &stop, false); err != nil {
		return nil, err
	}
	if err := readJSON(fsys, path.Join(dir, FileExclusions), &excl, false); err != nil {
		return nil, err
	}
	return New(triggers, vocab, stop, excl)
}

// New builds a Lexicon from raw entries. Duplicate trigger words keep their
// first position. Returns an error if no usable trigger or vocabulary entry remains.
func New(triggers []Trigger, vocabulary, stopwords, exclusions []string) (*Lexicon, error) {
	lex := &Lexicon{
		Stopwords:  normalize.NewStopwords(stopwords),
		Vocabulary: normalize.All(vocabulary),
		Exclusions: normalize.All(exclusions),
	}

	seen := make(map[string]bool, len(triggers))
	for i, t := range triggers {
		word := normalize.Text(t.Word)
		cat := normalize.Text(t.Category)
		if word == "" || cat == "" {
			return nil, fmt.Errorf("trigger %d: empty word or category", i)
		}
		if seen[word] {
			continue
		}
		seen[word] = true
		lex.Triggers = append(lex.Triggers, Trigger{Word: word, Category: cat})
	}

	if len(lex.Triggers) == 0 {
		return nil, fmt.Errorf("lexicon has no triggers")
	}
	if len(lex.Vocabulary) == 0 {
		return nil, fmt.Errorf("lexicon has no vocabulary")
	}
	return lex, nil
}

// TriggerWords returns the trigger words in table order.
func (l *Lexicon) TriggerWords() []string {
	words := make([]string, len(l.Triggers))
	for i, t := range l.Triggers {
		words[i] = t.Word
	}
	return words
}

// Categories returns the distinct trigger categories in first-seen order.
func (l *Lexicon) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, t := range l.Triggers {
		if !seen[t.Category] {
			seen[t.Category] = true
			cats = append(cats, t.Category)
		}
	}
	return cats
}

// WithVocabulary returns a copy whose vocabulary is the base vocabulary plus
// extra (normalized, without duplicates). The receiver is not modified.
func (l *Lexicon) WithVocabulary(extra []string) *Lexicon {
	merged := make([]string, 0, len(l.Vocabulary)+len(extra))
	merged = append(merged, l.Vocabulary...)
	merged = append(merged, extra...)
	cp := *l
	cp.Vocabulary = normalize.All(merged)
	return &cp
}

func readJSON(fsys fs.FS, name string, v any, required bool) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}
