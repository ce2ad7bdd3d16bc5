// Package lexicon embeds the canonical keyword table for compile-time inclusion.
// The table is a set of JSON files: ordered trigger words with the category each
// one maps to, the ingredient/category vocabulary used to read classifier
// responses, the stopword list for fallback tokenization and the default
// exclusion set.
//
// Usage:
//
//	lexicon.Load(lexicon.FS, "v1")
package lexicon

import "embed"

//go:embed v1/*.json
var FS embed.FS
