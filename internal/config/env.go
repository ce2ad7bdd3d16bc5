package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LookupFunc reads one environment variable (os.LookupEnv in production).
type LookupFunc func(key string) (string, bool)

// MaxGeminiKeys is how many numbered GEMINI_API_KEY_n variables are read.
const MaxGeminiKeys = 4

// ApplyEnv overrides settings from environment variables. Malformed numbers
// and durations are ignored so a typo never blocks startup; Validate still
// catches unknown enum values.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
				*dst = d
			}
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}

	str("BOTICA_DATA_DIR", &c.DataDir)
	str("BOTICA_CATALOG", &c.Catalog.Path)
	str("BOTICA_SHEET", &c.Catalog.Sheet)

	str("BOTICA_POLICY", &c.Match.Policy)
	if v, ok := lookup("BOTICA_EXCLUSIONS"); ok {
		c.Match.Exclusions = splitList(v)
	}
	boolean("BOTICA_ALL_TRIGGERS", &c.Match.AllTriggers)

	str("BOTICA_CLASSIFIER", &c.Classifier.Provider)
	str("BOTICA_MODEL", &c.Classifier.Model)
	str("OPENAI_BASE_URL", &c.Classifier.BaseURL)
	str("BOTICA_BASE_URL", &c.Classifier.BaseURL)
	duration("BOTICA_CLASSIFIER_TIMEOUT", &c.Classifier.Timeout)
	integer("BOTICA_CLASSIFIER_RETRIES", &c.Classifier.Retries)
	str("OPENAI_API_KEY", &c.Classifier.OpenAIKey)
	c.Classifier.GeminiKeys = geminiKeys(lookup, c.Classifier.GeminiKeys)

	str("BOTICA_HISTORY_BACKEND", &c.History.Backend)
	str("BOTICA_HISTORY_PATH", &c.History.Path)
	integer("BOTICA_HISTORY_KEEP", &c.History.Keep)

	str("BOTICA_KEYWORDS_BACKEND", &c.Keywords.Backend)
	str("BOTICA_KEYWORDS_PATH", &c.Keywords.Path)
	boolean("BOTICA_KEYWORDS_LEARN", &c.Keywords.Learn)

	boolean("BOTICA_HTTP", &c.HTTP.Enabled)
	integer("BOTICA_HTTP_PORT", &c.HTTP.Port)

	str("BOTICA_LOG_LEVEL", &c.Log.Level)
	str("BOTICA_LOG_FORMAT", &c.Log.Format)
}

// geminiKeys collects GEMINI_API_KEY and GEMINI_API_KEY_1..n, in that order,
// without duplicates. Existing keys are kept when none is set.
func geminiKeys(lookup LookupFunc, existing []string) []string {
	names := []string{"GEMINI_API_KEY"}
	for i := 1; i <= MaxGeminiKeys; i++ {
		names = append(names, fmt.Sprintf("GEMINI_API_KEY_%d", i))
	}
	seen := make(map[string]bool)
	var keys []string
	for _, n := range names {
		v, ok := lookup(n)
		v = strings.TrimSpace(v)
		if !ok || v == "" || seen[v] {
			continue
		}
		seen[v] = true
		keys = append(keys, v)
	}
	if len(keys) == 0 {
		return existing
	}
	return keys
}

func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
