// Package config loads botica settings. Sources are layered, later ones
// winning: built-in defaults, an optional YAML file, an optional .env file,
// then environment variables (BOTICA_*, OPENAI_API_KEY, GEMINI_API_KEY...).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/corey/botica/internal/adapters/llm"
	"github.com/corey/botica/internal/domain/catalog"
	"github.com/corey/botica/internal/ports"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the YAML file looked up when no path is given.
const DefaultFile = "botica.yaml"

// History backends.
const (
	BackendBBolt  = "bbolt"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendFile   = "file" // keywords only
)

// Config holds all application configuration.
type Config struct {
	DataDir    string           `yaml:"data_dir"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Match      MatchConfig      `yaml:"match"`
	Classifier ClassifierConfig `yaml:"classifier"`
	History    HistoryConfig    `yaml:"history"`
	Keywords   KeywordsConfig   `yaml:"keywords"`
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
}

// CatalogConfig locates the catalog spreadsheet and its columns.
type CatalogConfig struct {
	Path  string `yaml:"path"`
	Sheet string `yaml:"sheet,omitempty"`

	// Aliases replace the built-in header names per field
	// (code, name, category, price), in priority order.
	Aliases map[string][]string `yaml:"aliases,omitempty"`

	// Positions are 0-based column indexes used when a field's header is not found.
	Positions map[string]int `yaml:"positions,omitempty"`
}

// MatchConfig tunes keyword matching.
type MatchConfig struct {
	Policy      string   `yaml:"policy"`               // substring | word
	Exclusions  []string `yaml:"exclusions,omitempty"` // nil: lexicon default
	AllTriggers bool     `yaml:"all_triggers"`
}

// ClassifierConfig selects the text classification service.
type ClassifierConfig struct {
	Provider          string        `yaml:"provider"` // none | openai | gemini
	Model             string        `yaml:"model,omitempty"`
	BaseURL           string        `yaml:"base_url,omitempty"`
	Timeout           time.Duration `yaml:"timeout"`
	Retries           int           `yaml:"retries"`
	Backoff           time.Duration `yaml:"backoff"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`

	// Keys come from the environment only.
	OpenAIKey  string   `yaml:"-"`
	GeminiKeys []string `yaml:"-"`
}

// HistoryConfig selects the query log backend.
type HistoryConfig struct {
	Backend string `yaml:"backend"`        // bbolt | sqlite | memory
	Path    string `yaml:"path,omitempty"` // default under DataDir
	Keep    int    `yaml:"keep"`           // records kept by truncate
}

// KeywordsConfig selects where learned keywords are stored.
type KeywordsConfig struct {
	Backend string `yaml:"backend"`        // file | bbolt | sqlite | memory
	Path    string `yaml:"path,omitempty"` // default under DataDir
	Learn   bool   `yaml:"learn"`          // store new classifier items
	Watch   bool   `yaml:"watch"`          // reload the keyword file on change
}

// HTTPConfig configures the daemon's HTTP API.
type HTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"` // 0: derived from DataDir
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir: ".botica",
		Match:   MatchConfig{Policy: string(ports.PolicySubstring)},
		Classifier: ClassifierConfig{
			Provider: llm.ProviderNone,
			Timeout:  8 * time.Second,
			Retries:  2,
			Backoff:  time.Second,
			Burst:    1,
		},
		History:  HistoryConfig{Backend: BackendBBolt, Keep: 5},
		Keywords: KeywordsConfig{Backend: BackendFile, Learn: true, Watch: true},
		HTTP:     HTTPConfig{Enabled: true},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from path (YAML), envFile (.env) and the
// process environment. Empty path means DefaultFile; a missing file at
// either path is not an error.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultFile
	}
	if err := cfg.readYAML(path); err != nil {
		return nil, err
	}

	if envFile == "" {
		envFile = ".env"
	}
	// godotenv.Load never overrides variables already set in the process.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

func (c *Config) readYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Validate reports unknown enum values and out-of-range numbers.
func (c *Config) Validate() error {
	var errs []error
	if !ports.MatchPolicy(c.Match.Policy).Valid() {
		errs = append(errs, fmt.Errorf("match.policy: unknown policy %q (want substring or word)", c.Match.Policy))
	}
	switch c.Classifier.Provider {
	case llm.ProviderNone, llm.ProviderOpenAI, llm.ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("classifier.provider: unknown provider %q", c.Classifier.Provider))
	}
	if c.Classifier.Timeout < 0 || c.Classifier.Retries < 0 || c.Classifier.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("classifier: timeout, retries and requests_per_second must not be negative"))
	}
	switch c.History.Backend {
	case BackendBBolt, BackendSQLite, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("history.backend: unknown backend %q", c.History.Backend))
	}
	if c.History.Keep < 0 {
		errs = append(errs, errors.New("history.keep must not be negative"))
	}
	switch c.Keywords.Backend {
	case BackendFile, BackendBBolt, BackendSQLite, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("keywords.backend: unknown backend %q", c.Keywords.Backend))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if _, err := c.SchemaOptions(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SchemaOptions converts the catalog column settings for the catalog loader.
func (c *Config) SchemaOptions() (catalog.SchemaOptions, error) {
	var opts catalog.SchemaOptions
	for name, aliases := range c.Catalog.Aliases {
		f, ok := catalog.ParseField(name)
		if !ok {
			return opts, fmt.Errorf("catalog.aliases: unknown field %q", name)
		}
		if opts.Aliases == nil {
			opts.Aliases = make(map[catalog.Field][]string)
		}
		opts.Aliases[f] = aliases
	}
	for name, pos := range c.Catalog.Positions {
		f, ok := catalog.ParseField(name)
		if !ok {
			return opts, fmt.Errorf("catalog.positions: unknown field %q", name)
		}
		if pos < 0 {
			return opts, fmt.Errorf("catalog.positions.%s: negative index %d", name, pos)
		}
		if opts.Positions == nil {
			opts.Positions = make(map[catalog.Field]int)
		}
		opts.Positions[f] = pos
	}
	return opts, nil
}

// MatchOptions converts match settings. defaultExclusions applies when the
// configuration does not set its own list.
func (c *Config) MatchOptions(defaultExclusions []string) ports.MatchOptions {
	excl := c.Match.Exclusions
	if excl == nil {
		excl = defaultExclusions
	}
	return ports.MatchOptions{
		Policy:      ports.MatchPolicy(c.Match.Policy),
		Exclusions:  excl,
		AllTriggers: c.Match.AllTriggers,
	}
}

// LLMOptions converts classifier settings for the llm adapter.
func (c *Config) LLMOptions() llm.Options {
	cc := c.Classifier
	opts := llm.Options{
		Provider:     cc.Provider,
		Model:        cc.Model,
		BaseURL:      cc.BaseURL,
		Retries:      cc.Retries,
		Backoff:      cc.Backoff,
		RequestsPerS: cc.RequestsPerSecond,
		Burst:        cc.Burst,
	}
	switch cc.Provider {
	case llm.ProviderOpenAI:
		if cc.OpenAIKey != "" {
			opts.APIKeys = []string{cc.OpenAIKey}
		}
	case llm.ProviderGemini:
		opts.APIKeys = cc.GeminiKeys
	}
	return opts
}

// HistoryPath returns the history store file, defaulting under DataDir.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	switch c.History.Backend {
	case BackendSQLite:
		return filepath.Join(c.DataDir, "history.sqlite")
	default:
		return filepath.Join(c.DataDir, "botica.db")
	}
}

// KeywordsPath returns the learned keyword store, defaulting under DataDir.
// The database backends default to the history file so both share one handle.
func (c *Config) KeywordsPath() string {
	if c.Keywords.Path != "" {
		return c.Keywords.Path
	}
	switch c.Keywords.Backend {
	case BackendBBolt:
		return filepath.Join(c.DataDir, "botica.db")
	case BackendSQLite:
		return filepath.Join(c.DataDir, "history.sqlite")
	default:
		return filepath.Join(c.DataDir, "keywords.txt")
	}
}

// String renders the configuration as YAML with secrets masked.
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	var b strings.Builder
	b.Write(data)
	b.WriteString("# keys: ")
	b.WriteString(fmt.Sprintf("openai=%s gemini=%d\n", mask(c.Classifier.OpenAIKey), len(c.Classifier.GeminiKeys)))
	return b.String()
}

func mask(s string) string {
	if s == "" {
		return "unset"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "…" + s[len(s)-4:]
}
