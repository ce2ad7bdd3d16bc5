// Package llm implements the classification service on hosted language
// models. A Completer sends one system+user prompt pair to a provider; the
// Classifier builds the prompts for need classification and product
// descriptions on top of it.
//
// Providers: OpenAI-compatible chat completions (go-openai, any BaseURL) and
// Google Gemini (generative-ai-go) with API key rotation. Both are wrapped in
// Retrying, which adds a client-side rate limit and exponential backoff.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/corey/botica/internal/ports"
	"github.com/sirupsen/logrus"
)

// Provider names.
const (
	ProviderNone   = "none"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Default models per provider.
const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-1.5-flash"
)

// Completer sends a single prompt and returns the model's text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Options selects and tunes a provider.
type Options struct {
	Provider string
	Model    string
	BaseURL  string   // OpenAI-compatible endpoint override
	APIKeys  []string // Gemini rotates through all; OpenAI uses the first

	Retries      int           // attempts after the first
	Backoff      time.Duration // first retry delay, doubled per attempt
	RequestsPerS float64       // 0 disables the client-side limit
	Burst        int
}

// ErrRateLimited marks provider responses that asked the client to slow down.
var ErrRateLimited = errors.New("rate limited")

// NewCompleter builds the provider client named by opts.Provider, wrapped in
// Retrying. Returns ports.ErrClassifierUnavailable for provider "none" or when
// no API key is configured.
func NewCompleter(ctx context.Context, opts Options, log logrus.FieldLogger) (Completer, func() error, error) {
	keys := nonEmpty(opts.APIKeys)
	noop := func() error { return nil }

	var (
		base    Completer
		closeFn = noop
	)
	switch strings.ToLower(opts.Provider) {
	case "", ProviderNone:
		return nil, noop, ports.ErrClassifierUnavailable
	case ProviderOpenAI:
		if len(keys) == 0 && opts.BaseURL == "" {
			return nil, noop, fmt.Errorf("openai: no API key: %w", ports.ErrClassifierUnavailable)
		}
		key := ""
		if len(keys) > 0 {
			key = keys[0]
		}
		base = NewOpenAI(key, opts.BaseURL, opts.Model)
	case ProviderGemini:
		if len(keys) == 0 {
			return nil, noop, fmt.Errorf("gemini: no API key: %w", ports.ErrClassifierUnavailable)
		}
		g, err := NewGemini(ctx, keys, opts.Model, log)
		if err != nil {
			return nil, noop, err
		}
		base, closeFn = g, g.Close
	default:
		return nil, noop, fmt.Errorf("unknown classifier provider %q", opts.Provider)
	}

	return NewRetrying(base, opts, log), closeFn, nil
}

// stripFences removes a surrounding Markdown code fence, with or without a
// language tag, and trims whitespace.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func nonEmpty(keys []string) []string {
	var out []string
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// isRateLimitText matches provider error strings that signal throttling.
func isRateLimitText(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource exhausted") ||
		strings.Contains(msg, "resourceexhausted") ||
		strings.Contains(msg, "429")
}
