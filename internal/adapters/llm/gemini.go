package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// Gemini completes prompts with Google's Gemini models. Several API keys may
// be configured; a rate-limited key hands over to the next one.
type Gemini struct {
	model string
	log   logrus.FieldLogger

	mu      sync.Mutex
	clients []*genai.Client
	current int
}

// NewGemini opens one client per key.
func NewGemini(ctx context.Context, keys []string, model string, log logrus.FieldLogger) (*Gemini, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	g := &Gemini{model: model, log: log}
	for i, k := range keys {
		c, err := genai.NewClient(ctx, option.WithAPIKey(k))
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("gemini client %d: %w", i+1, err)
		}
		g.clients = append(g.clients, c)
	}
	return g, nil
}

// Keys returns how many API keys are configured.
func (g *Gemini) Keys() int { return len(g.clients) }

// Complete tries the current key, rotating through the others while they
// report rate limiting. Other errors are returned at once.
func (g *Gemini) Complete(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	for range g.clients {
		idx, client := g.client()
		text, err := g.generate(ctx, client, system, user)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !isRateLimitText(err) {
			return "", fmt.Errorf("gemini: %w", err)
		}
		g.rotate(idx)
		g.log.WithFields(logrus.Fields{"key": idx + 1, "error": err}).Warn("gemini key rate limited, rotating")
	}
	return "", fmt.Errorf("gemini: all %d keys rate limited: %w: %v", len(g.clients), ErrRateLimited, lastErr)
}

func (g *Gemini) generate(ctx context.Context, client *genai.Client, system, user string) (string, error) {
	model := client.GenerativeModel(g.model)
	model.SetTemperature(0.2)
	if system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}
	resp, err := model.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response candidates")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	text := stripFences(b.String())
	if text == "" {
		return "", fmt.Errorf("empty response text")
	}
	return text, nil
}

func (g *Gemini) client() (int, *genai.Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current, g.clients[g.current]
}

// rotate advances past idx unless another caller already did.
func (g *Gemini) rotate(idx int) {
	g.mu.Lock()
	if g.current == idx {
		g.current = (g.current + 1) % len(g.clients)
	}
	g.mu.Unlock()
}

// Close releases every client.
func (g *Gemini) Close() error {
	var first error
	for _, c := range g.clients {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
