// Package memory provides in-process history and keyword stores for tests and
// ephemeral sessions. Nothing is persisted.
package memory

import (
	"strings"
	"sync"

	"github.com/corey/botica/internal/ports"
)

// History is an in-memory ports.HistoryStore.
type History struct {
	mu      sync.Mutex
	records []ports.HistoryRecord
}

// Keywords is an in-memory ports.KeywordStore.
type Keywords struct {
	mu      sync.Mutex
	phrases []string
	seen    map[string]bool
}

var (
	_ ports.HistoryStore = (*History)(nil)
	_ ports.KeywordStore = (*Keywords)(nil)
)

// NewHistory returns an empty history log.
func NewHistory() *History { return &History{} }

func (h *History) Append(rec ports.HistoryRecord) error {
	rec.Keywords = append([]string(nil), rec.Keywords...)
	h.mu.Lock()
	h.records = append(h.records, rec)
	h.mu.Unlock()
	return nil
}

func (h *History) All() ([]ports.HistoryRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]ports.HistoryRecord, len(h.records))
	copy(out, h.records)
	return out, nil
}

func (h *History) TruncateKeepLast(n int) (int, error) {
	if n < 0 {
		n = 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	drop := len(h.records) - n
	if drop <= 0 {
		return 0, nil
	}
	h.records = append([]ports.HistoryRecord(nil), h.records[drop:]...)
	return drop, nil
}

func (h *History) Close() error { return nil }

// NewKeywords returns a keyword store seeded with phrases.
func NewKeywords(phrases ...string) *Keywords {
	k := &Keywords{seen: make(map[string]bool)}
	k.Append(phrases...)
	return k
}

func (k *Keywords) Load() ([]string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]string(nil), k.phrases...), nil
}

func (k *Keywords) Append(phrases ...string) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	added := 0
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if p == "" || k.seen[p] {
			continue
		}
		k.seen[p] = true
		k.phrases = append(k.phrases, p)
		added++
	}
	return added, nil
}
