// Package keyfile stores learned keywords in a plain text file, one phrase
// per line. The file can be edited by hand; blank lines and lines starting
// with '#' are ignored.
package keyfile

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/corey/botica/internal/ports"
)

// Store implements ports.KeywordStore on a flat file.
type Store struct {
	path string
	mu   sync.Mutex
}

var _ ports.KeywordStore = (*Store)(nil)

// New returns a store for path. The file is created on first Append.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the phrases in file order, without duplicates.
// A missing file is an empty store.
func (s *Store) Load() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open keyword file: %w", err)
	}
	defer f.Close()

	seen := make(map[string]bool)
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read keyword file: %w", err)
	}
	return out, nil
}

// Append adds the phrases not already in the file. The file is synced
// before Append returns.
func (s *Store) Append(phrases ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load()
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[p] = true
	}

	var fresh []string
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if p == "" || strings.ContainsAny(p, "\r\n") || seen[p] {
			continue
		}
		seen[p] = true
		fresh = append(fresh, p)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return 0, fmt.Errorf("create keyword dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return 0, fmt.Errorf("open keyword file: %w", err)
	}
	n, err := writePhrases(f, fresh)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close keyword file: %w", cerr)
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// writePhrases appends one phrase per line and syncs. A hand-edited file
// whose last line lacks a newline gets one first, so phrases never merge.
func writePhrases(f *os.File, phrases []string) (int, error) {
	open, err := unterminated(f)
	if err != nil {
		return 0, err
	}
	w := bufio.NewWriter(f)
	if open {
		w.WriteByte('\n')
	}
	for _, p := range phrases {
		w.WriteString(p)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return 0, fmt.Errorf("write keyword file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("sync keyword file: %w", err)
	}
	return len(phrases), nil
}

// unterminated reports whether f is non-empty and its last byte is not '\n'.
func unterminated(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat keyword file: %w", err)
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, fmt.Errorf("read keyword file: %w", err)
	}
	return last[0] != '\n', nil
}
