// Package sqlite implements ports.HistoryStore and ports.KeywordStore on a
// single SQLite file through the pure-Go modernc driver.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/corey/botica/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
	seq      INTEGER PRIMARY KEY AUTOINCREMENT,
	id       TEXT NOT NULL,
	ts       TEXT NOT NULL,
	query    TEXT NOT NULL,
	keywords TEXT NOT NULL,
	source   TEXT NOT NULL,
	matches  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS keywords (
	seq    INTEGER PRIMARY KEY AUTOINCREMENT,
	phrase TEXT NOT NULL UNIQUE
);`

// Store implements ports.HistoryStore backed by SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex // one writer at a time
}

// Keywords implements ports.KeywordStore on the same database.
type Keywords struct {
	s *Store
}

var (
	_ ports.HistoryStore = (*Store)(nil)
	_ ports.KeywordStore = (*Keywords)(nil)
)

// NewStore opens (or creates) the database at path and applies the schema.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Keywords returns the learned keyword store sharing this database.
func (s *Store) Keywords() *Keywords { return &Keywords{s: s} }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Append adds a history record at the end of the log.
func (s *Store) Append(rec ports.HistoryRecord) error {
	kw, err := json.Marshal(rec.Keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT INTO history (id, ts, query, keywords, source, matches) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.UTC().Format(time.RFC3339Nano), rec.Query, string(kw), rec.Source, rec.Matches,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// All returns every record, oldest first.
func (s *Store) All() ([]ports.HistoryRecord, error) {
	rows, err := s.db.Query(`SELECT id, ts, query, keywords, source, matches FROM history ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []ports.HistoryRecord
	for rows.Next() {
		var (
			rec    ports.HistoryRecord
			ts, kw string
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.Query, &kw, &rec.Source, &rec.Matches); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("history %s: timestamp: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(kw), &rec.Keywords); err != nil {
			return nil, fmt.Errorf("history %s: keywords: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TruncateKeepLast deletes all but the newest n records.
func (s *Store) TruncateKeepLast(n int) (int, error) {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		`DELETE FROM history WHERE seq NOT IN (SELECT seq FROM history ORDER BY seq DESC LIMIT ?)`, n)
	if err != nil {
		return 0, fmt.Errorf("truncate history: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(removed), nil
}

// Load returns the learned phrases in insertion order.
func (k *Keywords) Load() ([]string, error) {
	rows, err := k.s.db.Query(`SELECT phrase FROM keywords ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Append stores the phrases not already present.
func (k *Keywords) Append(phrases ...string) (int, error) {
	k.s.mu.Lock()
	defer k.s.mu.Unlock()

	tx, err := k.s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO keywords (phrase) VALUES (?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	added := 0
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		res, err := stmt.Exec(p)
		if err != nil {
			return 0, fmt.Errorf("insert keyword %q: %w", p, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}
