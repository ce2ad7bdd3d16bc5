package ports

import "time"

// HistoryRecord is one executed query.
type HistoryRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Query     string    `json:"query"`
	Keywords  []string  `json:"keywords"`
	Source    string    `json:"source"`
	Matches   int       `json:"matches"`
}

// HistoryStore is an append-only log of queries.
// Appends from concurrent sessions are serialized by the adapter.
type HistoryStore interface {
	// Append adds a record at the end of the log.
	Append(rec HistoryRecord) error

	// All returns every record, oldest first.
	All() ([]HistoryRecord, error)

	// TruncateKeepLast drops all but the newest n records and returns how many
	// were removed. n <= 0 empties the log.
	TruncateKeepLast(n int) (int, error)

	Close() error
}

// KeywordStore persists phrases learned from classifier responses so they can
// extend the extraction vocabulary in later sessions.
type KeywordStore interface {
	// Load returns all stored phrases in insertion order.
	Load() ([]string, error)

	// Append stores the phrases not already present and returns how many
	// were added. Empty phrases are ignored.
	Append(phrases ...string) (int, error)
}
