// Package bbolt implements ports.HistoryStore and ports.KeywordStore on bbolt
// (embedded B+ tree). History records and learned keywords live in separate
// buckets of one file. Writes are transactional: a crash mid-write cannot
// corrupt previously committed records, and bbolt's single writer serializes
// appends from concurrent sessions.
package bbolt

import (
	"fmt"
	"strings"
	"time"

	"github.com/corey/botica/internal/ports"
	bolt "go.etcd.io/bbolt"
)

// Bucket keys
var (
	bucketHistory      = []byte("history")
	bucketKeywords     = []byte("keywords")
	bucketKeywordIndex = []byte("keyword_index")
)

// Store implements ports.HistoryStore backed by bbolt. Keywords returns the
// keyword store view over the same file.
type Store struct {
	db *bolt.DB
}

// Keywords implements ports.KeywordStore on the store's keyword buckets.
type Keywords struct {
	db *bolt.DB
}

var (
	_ ports.HistoryStore = (*Store)(nil)
	_ ports.KeywordStore = (*Keywords)(nil)
)

// NewStore opens (or creates) a bbolt database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketHistory, bucketKeywords, bucketKeywordIndex} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bbolt init buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Keywords returns the learned keyword store sharing this database.
func (s *Store) Keywords() *Keywords {
	return &Keywords{db: s.db}
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append adds a history record at the end of the log.
func (s *Store) Append(rec ports.HistoryRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHistory)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
}

// All returns every history record, oldest first.
func (s *Store) All() ([]ports.HistoryRecord, error) {
	var out []ports.HistoryRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHistory).ForEach(func(k, v []byte) error {
			rec, err := decodeRecord(v)
			if err != nil {
				seq, _ := keySeq(k)
				return fmt.Errorf("record %d: %w", seq, err)
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TruncateKeepLast deletes all but the newest n records.
func (s *Store) TruncateKeepLast(n int) (int, error) {
	if n < 0 {
		n = 0
	}
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHistory)
		total := b.Stats().KeyN
		drop := total - n
		if drop <= 0 {
			return nil
		}
		// Collect first: deleting while iterating skips keys.
		keys := make([][]byte, 0, drop)
		c := b.Cursor()
		for k, _ := c.First(); k != nil && len(keys) < drop; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(keys)
		return nil
	})
	return removed, err
}

// Load returns the learned keyword phrases in insertion order.
func (k *Keywords) Load() ([]string, error) {
	var out []string
	err := k.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKeywords).ForEach(func(_, v []byte) error {
			out = append(out, string(v))
			return nil
		})
	})
	return out, err
}

// Append stores the phrases not already present. Whitespace is trimmed;
// empty phrases are ignored.
func (k *Keywords) Append(phrases ...string) (int, error) {
	added := 0
	err := k.db.Update(func(tx *bolt.Tx) error {
		kb := tx.Bucket(bucketKeywords)
		ib := tx.Bucket(bucketKeywordIndex)
		for _, p := range phrases {
			p = strings.TrimSpace(p)
			if p == "" || ib.Get([]byte(p)) != nil {
				continue
			}
			seq, err := kb.NextSequence()
			if err != nil {
				return err
			}
			key := seqKey(seq)
			if err := kb.Put(key, []byte(p)); err != nil {
				return err
			}
			if err := ib.Put([]byte(p), key); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}
