// Key and value encoding for the history and keyword buckets.
//
// Keys are big-endian uint64 sequence numbers from Bucket.NextSequence, so a
// cursor walks records in insertion order. Values are JSON.
//
//	history:       seq -> HistoryRecord (JSON)
//	keywords:      seq -> phrase (raw bytes)
//	keyword_index: phrase -> seq
package bbolt

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/corey/botica/internal/ports"
)

// seqSize is the byte size of an encoded sequence key.
const seqSize = 8

// seqKey encodes a sequence number as a sortable key.
func seqKey(seq uint64) []byte {
	b := make([]byte, seqSize)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

// keySeq decodes a key written by seqKey.
func keySeq(k []byte) (uint64, error) {
	if len(k) != seqSize {
		return 0, fmt.Errorf("sequence key: want %d bytes, got %d", seqSize, len(k))
	}
	return binary.BigEndian.Uint64(k), nil
}

func encodeRecord(rec ports.HistoryRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal history record: %w", err)
	}
	return data, nil
}

// decodeRecord unmarshals v. The bytes may belong to a bbolt transaction;
// json.Unmarshal copies what it keeps.
func decodeRecord(v []byte) (ports.HistoryRecord, error) {
	var rec ports.HistoryRecord
	if err := json.Unmarshal(v, &rec); err != nil {
		return rec, fmt.Errorf("unmarshal history record: %w", err)
	}
	return rec, nil
}
