package bbolt

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/corey/botica/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// History log on bbolt: append-only, ordered, truncate-to-last-N
// Expectation: records survive reopen; concurrent appends are serialized
// =============================================================================

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func rec(i int) ports.HistoryRecord {
	return ports.HistoryRecord{
		ID:        fmt.Sprintf("id-%d", i),
		Timestamp: time.Date(2026, 1, 1, 10, i, 0, 0, time.UTC),
		Query:     fmt.Sprintf("consulta %d", i),
		Keywords:  []string{"curcuma", fmt.Sprintf("kw%d", i)},
		Source:    "fallback",
		Matches:   i,
	}
}

func TestHistory_AppendAll(t *testing.T) {
	s, _ := newTestStore(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Append(rec(i)))
	}
	all, err := s.All()
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, r := range all {
		assert.Equal(t, rec(i).ID, r.ID)
		assert.True(t, rec(i).Timestamp.Equal(r.Timestamp))
		assert.Equal(t, rec(i).Keywords, r.Keywords)
	}
}

func TestHistory_EmptyStore(t *testing.T) {
	s, _ := newTestStore(t)
	all, err := s.All()
	require.NoError(t, err)
	assert.Empty(t, all)

	n, err := s.TruncateKeepLast(5)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHistory_TruncateKeepLast(t *testing.T) {
	s, _ := newTestStore(t)
	for i := 0; i < 8; i++ {
		require.NoError(t, s.Append(rec(i)))
	}
	n, err := s.TruncateKeepLast(5)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := s.All()
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "id-3", all[0].ID)
	assert.Equal(t, "id-7", all[4].ID)

	// appends after truncation continue at the end
	require.NoError(t, s.Append(rec(9)))
	all, err = s.All()
	require.NoError(t, err)
	assert.Equal(t, "id-9", all[len(all)-1].ID)
}

func TestHistory_TruncateZeroEmpties(t *testing.T) {
	s, _ := newTestStore(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Append(rec(i)))
	}
	n, err := s.TruncateKeepLast(0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	all, err := s.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestHistory_SurvivesReopen(t *testing.T) {
	s, path := newTestStore(t)
	require.NoError(t, s.Append(rec(1)))
	require.NoError(t, s.Close())

	s2, err := NewStore(path)
	require.NoError(t, err)
	defer s2.Close()
	all, err := s2.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "consulta 1", all[0].Query)
}

func TestHistory_ConcurrentAppends(t *testing.T) {
	s, _ := newTestStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Append(rec(i)))
		}(i)
	}
	wg.Wait()
	all, err := s.All()
	require.NoError(t, err)
	assert.Len(t, all, 20)
}

func TestSeqKey_Ordered(t *testing.T) {
	a, b := seqKey(9), seqKey(10)
	assert.Less(t, string(a), string(b))
	got, err := keySeq(b)
	require.NoError(t, err)
	assert.EqualValues(t, 10, got)

	_, err = keySeq([]byte{1, 2})
	assert.Error(t, err)
}

// =============================================================================
// Learned keywords: insertion order, de-duplication
// =============================================================================

func TestKeywords_AppendLoad(t *testing.T) {
	s, _ := newTestStore(t)
	kw := s.Keywords()

	n, err := kw.Append("diente de leon", " boldo ", "", "diente de leon")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = kw.Append("boldo", "cola de caballo")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := kw.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"diente de leon", "boldo", "cola de caballo"}, got)
}

func TestKeywords_IndependentOfHistory(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Append(rec(1)))
	_, err := s.Keywords().Append("boldo")
	require.NoError(t, err)

	_, err = s.TruncateKeepLast(0)
	require.NoError(t, err)
	got, err := s.Keywords().Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"boldo"}, got)
}
