package keyfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nope.txt"))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAppend_CreatesAndDedups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "keywords.txt")
	s := New(path)

	n, err := s.Append("boldo", "diente de leon", "boldo", "  ")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Append("boldo", "arnica")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "boldo\ndiente de leon\narnica\n", string(data))
}

func TestLoad_IgnoresCommentsAndBlanks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.txt")
	require.NoError(t, os.WriteFile(path, []byte("# aprendidas\n\nboldo\n  arnica  \nboldo\n"), 0644))

	got, err := New(path).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"boldo", "arnica"}, got)
}

func TestAppend_RejectsMultiline(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "k.txt"))
	n, err := s.Append("uno\ndos")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAppend_TerminatesHandEditedLastLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.txt")
	require.NoError(t, os.WriteFile(path, []byte("# a mano\nvaleriana"), 0644))
	s := New(path)

	n, err := s.Append("jengibre")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"valeriana", "jengibre"}, got)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# a mano\nvaleriana\njengibre\n", string(raw))
}

func TestAppend_TerminatedFileGetsNoBlankLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.txt")
	require.NoError(t, os.WriteFile(path, []byte("valeriana\n"), 0644))

	_, err := New(path).Append("jengibre")
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "valeriana\njengibre\n", string(raw))
}
