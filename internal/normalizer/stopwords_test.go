package normalizer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/errors"
)

func TestReadStopwords_UTF8(t *testing.T) {
	set, err := ReadStopwords(strings.NewReader("\xef\xbb\xbfDe\n  você \n\nNÃO\r\n"))
	require.NoError(t, err)

	assert.Equal(t, 3, set.Len())
	assert.True(t, set.Contains("de"))
	assert.True(t, set.Contains("voce"))
	assert.True(t, set.Contains("nao"))
}

func TestReadStopwords_Latin1Fallback(t *testing.T) {
	// "você\nnão" encoded as ISO-8859-1.
	raw := []byte{'v', 'o', 'c', 0xea, '\n', 'n', 0xe3, 'o', '\n'}

	set, err := ReadStopwords(strings.NewReader(string(raw)))
	require.NoError(t, err)

	assert.True(t, set.Contains("voce"))
	assert.True(t, set.Contains("nao"))
}

func TestLoadStopwords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stopwords.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\no\nque\n"), 0644))

	set, err := LoadStopwords(path)
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())
}

func TestLoadStopwords_Missing(t *testing.T) {
	_, err := LoadStopwords(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConfiguration))
}

func TestStopwordSet_NilContainsNothing(t *testing.T) {
	var set StopwordSet
	assert.False(t, set.Contains("de"))
	assert.Equal(t, 0, set.Len())
}
