package freqstore

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/errors"
)

const sampleStore = `{"A.pdf": [["agua", 3], ["sol", 1]], "B.pdf": [["sol", 2]]}`

func TestDecode(t *testing.T) {
	s, err := Decode(strings.NewReader(sampleStore))
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"A.pdf", "B.pdf"}, s.IDs())
	assert.Equal(t, 2, s.TermCount())

	a, ok := s.Get("A.pdf")
	require.True(t, ok)
	assert.Equal(t, Record{{Term: "agua", Count: 3}, {Term: "sol", Count: 1}}, a)
	assert.Equal(t, 3, a.MaxCount())
	assert.Equal(t, 0, a.Count("lua"))
}

func TestDecode_EmptyRecordAllowed(t *testing.T) {
	s, err := Decode(strings.NewReader(`{"C.pdf": []}`))
	require.NoError(t, err)
	rec, ok := s.Get("C.pdf")
	require.True(t, ok)
	assert.Empty(t, rec)
}

func TestDecode_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"A.pdf": [`},
		{"top-level array", `[["agua", 1]]`},
		{"null store", `null`},
		{"null record", `{"A.pdf": null}`},
		{"empty identifier", `{"": [["agua", 1]]}`},
		{"entry not an array", `{"A.pdf": ["agua"]}`},
		{"entry too long", `{"A.pdf": [["agua", 1, 2]]}`},
		{"token not a string", `{"A.pdf": [[7, 1]]}`},
		{"count not an integer", `{"A.pdf": [["agua", 1.5]]}`},
		{"count as string", `{"A.pdf": [["agua", "1"]]}`},
		{"zero count", `{"A.pdf": [["agua", 0]]}`},
		{"empty token", `{"A.pdf": [["", 1]]}`},
		{"duplicate token", `{"A.pdf": [["agua", 1], ["agua", 2]]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.data))
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrStoreCorrupt), "got %v", err)
		})
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "frequencies_summary.json"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrStoreNotFound))
}

func TestSaveLoad(t *testing.T) {
	for _, name := range []string{"frequencies_summary.json", "frequencies_summary.json.zst"} {
		t.Run(name, func(t *testing.T) {
			s, err := Decode(strings.NewReader(sampleStore))
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), "results", name)
			require.NoError(t, s.Save(path))

			_, err = os.Stat(path + ".tmp")
			assert.True(t, os.IsNotExist(err), "temp file left behind")

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, s.IDs(), loaded.IDs())
			for _, id := range s.IDs() {
				want, _ := s.Get(id)
				got, _ := loaded.Get(id)
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestEncode_PairShape(t *testing.T) {
	s := New()
	s.Put("água.pdf", Record{{Term: "agua", Count: 3}})

	var buf bytes.Buffer
	require.NoError(t, s.Encode(&buf))
	assert.Contains(t, buf.String(), `"água.pdf"`)
	assert.Contains(t, buf.String(), `"agua",`)
	assert.NotContains(t, buf.String(), `"Term"`)
}

func TestPut_Copies(t *testing.T) {
	rec := Record{{Term: "agua", Count: 1}}
	s := New()
	s.Put("A.pdf", rec)
	rec[0].Count = 99

	got, _ := s.Get("A.pdf")
	assert.Equal(t, 1, got[0].Count)
}

func TestMerge_ReplacesSharedIdentifiers(t *testing.T) {
	base := New()
	base.Put("A.pdf", Record{{Term: "agua", Count: 1}})
	base.Put("B.pdf", Record{{Term: "sol", Count: 1}})

	update := New()
	update.Put("B.pdf", Record{{Term: "lua", Count: 4}})
	update.Put("C.pdf", Record{{Term: "mar", Count: 2}})

	base.Merge(update)

	assert.Equal(t, []string{"A.pdf", "B.pdf", "C.pdf"}, base.IDs())
	b, _ := base.Get("B.pdf")
	assert.Equal(t, Record{{Term: "lua", Count: 4}}, b)

	base.Delete("A.pdf")
	assert.Equal(t, 2, base.Len())
}

func TestRecordSort_Stable(t *testing.T) {
	r := Record{{"a", 1}, {"b", 3}, {"c", 1}, {"d", 3}}
	r.Sort()
	assert.Equal(t, Record{{"b", 3}, {"d", 3}, {"a", 1}, {"c", 1}}, r)
}
