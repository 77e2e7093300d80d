package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/freqstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/errors"
)

func TestNormalizeToken(t *testing.T) {
	stop := NewStopwordSet("de", "para", "não")

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"strips accents", "Água", "agua"},
		{"cedilla", "ação", "acao"},
		{"drops digits and punctuation", "sol,", "sol"},
		{"keeps inner hyphen", "guarda-chuva", "guarda-chuva"},
		{"drops leading hyphen", "-sol", "sol"},
		{"drops trailing hyphen", "sol-", "sol"},
		{"drops hyphen next to digit", "a-1b", "ab"},
		{"plural es", "redes", "red"},
		{"plural s", "casas", "casa"},
		{"short es word keeps s strip only", "mes", "me"},
		{"two letters untouched", "as", "as"},
		{"too short", "x", ""},
		{"only digits", "2024", ""},
		{"stopword", "para", ""},
		{"stopword matched after folding", "Não", ""},
		{"stopword matched after plural strip", "des", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeToken(tt.raw, stop))
		})
	}
}

func TestNormalizeToken_NilStopwordsRejectsNothing(t *testing.T) {
	assert.Equal(t, "para", NormalizeToken("para", nil))
}

func TestStripDiacritics(t *testing.T) {
	assert.Equal(t, "Agua acao pinguim", StripDiacritics("Água ação pinguïm"))
	assert.Equal(t, "naive cafe-2024", StripDiacritics("naïve café-2024"))
	assert.Equal(t, "", StripDiacritics(""))
}

func TestFold_Idempotent(t *testing.T) {
	inputs := []string{"Água", "guarda--chuva", "-a-b-", "123abc", "Ñandú", "C++", "e-mail!"}
	for _, in := range inputs {
		once := Fold(in)
		assert.Equal(t, once, Fold(once), "input %q", in)
	}
}

func TestNormalizeToken_IdempotentWithoutPluralSuffix(t *testing.T) {
	// Words whose folded form does not end in "s" are fixed points.
	inputs := []string{"Água", "guarda-chuva", "relógio", "Informação", "tempo"}
	for _, in := range inputs {
		once := NormalizeToken(in, nil)
		assert.Equal(t, once, NormalizeToken(once, nil), "input %q", in)
	}
}

func TestNew_RequiresStopwords(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConfiguration))

	n, err := New(NewStopwordSet())
	require.NoError(t, err)
	assert.NotNil(t, n)
}

func TestDocument(t *testing.T) {
	n, err := New(NewStopwordSet("de", "o", "a"))
	require.NoError(t, err)

	// Given text with a word hyphenated across a line break
	text := "O sol de verão aque-\nce a água.\r\nA água ferve, o sol brilha."

	// When it is normalized
	res := n.Document(text)

	// Then the split word is joined and stopwords are gone
	assert.Equal(t, []string{"sol", "verao", "aquece", "agua", "agua", "ferve", "sol", "brilha"}, res.Tokens)
	assert.Equal(t, freqstore.Record{
		{Term: "sol", Count: 2},
		{Term: "agua", Count: 2},
		{Term: "verao", Count: 1},
		{Term: "aquece", Count: 1},
		{Term: "ferve", Count: 1},
		{Term: "brilha", Count: 1},
	}, res.Record)
	assert.Equal(t, "sol verao aquece agua agua ferve sol brilha", res.Joined())
}

func TestDocument_StopwordsNeverCounted(t *testing.T) {
	stop := NewStopwordSet("sol", "lua")
	n, err := New(stop)
	require.NoError(t, err)

	res := n.Document("Sol, sóis e luas; SOL lua estrela")
	for _, tc := range res.Record {
		assert.False(t, stop.Contains(tc.Term), "stopword %q counted", tc.Term)
	}
	assert.Equal(t, 1, res.Record.Count("estrela"))
}

func TestDocument_Empty(t *testing.T) {
	n, err := New(NewStopwordSet())
	require.NoError(t, err)

	res := n.Document(" \n\t ")
	assert.Empty(t, res.Tokens)
	assert.Empty(t, res.Record)
	assert.Equal(t, "", res.Joined())
}

func TestQueryTerms(t *testing.T) {
	assert.Equal(t, []string{"agua", "sol", "agua"}, QueryTerms("  Água 42 SOL  agua "))
	assert.Empty(t, QueryTerms(""))
}

func TestCount_TiesKeepFirstOccurrence(t *testing.T) {
	rec := Count([]string{"b", "a", "c", "a", "b", "d"})
	assert.Equal(t, freqstore.Record{
		{Term: "b", Count: 2},
		{Term: "a", Count: 2},
		{Term: "c", Count: 1},
		{Term: "d", Count: 1},
	}, rec)
}

func BenchmarkDocument(b *testing.B) {
	n, err := New(NewStopwordSet("de", "a", "o", "que", "e"))
	if err != nil {
		b.Fatal(err)
	}
	text := "A recuperação de informação estuda modelos de busca que ordenam documen-\ntos por relevância e similaridade. "
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_ = n.Document(text)
	}
}
