package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/freqstore"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/metrics"
)

type memSource struct {
	texts   map[string]string
	failing map[string]bool
}

func (m *memSource) List(_ context.Context, suffix string) ([]string, error) {
	names := make([]string, 0, len(m.texts))
	for name := range m.texts {
		if strings.HasSuffix(name, suffix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *memSource) Read(_ context.Context, name string) ([]byte, error) {
	if m.failing[name] {
		return nil, apperrors.Newf(apperrors.ErrIO, 0, "reading %s: permission denied", name)
	}
	return []byte(m.texts[name]), nil
}

func (m *memSource) String() string { return "memory" }

type capturePublisher struct {
	mu     sync.Mutex
	events []kafka.Event
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, e kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) PublishBatch(ctx context.Context, events []kafka.Event) error {
	for _, e := range events {
		if err := p.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

type captureRecorder struct {
	mu      sync.Mutex
	records map[string]DocumentRecord
}

func (r *captureRecorder) Record(_ context.Context, rec DocumentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.records == nil {
		r.records = make(map[string]DocumentRecord)
	}
	r.records[rec.ID] = rec
	return nil
}

func testConfig(t *testing.T) config.StoreConfig {
	t.Helper()
	results := t.TempDir()
	return config.StoreConfig{
		ResultsDir:    results,
		Path:          filepath.Join(results, "frequencies_summary.json"),
		NormalizedDir: filepath.Join(results, "normalizado"),
		TextSuffix:    "_resumo.txt",
		IdentifierExt: ".pdf",
		Workers:       3,
	}
}

func testNormalizer(t *testing.T) *normalizer.Normalizer {
	t.Helper()
	n, err := normalizer.New(normalizer.NewStopwordSet("de", "a", "o", "e", "os"))
	require.NoError(t, err)
	return n
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	src := &memSource{texts: map[string]string{
		"A_resumo.txt": "Água, água e água de sol.",
		"B_resumo.txt": "O sol e os sóis",
		"notes.md":     "ignored",
	}}
	pub := &capturePublisher{}
	rec := &captureRecorder{}
	m := metrics.New(prometheus.NewRegistry())

	ix := New(cfg, src, testNormalizer(t),
		WithSink(NewDirSink(cfg.NormalizedDir)),
		WithPublisher(pub),
		WithStatusRecorder(rec),
		WithMetrics(m),
	)
	report, err := ix.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"A.pdf", "B.pdf"}, report.Normalized)
	assert.Empty(t, report.Failed)
	assert.Equal(t, 2, report.Documents)
	assert.Equal(t, cfg.Path, report.StorePath)

	store, err := freqstore.Load(cfg.Path)
	require.NoError(t, err)
	a, _ := store.Get("A.pdf")
	assert.Equal(t, freqstore.Record{{Term: "agua", Count: 3}, {Term: "sol", Count: 1}}, a)
	b, _ := store.Get("B.pdf")
	assert.Equal(t, freqstore.Record{{Term: "sol", Count: 1}, {Term: "soi", Count: 1}}, b)
	assert.Equal(t, 3, report.Terms)

	artifact, err := os.ReadFile(filepath.Join(cfg.NormalizedDir, "A_resumo.txt"))
	require.NoError(t, err)
	assert.Equal(t, "agua agua agua sol", string(artifact))

	require.Len(t, pub.events, 1)
	ev := pub.events[0].Value.(kafka.StoreUpdatedEvent)
	assert.Equal(t, 2, ev.Documents)
	assert.Equal(t, kafka.StoreUpdatedKey, pub.events[0].Key)

	assert.Equal(t, StatusNormalized, rec.records["A.pdf"].Status)
	assert.Equal(t, 4, rec.records["A.pdf"].Tokens)
}

func TestRun_UnreadableDocumentSkipped(t *testing.T) {
	cfg := testConfig(t)
	src := &memSource{
		texts: map[string]string{
			"A_resumo.txt": "agua",
			"B_resumo.txt": "sol",
			"C_resumo.txt": "lua",
		},
		failing: map[string]bool{"B_resumo.txt": true},
	}
	rec := &captureRecorder{}

	report, err := New(cfg, src, testNormalizer(t), WithStatusRecorder(rec)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"A.pdf", "C.pdf"}, report.Normalized)
	assert.Equal(t, []string{"B.pdf"}, report.Failed)
	assert.Equal(t, StatusFailed, rec.records["B.pdf"].Status)
	assert.Contains(t, rec.records["B.pdf"].Error, "B_resumo.txt")

	store, err := freqstore.Load(cfg.Path)
	require.NoError(t, err)
	_, ok := store.Get("B.pdf")
	assert.False(t, ok)
}

func TestRun_AppendMergesIntoExistingStore(t *testing.T) {
	cfg := testConfig(t)
	existing := freqstore.New()
	existing.Put("A.pdf", freqstore.Record{{Term: "velho", Count: 1}})
	existing.Put("Z.pdf", freqstore.Record{{Term: "mar", Count: 2}})
	require.NoError(t, existing.Save(cfg.Path))

	cfg.Append = true
	src := &memSource{texts: map[string]string{"A_resumo.txt": "novo novo"}}
	report, err := New(cfg, src, testNormalizer(t)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Documents)

	store, err := freqstore.Load(cfg.Path)
	require.NoError(t, err)
	a, _ := store.Get("A.pdf")
	assert.Equal(t, freqstore.Record{{Term: "novo", Count: 2}}, a)
	_, ok := store.Get("Z.pdf")
	assert.True(t, ok)
}

func TestRun_ReplaceModeDropsOldDocuments(t *testing.T) {
	cfg := testConfig(t)
	existing := freqstore.New()
	existing.Put("Z.pdf", freqstore.Record{{Term: "mar", Count: 2}})
	require.NoError(t, existing.Save(cfg.Path))

	src := &memSource{texts: map[string]string{"A_resumo.txt": "novo"}}
	_, err := New(cfg, src, testNormalizer(t)).Run(context.Background())
	require.NoError(t, err)

	store, err := freqstore.Load(cfg.Path)
	require.NoError(t, err)
	assert.Equal(t, []string{"A.pdf"}, store.IDs())
}

func TestRun_AbstractMarker(t *testing.T) {
	cfg := testConfig(t)
	cfg.AbstractMarker = "resumo"
	cfg.AbstractMaxWords = 2
	src := &memSource{texts: map[string]string{
		"A_resumo.txt": "Titulo ignorado RESUMO agua sol lua",
		"B_resumo.txt": "sem marcador aqui",
	}}

	report, err := New(cfg, src, testNormalizer(t)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A.pdf"}, report.Normalized)
	assert.Equal(t, []string{"B.pdf"}, report.Skipped)

	store, err := freqstore.Load(cfg.Path)
	require.NoError(t, err)
	a, _ := store.Get("A.pdf")
	assert.Equal(t, freqstore.Record{{Term: "agua", Count: 1}, {Term: "sol", Count: 1}}, a)
}

func TestRun_PublishFailureDoesNotFailRun(t *testing.T) {
	cfg := testConfig(t)
	src := &memSource{texts: map[string]string{"A_resumo.txt": "agua"}}
	pub := &capturePublisher{err: errors.New("broker down")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := New(cfg, src, testNormalizer(t), WithPublisher(pub)).Run(ctx)
	require.NoError(t, err)
}

func TestRun_WithDirSource(t *testing.T) {
	cfg := testConfig(t)
	textDir := filepath.Join(cfg.ResultsDir, "resumo")
	require.NoError(t, os.MkdirAll(textDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(textDir, "Doc_resumo.txt"), []byte("recupera-\ncao de informacao"), 0644))

	report, err := New(cfg, source.NewDir(textDir), testNormalizer(t)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Doc.pdf"}, report.Normalized)

	store, err := freqstore.Load(cfg.Path)
	require.NoError(t, err)
	rec, _ := store.Get("Doc.pdf")
	assert.Equal(t, 1, rec.Count("recuperacao"))
	assert.Equal(t, 1, rec.Count("informacao"))
}

func TestRun_CancelledContext(t *testing.T) {
	cfg := testConfig(t)
	src := &memSource{texts: map[string]string{"A_resumo.txt": "agua"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(cfg, src, testNormalizer(t)).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(cfg.Path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, "X.pdf", Identifier("X_resumo.txt", "_resumo.txt", ".pdf"))
	assert.Equal(t, "X.pdf", Identifier("X_RESUMO.TXT", "_resumo.txt", ".pdf"))
	assert.Equal(t, "other.md", Identifier("other.md", "_resumo.txt", ".pdf"))
	assert.Equal(t, "X_resumo.txt", Identifier("X_resumo.txt", "", ".pdf"))
}
