package models

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/freqstore"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/metrics"
)

func writeStore(t *testing.T, path string, docs map[string]freqstore.Record) {
	t.Helper()
	s := freqstore.New()
	for id, rec := range docs {
		s.Put(id, rec)
	}
	require.NoError(t, s.Save(path))
}

func TestRegistry_UnavailableUntilLoaded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frequencies_summary.json")
	r := NewRegistry(path, metrics.New(prometheus.NewRegistry()))

	_, err := r.Current()
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrModelsUnavailable))

	_, err = r.Reload(context.Background(), TriggerStartup)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrStoreNotFound))

	_, err = r.Current()
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrModelsUnavailable))
	assert.Contains(t, err.Error(), "frequency store not found")
}

func TestRegistry_ReloadSwapsGenerations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frequencies_summary.json")
	writeStore(t, path, map[string]freqstore.Record{
		"A.pdf": {{Term: "agua", Count: 3}, {Term: "sol", Count: 1}},
		"B.pdf": {{Term: "sol", Count: 2}},
	})
	r := NewRegistry(path, nil)

	var notified []uint64
	r.OnReload(func(m *Models) { notified = append(notified, m.Generation) })

	first, err := r.Reload(context.Background(), TriggerStartup)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Documents)
	assert.Equal(t, 2, first.Terms)

	got, err := first.Boolean.Evaluate("agua")
	require.NoError(t, err)
	assert.Equal(t, []string{"A.pdf"}, got)

	writeStore(t, path, map[string]freqstore.Record{
		"C.pdf": {{Term: "lua", Count: 1}},
	})
	second, err := r.Reload(context.Background(), TriggerHTTP)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Generation)

	current, err := r.Current()
	require.NoError(t, err)
	assert.Same(t, second, current)
	assert.Equal(t, []uint64{1, 2}, notified)

	// The old generation is untouched and still answers from its snapshot.
	got, err = first.Boolean.Evaluate("agua")
	require.NoError(t, err)
	assert.Equal(t, []string{"A.pdf"}, got)
}

func TestRegistry_FailedReloadKeepsPreviousModels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frequencies_summary.json")
	writeStore(t, path, map[string]freqstore.Record{"A.pdf": {{Term: "agua", Count: 1}}})
	r := NewRegistry(path, nil)
	first, err := r.Reload(context.Background(), TriggerStartup)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"A.pdf": [["agua"]]}`), 0644))
	_, err = r.Reload(context.Background(), TriggerHTTP)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrStoreCorrupt))

	current, err := r.Current()
	require.NoError(t, err)
	assert.Same(t, first, current)
}

func TestRegistry_ConcurrentQueriesDuringReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frequencies_summary.json")
	writeStore(t, path, map[string]freqstore.Record{
		"A.pdf": {{Term: "agua", Count: 1}},
		"B.pdf": {{Term: "sol", Count: 1}},
	})
	r := NewRegistry(path, nil)
	_, err := r.Reload(context.Background(), TriggerStartup)
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				m, err := r.Current()
				if !assert.NoError(t, err) {
					return
				}
				ids, err := m.Boolean.Evaluate("agua OR NOT agua")
				assert.NoError(t, err)
				assert.Len(t, ids, m.Documents)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		_, err := r.Reload(context.Background(), TriggerHTTP)
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
}

func TestStoreUpdatedHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frequencies_summary.json")
	writeStore(t, path, map[string]freqstore.Record{"A.pdf": {{Term: "agua", Count: 1}}})
	r := NewRegistry(path, nil)
	h := StoreUpdatedHandler(r)

	other, _ := json.Marshal(kafka.StoreUpdatedEvent{StorePath: "/elsewhere/store.json"})
	require.NoError(t, h(context.Background(), nil, other))
	_, err := r.Current()
	assert.Error(t, err)

	require.NoError(t, h(context.Background(), nil, []byte("garbage")))

	mine, _ := json.Marshal(kafka.StoreUpdatedEvent{StorePath: path, Documents: 1})
	require.NoError(t, h(context.Background(), nil, mine))
	m, err := r.Current()
	require.NoError(t, err)
	assert.Equal(t, 1, m.Documents)
}

func TestWatch_ReloadsOnAtomicSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frequencies_summary.json")
	writeStore(t, path, map[string]freqstore.Record{"A.pdf": {{Term: "agua", Count: 1}}})
	r := NewRegistry(path, nil)
	_, err := r.Reload(context.Background(), TriggerStartup)
	require.NoError(t, err)

	reloaded := make(chan *Models, 4)
	r.OnReload(func(m *Models) { reloaded <- m })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx, 20*time.Millisecond) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeStore(t, path, map[string]freqstore.Record{
		"A.pdf": {{Term: "agua", Count: 1}},
		"B.pdf": {{Term: "sol", Count: 1}},
	})

	select {
	case m := <-reloaded:
		assert.Equal(t, 2, m.Documents)
	case <-time.After(5 * time.Second):
		t.Fatal("store change did not trigger a reload")
	}
}
