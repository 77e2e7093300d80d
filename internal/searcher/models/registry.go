// Package models owns the engines the search service queries. Both engines
// are built from one frequency store snapshot and published together behind
// an atomic pointer, so a reload never mutates engines that in-flight
// queries are using.
package models

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/freqstore"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/searcher/boolean"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/searcher/vector"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/metrics"
)

// Reload triggers, used as the metrics label and in logs.
const (
	TriggerStartup = "startup"
	TriggerHTTP    = "http"
	TriggerWatch   = "watch"
	TriggerEvent   = "event"
)

// Models is one immutable generation of engines.
type Models struct {
	Boolean   *boolean.Engine
	Vector    *vector.Engine
	StorePath string
	Documents int
	Terms     int
	LoadedAt  time.Time
	// Generation increases by one with every successful reload.
	Generation uint64
}

// Registry serves the current Models and rebuilds them on demand.
type Registry struct {
	path    string
	metrics *metrics.Metrics
	logger  *slog.Logger

	current    atomic.Pointer[Models]
	reloadMu   sync.Mutex
	generation uint64

	mu        sync.RWMutex
	lastErr   error
	listeners []func(*Models)
}

// NewRegistry returns a Registry for the store at path. It serves nothing
// until the first successful Reload.
func NewRegistry(path string, m *metrics.Metrics) *Registry {
	return &Registry{
		path:    path,
		metrics: m,
		logger:  slog.Default().With("component", "model-registry", "store", path),
	}
}

// StorePath returns the frequency store the registry loads.
func (r *Registry) StorePath() string {
	return r.path
}

// OnReload registers fn to run after every successful swap, before Reload
// returns.
func (r *Registry) OnReload(fn func(*Models)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Current returns the served Models, or ErrModelsUnavailable when no load has
// succeeded yet.
func (r *Registry) Current() (*Models, error) {
	if m := r.current.Load(); m != nil {
		return m, nil
	}
	r.mu.RLock()
	cause := r.lastErr
	r.mu.RUnlock()
	if cause != nil {
		return nil, apperrors.Newf(apperrors.ErrModelsUnavailable, 0, "%v", cause)
	}
	return nil, apperrors.New(apperrors.ErrModelsUnavailable, 0, "models not loaded yet")
}

// Reload reads the store, builds both engines and swaps them in. Reloads are
// serialized. On failure the previously served Models stay in place.
func (r *Registry) Reload(ctx context.Context, trigger string) (*Models, error) {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	store, err := freqstore.Load(r.path)
	if err != nil {
		r.recordFailure(trigger, err)
		return nil, err
	}
	r.generation++
	next := &Models{
		Boolean:    boolean.New(store),
		Vector:     vector.New(store),
		StorePath:  r.path,
		Documents:  store.Len(),
		Terms:      store.TermCount(),
		LoadedAt:   time.Now().UTC(),
		Generation: r.generation,
	}
	previous := r.current.Swap(next)

	r.mu.Lock()
	r.lastErr = nil
	listeners := append([]func(*Models){}, r.listeners...)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ModelReloads.WithLabelValues(trigger, "ok").Inc()
		r.metrics.LoadedDocuments.Set(float64(next.Documents))
		r.metrics.LoadedTerms.Set(float64(next.Terms))
	}
	var prevDocs int
	if previous != nil {
		prevDocs = previous.Documents
	}
	r.logger.Info("models reloaded",
		"trigger", trigger,
		"generation", next.Generation,
		"documents", next.Documents,
		"previous_documents", prevDocs,
		"terms", next.Terms,
		"duration", time.Since(start),
	)
	for _, fn := range listeners {
		fn(next)
	}
	return next, nil
}

func (r *Registry) recordFailure(trigger string, err error) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.ModelReloads.WithLabelValues(trigger, "error").Inc()
	}
	if r.current.Load() != nil {
		r.logger.Error("reload failed, keeping previous models", "trigger", trigger, "error", err)
		return
	}
	r.logger.Error("models unavailable", "trigger", trigger, "error", fmt.Sprint(err))
}
