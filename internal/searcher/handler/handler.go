// Package handler exposes both query engines, the loaded document list, the
// model reload trigger and the query cache over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/searcher/boolean"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/searcher/models"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/middleware"
)

// ModelSource is the part of models.Registry the handler needs.
type ModelSource interface {
	Current() (*models.Models, error)
	Reload(ctx context.Context, trigger string) (*models.Models, error)
}

// SearchResponse is returned by both search endpoints. Boolean results carry
// no score.
type SearchResponse struct {
	Query      string         `json:"query"`
	Mode       analytics.Mode `json:"mode"`
	TotalHits  int            `json:"total_hits"`
	Results    []cache.Hit    `json:"results"`
	CacheHit   bool           `json:"cache_hit"`
	Generation uint64         `json:"generation"`
	TookMs     float64        `json:"took_ms"`
}

// Handler holds the HTTP endpoints of the search service. Cache, collector
// and metrics are optional.
type Handler struct {
	models       ModelSource
	cache        *cache.QueryCache
	collector    *analytics.Collector
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

func WithCache(c *cache.QueryCache) Option {
	return func(h *Handler) { h.cache = c }
}

func WithCollector(c *analytics.Collector) Option {
	return func(h *Handler) { h.collector = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

func New(src ModelSource, defaultLimit, maxResults int, opts ...Option) *Handler {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	if maxResults < defaultLimit {
		maxResults = defaultLimit
	}
	h := &Handler{
		models:       src,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search/boolean", h.Boolean)
	mux.HandleFunc("GET /api/v1/search/vector", h.Vector)
	mux.HandleFunc("GET /api/v1/documents", h.Documents)
	mux.HandleFunc("POST /api/v1/models/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Boolean answers GET /api/v1/search/boolean?q=.
func (h *Handler) Boolean(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, 0, "query parameter 'q' is required"))
		return
	}
	h.search(w, r, analytics.ModeBoolean, query, 0, func(m *models.Models) ([]cache.Hit, error) {
		ids, err := m.Boolean.Evaluate(query)
		if err != nil {
			return nil, err
		}
		hits := make([]cache.Hit, len(ids))
		for i, id := range ids {
			hits[i] = cache.Hit{DocID: id}
		}
		return hits, nil
	})
}

// Vector answers GET /api/v1/search/vector?q=&limit=.
func (h *Handler) Vector(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, 0, "query parameter 'q' is required"))
		return
	}
	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, 0, "limit must be a positive integer"))
			return
		}
		limit = min(parsed, h.maxResults)
	}
	h.search(w, r, analytics.ModeVector, query, limit, func(m *models.Models) ([]cache.Hit, error) {
		results := m.Vector.Search(query, limit)
		hits := make([]cache.Hit, len(results))
		for i, res := range results {
			hits[i] = cache.Hit{DocID: res.ID, Score: res.Score}
		}
		return hits, nil
	})
}

func (h *Handler) search(
	w http.ResponseWriter,
	r *http.Request,
	mode analytics.Mode,
	query string,
	limit int,
	run func(*models.Models) ([]cache.Hit, error),
) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	m, err := h.models.Current()
	if err != nil {
		h.finish(ctx, mode, query, nil, false, start, err)
		h.writeError(w, err)
		return
	}

	var hits []cache.Hit
	cacheHit := false
	compute := func() ([]cache.Hit, error) { return run(m) }
	if h.cache != nil {
		key := cache.Key{Mode: string(mode), Query: query, Limit: limit, Generation: m.Generation}
		hits, cacheHit, err = h.cache.GetOrCompute(ctx, key, compute)
	} else {
		hits, err = compute()
	}
	if err != nil {
		h.finish(ctx, mode, query, nil, false, start, err)
		if !apperrors.Is(err, apperrors.ErrMalformedQuery) {
			log.Error("search failed", "mode", mode, "query", query, "error", err)
		}
		h.writeError(w, err)
		return
	}
	if hits == nil {
		hits = []cache.Hit{}
	}

	took := time.Since(start)
	h.finish(ctx, mode, query, hits, cacheHit, start, nil)
	log.Info("search completed",
		"mode", mode,
		"query", query,
		"total_hits", len(hits),
		"cache_hit", cacheHit,
		"generation", m.Generation,
		"latency", took,
	)
	h.writeJSON(w, http.StatusOK, &SearchResponse{
		Query:      query,
		Mode:       mode,
		TotalHits:  len(hits),
		Results:    hits,
		CacheHit:   cacheHit,
		Generation: m.Generation,
		TookMs:     float64(took.Microseconds()) / 1000,
	})
}

// finish records metrics and the analytics event for one query.
func (h *Handler) finish(ctx context.Context, mode analytics.Mode, query string, hits []cache.Hit, cacheHit bool, start time.Time, err error) {
	elapsed := time.Since(start)
	outcome := outcomeOf(err, len(hits))
	if h.metrics != nil {
		h.metrics.QueriesTotal.WithLabelValues(string(mode), outcome).Inc()
		if err == nil {
			cacheLabel := "miss"
			if cacheHit {
				cacheLabel = "hit"
			}
			h.metrics.QueryLatency.WithLabelValues(string(mode), cacheLabel).Observe(elapsed.Seconds())
			h.metrics.QueryResults.WithLabelValues(string(mode)).Observe(float64(len(hits)))
		}
	}
	if h.collector == nil {
		return
	}
	event := analytics.SearchEvent{
		Mode:      mode,
		Query:     query,
		Terms:     queryTerms(mode, query),
		TotalHits: len(hits),
		Returned:  len(hits),
		LatencyMs: elapsed.Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	}
	if err != nil {
		event.Error = err.Error()
	}
	h.collector.Track(event)
}

// queryTerms leaves Boolean operators out of the tracked terms.
func queryTerms(mode analytics.Mode, query string) []string {
	if mode == analytics.ModeBoolean {
		if plan, err := boolean.Parse(query); err == nil {
			return plan.Terms()
		}
	}
	return normalizer.QueryTerms(query)
}

func outcomeOf(err error, hits int) string {
	switch {
	case err == nil && hits == 0:
		return "zero_result"
	case err == nil:
		return "ok"
	case apperrors.Is(err, apperrors.ErrMalformedQuery):
		return "malformed"
	case apperrors.Is(err, apperrors.ErrModelsUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// Documents lists the identifiers of the loaded corpus.
func (h *Handler) Documents(w http.ResponseWriter, r *http.Request) {
	m, err := h.models.Current()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"store":      m.StorePath,
		"generation": m.Generation,
		"loaded_at":  m.LoadedAt,
		"total":      m.Documents,
		"documents":  m.Boolean.DocumentIDs(),
	})
}

// Reload rebuilds the engines from the store on disk.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	m, err := h.models.Reload(r.Context(), models.TriggerHTTP)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":     "reloaded",
		"generation": m.Generation,
		"documents":  m.Documents,
		"terms":      m.Terms,
		"loaded_at":  m.LoadedAt,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	stats := h.cache.Stats()
	hits := stats.LocalHits + stats.RedisHits
	total := stats.LocalHits + stats.LocalMisses
	if !stats.LocalEnabled {
		total = stats.RedisHits + stats.RedisMisses
	}
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"stats":    stats,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrConfiguration, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	message := err.Error()
	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{
		"error":  message,
		"reason": reasonOf(err),
	})
}

func reasonOf(err error) string {
	switch {
	case apperrors.Is(err, apperrors.ErrMalformedQuery):
		return "malformed_query"
	case apperrors.Is(err, apperrors.ErrInvalidInput):
		return "invalid_input"
	case apperrors.Is(err, apperrors.ErrModelsUnavailable):
		return "models_unavailable"
	case apperrors.Is(err, apperrors.ErrStoreNotFound):
		return "store_not_found"
	case apperrors.Is(err, apperrors.ErrStoreCorrupt):
		return "store_corrupt"
	default:
		return "internal"
	}
}
