package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/kafka"
)

const (
	latencyWindow = 10000
	topQueries    = 10
)

// AggregatedStats is the payload of GET /api/v1/analytics.
type AggregatedStats struct {
	TotalSearches     int64              `json:"total_searches"`
	FailedSearches    int64              `json:"failed_searches"`
	CacheHits         int64              `json:"cache_hits"`
	CacheMisses       int64              `json:"cache_misses"`
	ZeroResultCount   int64              `json:"zero_result_count"`
	ByMode            map[Mode]ModeStats `json:"by_mode"`
	AvgLatencyMs      float64            `json:"avg_latency_ms"`
	P50LatencyMs      int64              `json:"p50_latency_ms"`
	P95LatencyMs      int64              `json:"p95_latency_ms"`
	P99LatencyMs      int64              `json:"p99_latency_ms"`
	TopQueries        []QueryCount       `json:"top_queries"`
	ZeroResultQueries []QueryCount       `json:"zero_result_queries"`
	QueriesPerMinute  float64            `json:"queries_per_minute"`
	Since             time.Time          `json:"since"`
}

// ModeStats counts queries of one mode.
type ModeStats struct {
	Searches    int64 `json:"searches"`
	Failed      int64 `json:"failed"`
	ZeroResults int64 `json:"zero_results"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds SearchEvents into running statistics. Latency percentiles
// cover the most recent events only.
type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     int64
	failed            int64
	cacheHits         int64
	cacheMisses       int64
	zeroResults       int64
	byMode            map[Mode]*ModeStats
	latencies         []int64
	next              int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		byMode:            make(map[Mode]*ModeStats),
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now().UTC(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// Run consumes events from c until ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context, c *kafka.Consumer) error {
	a.logger.Info("analytics aggregator starting")
	return c.Start(ctx)
}

// HandleEvent adapts the aggregator to a Kafka consumer. Undecodable
// messages are logged and committed.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[SearchEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

// Publisher returns a kafka.Publisher that records events directly, for
// deployments without a broker.
func (a *Aggregator) Publisher() kafka.Publisher {
	return localPublisher{a}
}

type localPublisher struct{ agg *Aggregator }

func (p localPublisher) Publish(_ context.Context, e kafka.Event) error {
	if se, ok := e.Value.(SearchEvent); ok {
		p.agg.Record(se)
	}
	return nil
}

func (p localPublisher) PublishBatch(ctx context.Context, events []kafka.Event) error {
	for _, e := range events {
		_ = p.Publish(ctx, e)
	}
	return nil
}

// Record folds one event into the statistics.
func (a *Aggregator) Record(e SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalSearches++
	ms := a.byMode[e.Mode]
	if ms == nil {
		ms = &ModeStats{}
		a.byMode[e.Mode] = ms
	}
	ms.Searches++
	if e.Failed() {
		a.failed++
		ms.Failed++
		return
	}
	if e.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, e.LatencyMs)
	} else {
		a.latencies[a.next] = e.LatencyMs
		a.next = (a.next + 1) % latencyWindow
	}
	a.queryCounts[e.Query]++
	if e.TotalHits == 0 {
		a.zeroResults++
		ms.ZeroResults++
		a.zeroResultQueries[e.Query]++
	}
}

// Stats returns a snapshot of the running statistics.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches,
		FailedSearches:  a.failed,
		CacheHits:       a.cacheHits,
		CacheMisses:     a.cacheMisses,
		ZeroResultCount: a.zeroResults,
		ByMode:          make(map[Mode]ModeStats, len(a.byMode)),
		Since:           a.startTime,
	}
	for mode, ms := range a.byMode {
		stats.ByMode[mode] = *ms
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, topQueries)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, topQueries)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count, then query, so equal counts list deterministically.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
