// Package cache memoizes query results in two tiers: an in-process LRU and an
// optional shared Redis namespace. Concurrent misses for the same key are
// collapsed into a single evaluation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/resilience"
)

const (
	keyPrefix    = "docsearch:"
	redisTimeout = 250 * time.Millisecond
	breakerName  = "redis-cache"
)

// Hit is one cached result row. Boolean rows carry no score.
type Hit struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score,omitempty"`
}

// Key identifies a cached evaluation. Queries are keyed verbatim: the
// Boolean grammar is order sensitive, so no rewriting is safe. Generation is
// the model generation the result is computed against, so rows from one
// generation are never served for another.
type Key struct {
	Mode       string
	Query      string
	Limit      int
	Generation uint64
}

func (k Key) String() string {
	raw := fmt.Sprintf("%s\x00%s\x00%d\x00%d", k.Mode, k.Query, k.Limit, k.Generation)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%s:%x", keyPrefix, k.Mode, sum[:16])
}

// Remote is the shared tier. *pkgredis.Client satisfies it.
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Stats is a snapshot of cache effectiveness.
type Stats struct {
	LocalEnabled bool   `json:"local_enabled"`
	LocalEntries int    `json:"local_entries"`
	LocalHits    int64  `json:"local_hits"`
	LocalMisses  int64  `json:"local_misses"`
	RedisEnabled bool   `json:"redis_enabled"`
	RedisHits    int64  `json:"redis_hits"`
	RedisMisses  int64  `json:"redis_misses"`
	RedisErrors  int64  `json:"redis_errors"`
	Breaker      string `json:"breaker_state,omitempty"`
	Generation   uint64 `json:"generation"`
}

// QueryCache is safe for concurrent use.
type QueryCache struct {
	local   *lru.Cache[string, []Hit]
	remote  Remote
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger

	// generation advances on every Invalidate; results computed against an
	// older generation are returned but never stored.
	generation atomic.Uint64

	localHits, localMisses            atomic.Int64
	redisHits, redisMisses, redisErrs atomic.Int64
}

// Option configures a QueryCache.
type Option func(*QueryCache)

// WithRemote adds the shared tier. Values expire after ttl.
func WithRemote(r Remote, ttl time.Duration) Option {
	return func(c *QueryCache) {
		c.remote = r
		c.ttl = ttl
	}
}

// WithMetrics records lookups and breaker transitions on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *QueryCache) { c.metrics = m }
}

// New builds a cache from cfg. With the local tier disabled and no remote
// the cache is a pass-through that still collapses concurrent evaluations.
func New(cfg config.CacheConfig, opts ...Option) (*QueryCache, error) {
	c := &QueryCache{
		logger: slog.Default().With("component", "query-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if cfg.Enabled {
		size := cfg.Size
		if size <= 0 {
			size = 1024
		}
		local, err := lru.New[string, []Hit](size)
		if err != nil {
			return nil, fmt.Errorf("creating local cache: %w", err)
		}
		c.local = local
	}
	if c.remote != nil {
		c.breaker = resilience.NewCircuitBreaker(breakerName, resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			OnStateChange: func(name string, _, to resilience.State) {
				if c.metrics != nil {
					c.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				}
			},
		})
		if c.metrics != nil {
			c.metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(float64(resilience.StateClosed))
		}
	}
	return c, nil
}

// NewFromConfig wires the Redis tier when cfg.Redis is enabled and reachable.
// An unreachable Redis degrades to the local tier with a warning. The
// returned client, if any, is owned by the caller.
func NewFromConfig(cfg *config.Config, m *metrics.Metrics) (*QueryCache, *pkgredis.Client, error) {
	opts := []Option{WithMetrics(m)}
	var client *pkgredis.Client
	if cfg.Redis.Enabled {
		rc, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, using local cache only", "addr", cfg.Redis.Addr, "error", err)
		} else {
			client = rc
			opts = append(opts, WithRemote(rc, cfg.Redis.CacheTTL))
		}
	}
	c, err := New(cfg.Cache, opts...)
	if err != nil {
		if client != nil {
			client.Close()
		}
		return nil, nil, err
	}
	return c, client, nil
}

// GetOrCompute returns the cached rows for key, or runs compute and caches
// its result. The boolean reports whether the rows came from a cache tier.
// Errors from compute are never cached.
func (c *QueryCache) GetOrCompute(ctx context.Context, key Key, compute func() ([]Hit, error)) ([]Hit, bool, error) {
	k := key.String()
	if hits, ok := c.lookup(ctx, k); ok {
		return hits, true, nil
	}
	gen := c.generation.Load()
	v, err, _ := c.group.Do(k, func() (any, error) {
		hits, err := compute()
		if err != nil {
			return nil, err
		}
		if hits == nil {
			hits = []Hit{}
		}
		if c.generation.Load() == gen {
			c.store(ctx, k, hits)
		}
		return hits, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]Hit), false, nil
}

// Invalidate drops every cached result in both tiers.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	c.generation.Add(1)
	if c.local != nil {
		c.local.Purge()
	}
	if c.remote == nil {
		return nil
	}
	var deleted int64
	err := resilience.WithTimeout(ctx, 5*time.Second, "redis flush", func(ctx context.Context) error {
		n, err := c.remote.FlushByPattern(ctx, keyPrefix+"*")
		deleted = n
		return err
	})
	if err != nil {
		return fmt.Errorf("invalidating shared cache: %w", err)
	}
	c.logger.Info("cache invalidated", "redis_keys_deleted", deleted, "generation", c.generation.Load())
	return nil
}

// Stats returns current counters.
func (c *QueryCache) Stats() Stats {
	s := Stats{
		LocalEnabled: c.local != nil,
		LocalHits:    c.localHits.Load(),
		LocalMisses:  c.localMisses.Load(),
		RedisEnabled: c.remote != nil,
		RedisHits:    c.redisHits.Load(),
		RedisMisses:  c.redisMisses.Load(),
		RedisErrors:  c.redisErrs.Load(),
		Generation:   c.generation.Load(),
	}
	if c.local != nil {
		s.LocalEntries = c.local.Len()
	}
	if c.breaker != nil {
		s.Breaker = c.breaker.GetState().String()
	}
	return s
}

func (c *QueryCache) lookup(ctx context.Context, k string) ([]Hit, bool) {
	if c.local != nil {
		if hits, ok := c.local.Get(k); ok {
			c.localHits.Add(1)
			c.observe("local", true)
			return hits, true
		}
		c.localMisses.Add(1)
		c.observe("local", false)
	}
	if c.remote == nil {
		return nil, false
	}

	var data []byte
	err := c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, redisTimeout, "redis get", func(ctx context.Context) error {
			var err error
			data, err = c.remote.Get(ctx, k)
			if errors.Is(err, pkgredis.ErrMiss) {
				return nil
			}
			return err
		})
	})
	if err != nil {
		c.redisErrs.Add(1)
		c.logger.Debug("redis lookup failed", "error", err)
		return nil, false
	}
	if data == nil {
		c.redisMisses.Add(1)
		c.observe("redis", false)
		return nil, false
	}
	var hits []Hit
	if err := json.Unmarshal(data, &hits); err != nil {
		c.redisErrs.Add(1)
		c.logger.Warn("discarding undecodable cache entry", "key", k, "error", err)
		return nil, false
	}
	c.redisHits.Add(1)
	c.observe("redis", true)
	if c.local != nil {
		c.local.Add(k, hits)
	}
	return hits, true
}

func (c *QueryCache) store(ctx context.Context, k string, hits []Hit) {
	if c.local != nil {
		c.local.Add(k, hits)
	}
	if c.remote == nil {
		return
	}
	data, err := json.Marshal(hits)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", k, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, redisTimeout, "redis set", func(ctx context.Context) error {
			return c.remote.Set(ctx, k, data, c.ttl)
		})
	})
	if err != nil {
		c.redisErrs.Add(1)
		c.logger.Debug("redis store failed", "key", k, "error", err)
	}
}

func (c *QueryCache) observe(tier string, hit bool) {
	if c.metrics == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.metrics.CacheRequests.WithLabelValues(tier, result).Inc()
}
