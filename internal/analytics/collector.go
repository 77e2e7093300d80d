// Package analytics tracks the queries the search service answers. The
// Collector buffers events and publishes them in batches; the Aggregator
// consumes them and serves running statistics.
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/kafka"
)

const (
	defaultBufferSize    = 10000
	defaultBatchSize     = 100
	defaultFlushInterval = 2 * time.Second
)

// CollectorConfig sizes the collector. Zero values take defaults.
type CollectorConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// Collector accepts events without blocking the query path. Events are
// flushed when a batch fills up, on every FlushInterval and on shutdown.
// When the buffer is full new events are dropped.
type Collector struct {
	publisher kafka.Publisher
	cfg       CollectorConfig
	eventCh   chan SearchEvent
	logger    *slog.Logger

	mu      sync.Mutex
	dropped int64

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// NewCollector returns a Collector publishing through p.
func NewCollector(p kafka.Publisher, cfg CollectorConfig) *Collector {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	return &Collector{
		publisher: p,
		cfg:       cfg,
		eventCh:   make(chan SearchEvent, cfg.BufferSize),
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

// Start launches the flush loop. It returns immediately; the loop ends when
// ctx is cancelled or Close is called, flushing what is buffered.
func (c *Collector) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		go c.run(ctx)
		c.logger.Info("analytics collector started",
			"buffer_size", c.cfg.BufferSize,
			"batch_size", c.cfg.BatchSize,
			"flush_interval", c.cfg.FlushInterval,
		)
	})
}

// Track enqueues e. It never blocks.
func (c *Collector) Track(e SearchEvent) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	select {
	case c.eventCh <- e:
	default:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (c *Collector) Dropped() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Close stops accepting events and waits for the final flush. Track must not
// be called after Close.
func (c *Collector) Close() {
	c.closeOnce.Do(func() {
		close(c.eventCh)
	})
	c.startOnce.Do(func() { close(c.done) })
	<-c.done
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.cfg.BatchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := c.publisher.PublishBatch(ctx, batch); err != nil {
			c.logger.Error("analytics batch publish failed", "events", len(batch), "error", err)
		} else {
			c.logger.Debug("analytics batch published", "events", len(batch))
		}
		batch = batch[:0]
	}
	final := func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		flush(flushCtx)
	}

	for {
		select {
		case e, ok := <-c.eventCh:
			if !ok {
				final()
				return
			}
			batch = append(batch, kafka.Event{Key: eventKey(e), Value: e})
			if len(batch) >= c.cfg.BatchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			c.drain(&batch)
			final()
			return
		}
	}
}

func (c *Collector) drain(batch *[]kafka.Event) {
	for {
		select {
		case e, ok := <-c.eventCh:
			if !ok {
				return
			}
			*batch = append(*batch, kafka.Event{Key: eventKey(e), Value: e})
		default:
			return
		}
	}
}
