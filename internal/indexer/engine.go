// Package indexer runs normalization: it reads every extracted text from a
// Source, normalizes the documents concurrently, and writes the frequency
// store consumed by the search engines.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/freqstore"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/resilience"
)

// Report summarizes one run.
type Report struct {
	// Normalized and Failed hold document identifiers, sorted.
	Normalized []string `json:"normalized"`
	Failed     []string `json:"failed"`
	// Skipped lists texts without the abstract marker.
	Skipped   []string      `json:"skipped,omitempty"`
	Documents int           `json:"documents"`
	Terms     int           `json:"terms"`
	StorePath string        `json:"store_path"`
	Duration  time.Duration `json:"duration"`
}

// Indexer drives a normalization run.
type Indexer struct {
	cfg       config.StoreConfig
	src       source.Source
	norm      *normalizer.Normalizer
	sink      ArtifactSink
	status    StatusRecorder
	publisher kafka.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures optional collaborators of an Indexer.
type Option func(*Indexer)

// WithSink sets where normalized token sequences are written.
func WithSink(s ArtifactSink) Option {
	return func(ix *Indexer) { ix.sink = s }
}

// WithStatusRecorder records per-document outcomes, typically in Postgres.
func WithStatusRecorder(r StatusRecorder) Option {
	return func(ix *Indexer) { ix.status = r }
}

// WithPublisher announces every saved store as a StoreUpdatedEvent.
func WithPublisher(p kafka.Publisher) Option {
	return func(ix *Indexer) { ix.publisher = p }
}

// WithMetrics counts documents and runs.
func WithMetrics(m *metrics.Metrics) Option {
	return func(ix *Indexer) { ix.metrics = m }
}

// New returns an Indexer. Without WithSink no normalized artifacts are kept.
func New(cfg config.StoreConfig, src source.Source, norm *normalizer.Normalizer, opts ...Option) *Indexer {
	ix := &Indexer{
		cfg:    cfg,
		src:    src,
		norm:   norm,
		sink:   discardSink{},
		status: nopRecorder{},
		logger: slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

type outcome struct {
	id     string
	record freqstore.Record
	status DocumentStatus
}

// Run normalizes every text of the source and saves the store. A text that
// cannot be read is logged, recorded as failed, and skipped; the run itself
// only fails on listing, store or cancellation errors.
func (ix *Indexer) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report, err := ix.run(ctx)
	if ix.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		ix.metrics.NormalizationRuns.WithLabelValues(status).Inc()
	}
	if err != nil {
		ix.logger.Error("normalization run failed", "error", err)
		return nil, err
	}
	report.Duration = time.Since(start)
	ix.logger.Info("normalization run complete",
		"normalized", len(report.Normalized),
		"failed", len(report.Failed),
		"skipped", len(report.Skipped),
		"documents", report.Documents,
		"terms", report.Terms,
		"store", report.StorePath,
		"duration", report.Duration,
	)
	return report, nil
}

func (ix *Indexer) run(ctx context.Context) (*Report, error) {
	names, err := ix.src.List(ctx, ix.cfg.TextSuffix)
	if err != nil {
		return nil, fmt.Errorf("listing texts from %s: %w", ix.src, err)
	}
	ix.logger.Info("normalization run starting",
		"source", ix.src.String(),
		"texts", len(names),
		"workers", ix.cfg.Workers,
		"append", ix.cfg.Append,
	)

	outcomes := make([]outcome, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(ix.cfg.Workers, 1))
	for i, name := range names {
		g.Go(func() error {
			o, err := ix.process(gctx, name)
			if err != nil {
				return err
			}
			outcomes[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	store, err := ix.baseStore()
	if err != nil {
		return nil, err
	}
	report := &Report{
		Normalized: []string{},
		Failed:     []string{},
		StorePath:  ix.cfg.Path,
	}
	for _, o := range outcomes {
		switch o.status {
		case StatusNormalized:
			store.Put(o.id, o.record)
			report.Normalized = append(report.Normalized, o.id)
		case StatusFailed:
			report.Failed = append(report.Failed, o.id)
		case StatusSkipped:
			report.Skipped = append(report.Skipped, o.id)
		}
	}
	sort.Strings(report.Normalized)
	sort.Strings(report.Failed)
	sort.Strings(report.Skipped)

	if err := store.Save(ix.cfg.Path); err != nil {
		return nil, fmt.Errorf("saving frequency store: %w", err)
	}
	report.Documents = store.Len()
	report.Terms = store.TermCount()
	ix.publish(ctx, report)
	return report, nil
}

// process handles a single text. Only context cancellation is returned as an
// error; per-document failures become a StatusFailed outcome.
func (ix *Indexer) process(ctx context.Context, name string) (outcome, error) {
	if err := ctx.Err(); err != nil {
		return outcome{}, err
	}
	id := Identifier(name, ix.cfg.TextSuffix, ix.cfg.IdentifierExt)
	log := ix.logger.With("doc_id", id, "text", name)

	data, err := ix.src.Read(ctx, name)
	if err != nil {
		if ctx.Err() != nil {
			return outcome{}, ctx.Err()
		}
		log.Error("skipping unreadable document", "error", err)
		return ix.finish(ctx, outcome{id: id, status: StatusFailed}, err), nil
	}

	text := string(data)
	if ix.cfg.AbstractMarker != "" {
		abstract, ok := source.Abstract(text, ix.cfg.AbstractMarker, ix.cfg.AbstractMaxWords)
		if !ok {
			log.Warn("abstract marker not found, skipping document", "marker", ix.cfg.AbstractMarker)
			return ix.finish(ctx, outcome{id: id, status: StatusSkipped}, nil), nil
		}
		text = abstract
	}

	result := ix.norm.Document(text)
	if err := ix.sink.Write(ctx, name, result.Joined()); err != nil {
		log.Error("writing normalized text failed", "error", err)
		return ix.finish(ctx, outcome{id: id, status: StatusFailed}, err), nil
	}
	log.Debug("document normalized",
		"tokens", len(result.Tokens),
		"unique_terms", len(result.Record),
	)
	return ix.finish(ctx, outcome{id: id, record: result.Record, status: StatusNormalized}, nil), nil
}

func (ix *Indexer) finish(ctx context.Context, o outcome, cause error) outcome {
	if ix.metrics != nil {
		ix.metrics.DocumentsNormalized.WithLabelValues(string(o.status)).Inc()
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := ix.status.Record(ctx, DocumentRecord{
		ID:        o.id,
		Status:    o.status,
		Terms:     len(o.record),
		Tokens:    tokenTotal(o.record),
		Error:     msg,
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		ix.logger.Warn("recording document status failed", "doc_id", o.id, "error", err)
	}
	return o
}

// baseStore returns the store a run writes into: the existing store in
// append mode, a fresh one otherwise.
func (ix *Indexer) baseStore() (*freqstore.Store, error) {
	if !ix.cfg.Append {
		return freqstore.New(), nil
	}
	existing, err := freqstore.Load(ix.cfg.Path)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrStoreNotFound) {
			ix.logger.Info("no existing store, append starts empty", "path", ix.cfg.Path)
			return freqstore.New(), nil
		}
		return nil, fmt.Errorf("loading store for append: %w", err)
	}
	return existing, nil
}

func (ix *Indexer) publish(ctx context.Context, report *Report) {
	if ix.publisher == nil {
		return
	}
	event := kafka.Event{
		Key: kafka.StoreUpdatedKey,
		Value: kafka.StoreUpdatedEvent{
			StorePath: report.StorePath,
			Documents: report.Documents,
			Terms:     report.Terms,
			Failed:    report.Failed,
			Appended:  ix.cfg.Append,
			Timestamp: time.Now().UTC(),
		},
	}
	err := resilience.Retry(ctx, "publish-store-updated", resilience.RetryConfig{}, func() error {
		return ix.publisher.Publish(ctx, event)
	})
	if err != nil {
		// Searchers that watch the store file still pick the change up.
		ix.logger.Warn("store.updated event not published", "error", err)
	}
}

// Identifier maps a text name onto its document identifier by replacing the
// text suffix with ext ("X_resumo.txt" becomes "X.pdf"). The suffix match
// ignores case.
func Identifier(name, suffix, ext string) string {
	if suffix != "" && hasSuffixFold(name, suffix) {
		return name[:len(name)-len(suffix)] + ext
	}
	return name
}

func hasSuffixFold(name, suffix string) bool {
	return len(name) >= len(suffix) && strings.EqualFold(name[len(name)-len(suffix):], suffix)
}

func tokenTotal(r freqstore.Record) int {
	total := 0
	for _, tc := range r {
		total += tc.Count
	}
	return total
}

type discardSink struct{}

func (discardSink) Write(context.Context, string, string) error { return nil }

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, DocumentRecord) error { return nil }
