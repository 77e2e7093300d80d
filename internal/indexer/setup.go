package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/postgres"
)

// FromConfig assembles an Indexer and its optional backends from cfg: the
// bucket or directory source, the stopword list, the normalized-text sink,
// Postgres status recording and the Kafka store.updated producer. The
// returned cleanup closes whatever was opened.
func FromConfig(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Indexer, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				slog.Warn("closing indexer backend", "error", err)
			}
		}
	}

	stopwords, err := normalizer.LoadStopwords(cfg.Store.StopwordsPath)
	if err != nil {
		return nil, nil, err
	}
	norm, err := normalizer.New(stopwords)
	if err != nil {
		return nil, nil, err
	}

	var src source.Source
	if cfg.Bucket.Enabled() {
		bucket, err := source.NewBucket(cfg.Bucket)
		if err != nil {
			return nil, nil, err
		}
		src = bucket
	} else {
		src = source.NewDir(cfg.Store.TextDir)
	}

	opts := []Option{WithMetrics(m)}
	if cfg.Store.NormalizedDir != "" {
		opts = append(opts, WithSink(NewDirSink(cfg.Store.NormalizedDir)))
	}
	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting status database: %w", err)
		}
		closers = append(closers, db.Close)
		recorder, err := NewPostgresRecorder(ctx, db)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, WithStatusRecorder(recorder))
	}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.StoreUpdated)
		closers = append(closers, producer.Close)
		opts = append(opts, WithPublisher(producer))
	}

	slog.Info("indexer configured",
		"source", src.String(),
		"stopwords", stopwords.Len(),
		"store", cfg.Store.Path,
		"append", cfg.Store.Append,
		"postgres", cfg.Postgres.Enabled,
		"kafka", cfg.Kafka.Enabled,
	)
	return New(cfg.Store, src, norm, opts...), cleanup, nil
}
