// Command indexer runs one normalization pass: it reads every extracted text,
// writes the frequency store and, when Kafka is enabled, announces the new
// store to the search services.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml] [-append]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	appendMode := flag.Bool("append", false, "merge into the existing store instead of replacing it")
	report := flag.Bool("report", false, "print the run report as JSON on stdout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *appendMode {
		cfg.Store.Append = true
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer", "store", cfg.Store.Path, "workers", cfg.Store.Workers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdown := m.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	ix, cleanup, err := indexer.FromConfig(ctx, cfg, m)
	if err != nil {
		slog.Error("failed to configure indexer", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	result, err := ix.Run(ctx)
	if err != nil {
		slog.Error("indexing failed", "error", err)
		cleanup()
		os.Exit(1)
	}
	if *report {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			slog.Error("failed to write report", "error", err)
		}
	}
	slog.Info("indexer stopped",
		"documents", result.Documents,
		"failed", len(result.Failed),
	)
}
