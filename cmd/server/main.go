// Command server runs the live-feed daemon: it streams bars from a
// WebSocket endpoint into ClickHouse and exposes Prometheus metrics and a
// health endpoint over HTTP.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"nq-scalper-lab/internal/domain"
	"nq-scalper-lab/internal/feed"
	"nq-scalper-lab/internal/observability"
	"nq-scalper-lab/internal/storage"
	chstore "nq-scalper-lab/internal/storage/clickhouse"
	"nq-scalper-lab/internal/storage/migrations"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address for /metrics and /health")
	wsURL := flag.String("ws-url", "", "WebSocket bar stream endpoint")
	symbol := flag.String("symbol", "NQ", "Instrument symbol")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	flushInterval := flag.Duration("flush-interval", 15*time.Second, "Max time a row waits before insert")
	flag.Parse()

	logger := log.New(os.Stderr, "[server] ", log.LstdFlags)

	if *wsURL == "" {
		logger.Fatal("--ws-url is required")
	}
	if *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("run clickhouse migrations: %v", err)
	}
	defer conn.Close()

	store := chstore.NewFeatureRowStore(conn)

	live, err := feed.NewLiveFeed(ctx, *wsURL, *symbol, nil)
	if err != nil {
		logger.Fatalf("connect live feed: %v", err)
	}
	defer live.Close()

	var ingested atomic.Uint64
	var lastFlushMs atomic.Int64

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":        "ok",
			"symbol":        *symbol,
			"rows_ingested": ingested.Load(),
			"rows_dropped":  live.Dropped(),
			"last_flush_ms": lastFlushMs.Load(),
		})
	})

	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		logger.Printf("listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	runIngest(ctx, logger, store, live, *symbol, *flushInterval, &ingested, &lastFlushMs)

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Printf("http shutdown: %v", err)
	}
	logger.Printf("stopped: %d rows ingested, %d dropped", ingested.Load(), live.Dropped())
}

// runIngest buffers streamed rows and flushes them on the interval until
// the context is cancelled.
func runIngest(
	ctx context.Context,
	logger *log.Logger,
	store storage.FeatureRowStore,
	live *feed.LiveFeed,
	symbol string,
	flushInterval time.Duration,
	ingested *atomic.Uint64,
	lastFlushMs *atomic.Int64,
) {
	var batch []*domain.FeatureRow

	flush := func(flushCtx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := store.InsertBulk(flushCtx, symbol, batch); err != nil {
			logger.Printf("insert %d rows: %v", len(batch), err)
			return
		}
		ingested.Add(uint64(len(batch)))
		lastFlushMs.Store(time.Now().UnixMilli())
		batch = batch[:0]
	}

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			live.Close()
			for row := range live.Rows() {
				batch = append(batch, row)
			}
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			flush(flushCtx)
			cancel()
			return
		case <-ticker.C:
			flush(ctx)
		case row, ok := <-live.Rows():
			if !ok {
				flush(ctx)
				return
			}
			observability.DefaultMetrics.FeedRowsLoaded.Inc()
			batch = append(batch, row)
		}
	}
}
