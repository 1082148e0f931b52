// Command ingest loads feature rows into ClickHouse, either from a CSV
// export or from a live WebSocket bar stream.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
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
	csvPath := flag.String("csv", "", "Feature row CSV file")
	wsURL := flag.String("ws-url", "", "WebSocket bar stream endpoint (live mode)")
	symbol := flag.String("symbol", "NQ", "Instrument symbol")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	batchSize := flag.Int("batch-size", 1000, "Rows per insert batch")
	flushInterval := flag.Duration("flush-interval", 15*time.Second, "Max time a live row waits before insert")
	flag.Parse()

	logger := log.New(os.Stderr, "[ingest] ", log.LstdFlags)

	if *clickhouseDSN == "" {
		logger.Fatal("--clickhouse-dsn is required")
	}
	if (*csvPath == "") == (*wsURL == "") {
		logger.Fatal("exactly one of --csv or --ws-url is required")
	}
	if *batchSize <= 0 {
		logger.Fatal("--batch-size must be positive")
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

	if *csvPath != "" {
		if err := ingestCSV(ctx, logger, store, *csvPath, *symbol, *batchSize); err != nil {
			logger.Fatalf("ingest %s: %v", *csvPath, err)
		}
		return
	}

	if err := ingestLive(ctx, logger, store, *wsURL, *symbol, *batchSize, *flushInterval); err != nil {
		logger.Fatalf("live ingest: %v", err)
	}
}

func ingestCSV(ctx context.Context, logger *log.Logger, store storage.FeatureRowStore, path, symbol string, batchSize int) error {
	rows, err := feed.NewCSVFeed(path).Load(ctx)
	if err != nil {
		return err
	}
	logger.Printf("parsed %d rows from %s", len(rows), path)

	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := store.InsertBulk(ctx, symbol, rows[start:end]); err != nil {
			return err
		}
		logger.Printf("inserted rows %d-%d", start, end-1)
	}

	logger.Printf("done: %d rows ingested for %s", len(rows), symbol)
	return nil
}

// ingestLive consumes the stream until the context is cancelled, flushing
// whenever a batch fills or the flush interval elapses.
func ingestLive(ctx context.Context, logger *log.Logger, store storage.FeatureRowStore, wsURL, symbol string, batchSize int, flushInterval time.Duration) error {
	live, err := feed.NewLiveFeed(ctx, wsURL, symbol, nil)
	if err != nil {
		return err
	}
	defer live.Close()

	logger.Printf("streaming %s from %s", symbol, wsURL)

	var (
		batch    []*domain.FeatureRow
		ingested uint64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.InsertBulk(ctx, symbol, batch); err != nil {
			return err
		}
		ingested += uint64(len(batch))
		logger.Printf("flushed %d rows (total %d, dropped %d)", len(batch), ingested, live.Dropped())
		batch = batch[:0]
		return nil
	}

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			live.Close()
			// Drain whatever arrived before shutdown.
			for row := range live.Rows() {
				batch = append(batch, row)
			}
			if len(batch) > 0 {
				flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := store.InsertBulk(flushCtx, symbol, batch); err != nil {
					return err
				}
			}
			logger.Printf("shutdown: %d rows ingested, %d dropped", ingested+uint64(len(batch)), live.Dropped())
			return nil
		case <-ticker.C:
			if err := flush(); err != nil {
				return err
			}
		case row, ok := <-live.Rows():
			if !ok {
				return flush()
			}
			observability.DefaultMetrics.FeedRowsLoaded.Inc()
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
}
