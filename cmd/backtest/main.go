// Command backtest runs the full decision engine over ordered feature rows
// and reports the resulting trade ledger.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"nq-scalper-lab/internal/backtest"
	"nq-scalper-lab/internal/domain"
	"nq-scalper-lab/internal/feed"
	"nq-scalper-lab/internal/metrics"
	"nq-scalper-lab/internal/reporting"
	"nq-scalper-lab/internal/storage"
	chstore "nq-scalper-lab/internal/storage/clickhouse"
	"nq-scalper-lab/internal/storage/memory"
	"nq-scalper-lab/internal/storage/migrations"
	pgstore "nq-scalper-lab/internal/storage/postgres"
)

func main() {
	// Input
	csvPath := flag.String("csv", "", "Feature row CSV file (mutually exclusive with --clickhouse-dsn)")
	symbol := flag.String("symbol", "NQ", "Instrument symbol")
	startMs := flag.Int64("start-ms", 0, "Range start (unix ms, storage input only)")
	endMs := flag.Int64("end-ms", 0, "Range end (unix ms, storage input only)")

	// Engine parameters
	warmUpBars := flag.Int("warm-up-bars", -1, "Warm-up bar count override (-1 keeps default)")
	useEODClose := flag.Bool("eod-close", false, "Force-close open positions on the session's final bar")
	initialCapital := flag.Float64("initial-capital", 0, "Initial capital override (0 keeps default)")

	// Storage
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (runs and trades)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (feature rows)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	persist := flag.Bool("persist", true, "Persist the run and its ledger")

	// Output
	outputDir := flag.String("output-dir", "", "Write trades.csv and report.md here")
	outputJSON := flag.Bool("json", false, "Print the run record as JSON")

	flag.Parse()

	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	if *csvPath == "" && *clickhouseDSN == "" {
		logger.Fatal("either --csv or --clickhouse-dsn is required")
	}
	if *csvPath != "" && *clickhouseDSN != "" {
		logger.Fatal("--csv and --clickhouse-dsn are mutually exclusive")
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

	// Source
	var source feed.Source
	if *csvPath != "" {
		source = feed.NewCSVFeed(*csvPath)
	} else {
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()

		rowStore := chstore.NewFeatureRowStore(conn)
		if *startMs != 0 || *endMs != 0 {
			source = feed.NewStoreFeedRange(rowStore, *symbol, *startMs, *endMs)
		} else {
			source = feed.NewStoreFeed(rowStore, *symbol)
		}
	}

	// Stores
	var tradeStore storage.TradeStore = memory.NewTradeStore()
	var runStore storage.RunStore = memory.NewRunStore()
	if !*useMemory && *persist {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required when persisting without --use-memory")
		}
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("run postgres migrations: %v", err)
		}
		tradeStore = pgstore.NewTradeStore(pool)
		runStore = pgstore.NewRunStore(pool)
	}

	// Config
	cfg := domain.DefaultConfig()
	if *warmUpBars >= 0 {
		cfg.WarmUpBars = *warmUpBars
	}
	if *initialCapital > 0 {
		cfg.InitialCapital = *initialCapital
	}
	cfg.UseEODClose = *useEODClose

	var opts []backtest.RunnerOption
	if *persist {
		opts = append(opts, backtest.WithStores(tradeStore, runStore))
	}
	runner := backtest.NewRunner(cfg, *symbol, source, opts...)

	run, result, err := runner.Run(ctx)
	if err != nil {
		logger.Fatalf("backtest failed: %v", err)
	}

	var report *reporting.Report
	if *persist {
		report, err = reporting.NewGenerator(runStore, tradeStore).Generate(ctx, run.RunID)
		if err != nil {
			logger.Fatalf("generate report: %v", err)
		}
	} else {
		report = &reporting.Report{
			GeneratedAt: time.Now().UTC(),
			Run:         run,
			Summary:     metrics.Compute(result.Trades),
			Trades:      result.Trades,
		}
	}

	if *outputDir != "" {
		if err := writeOutputs(*outputDir, report); err != nil {
			logger.Fatalf("write outputs: %v", err)
		}
		logger.Printf("wrote %s and %s",
			filepath.Join(*outputDir, "trades.csv"),
			filepath.Join(*outputDir, "report.md"))
	}

	if *outputJSON {
		out, _ := json.MarshalIndent(run, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("run %s: %d bars, %d trades, final capital %.2f\n",
		run.RunID, run.BarsTotal, run.TradeCount, run.FinalCapital)
	if report.Summary != nil && report.Summary.TotalTrades > 0 {
		fmt.Printf("win rate %.2f%%, net pnl %.2f, max drawdown %.2f\n",
			report.Summary.WinRate*100, report.Summary.NetPnL, report.Summary.MaxDrawdown)
	}
}

func writeOutputs(dir string, report *reporting.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "trades.csv"),
		[]byte(reporting.RenderTradesCSV(report.Trades)), 0o644); err != nil {
		return fmt.Errorf("write trades.csv: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "report.md"),
		[]byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return fmt.Errorf("write report.md: %w", err)
	}
	return nil
}
