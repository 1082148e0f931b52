// Command replay re-runs a stored backtest from its source rows and checks
// the persisted trade ledger against the replayed one. It exits non-zero
// when any trade diverges.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"nq-scalper-lab/internal/domain"
	"nq-scalper-lab/internal/feed"
	chstore "nq-scalper-lab/internal/storage/clickhouse"
	pgstore "nq-scalper-lab/internal/storage/postgres"
	"nq-scalper-lab/internal/verification"
)

func main() {
	runID := flag.String("run-id", "", "Run identifier to verify")
	csvPath := flag.String("csv", "", "Feature row CSV file (mutually exclusive with --clickhouse-dsn)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (feature rows)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string (runs and trades)")
	verbose := flag.Bool("verbose", false, "Print per-trade results, not just divergences")
	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	if *runID == "" {
		logger.Fatal("--run-id is required")
	}
	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}
	if (*csvPath == "") == (*clickhouseDSN == "") {
		logger.Fatal("exactly one of --csv or --clickhouse-dsn is required")
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

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	runStore := pgstore.NewRunStore(pool)
	tradeStore := pgstore.NewTradeStore(pool)

	run, err := runStore.GetByID(ctx, *runID)
	if err != nil {
		logger.Fatalf("load run %s: %v", *runID, err)
	}

	var source feed.Source
	if *csvPath != "" {
		source = feed.NewCSVFeed(*csvPath)
	} else {
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()
		source = feed.NewStoreFeed(chstore.NewFeatureRowStore(conn), run.Symbol)
	}

	verifier := verification.NewReplayVerifier(domain.DefaultConfig(), source, tradeStore, runStore)
	report, err := verifier.VerifyRun(ctx, *runID)
	if err != nil {
		logger.Fatalf("verify run %s: %v", *runID, err)
	}

	printReport(report, *verbose)

	if report.DivergentTrades > 0 {
		os.Exit(1)
	}
}

func printReport(report *verification.Report, verbose bool) {
	fmt.Printf("run %s: %d trades, %d matched, %d divergent\n",
		report.RunID, report.TotalTrades, report.MatchedTrades, report.DivergentTrades)

	for _, result := range report.Results {
		if result.Match {
			if verbose {
				fmt.Printf("  %s: ok\n", result.TradeID)
			}
			continue
		}
		fmt.Printf("  %s: DIVERGENT\n", result.TradeID)
		for _, d := range result.Divergences {
			fmt.Printf("    %s: stored=%v replayed=%v\n", d.Field, d.Expected, d.Actual)
		}
	}
}
