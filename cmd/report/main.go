// Command report renders a stored backtest run as a Markdown summary and a
// CSV trade ledger.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"nq-scalper-lab/internal/reporting"
	pgstore "nq-scalper-lab/internal/storage/postgres"
)

func main() {
	runID := flag.String("run-id", "", "Run identifier to report on")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	outputDir := flag.String("output-dir", "", "Write report.md and trades.csv here instead of stdout")
	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if *runID == "" {
		logger.Fatal("--run-id is required")
	}
	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	gen := reporting.NewGenerator(pgstore.NewRunStore(pool), pgstore.NewTradeStore(pool))
	report, err := gen.Generate(ctx, *runID)
	if err != nil {
		logger.Fatalf("generate report for run %s: %v", *runID, err)
	}

	if *outputDir == "" {
		fmt.Print(reporting.RenderMarkdown(report))
		return
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatalf("create output dir: %v", err)
	}
	mdPath := filepath.Join(*outputDir, "report.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		logger.Fatalf("write %s: %v", mdPath, err)
	}
	csvPath := filepath.Join(*outputDir, "trades.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderTradesCSV(report.Trades)), 0o644); err != nil {
		logger.Fatalf("write %s: %v", csvPath, err)
	}
	logger.Printf("wrote %s and %s", mdPath, csvPath)
}
