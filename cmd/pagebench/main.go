package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kartikbazzad/pagestore/internal/bench"
	"github.com/kartikbazzad/pagestore/internal/config"
	"github.com/kartikbazzad/pagestore/internal/logger"
	"github.com/kartikbazzad/pagestore/internal/memory"
	"github.com/kartikbazzad/pagestore/internal/metrics"
)

func main() {
	pages := flag.Int("pages", 64, "Number of pages the workload touches")
	readers := flag.Int("readers", 0, "Optimistic reader goroutines (0 = NumCPU)")
	writers := flag.Int("writers", 2, "Writer goroutines")
	duration := flag.Duration("duration", 5*time.Second, "Run length")
	poolCapacity := flag.Uint("pool-capacity", 1024, "Page pool capacity in pages")
	resultsDir := flag.String("results-dir", "./results", "Directory for the results database")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	flag.Parse()

	cfg := config.DefaultConfig()
	cfg.Pool.CapacityPages = uint32(*poolCapacity)
	cfg.Bench.Pages = *pages
	if *readers > 0 {
		cfg.Bench.Readers = *readers
	}
	cfg.Bench.Writers = *writers
	cfg.Bench.Duration = *duration
	cfg.Bench.ResultsDir = *resultsDir
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logr := logger.Default()
	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logr.SetLevel(level)

	logr.Info("Starting page bench: pages=%d readers=%d writers=%d duration=%s",
		cfg.Bench.Pages, cfg.Bench.Readers, cfg.Bench.Writers, cfg.Bench.Duration)

	pool, err := memory.NewPagePool(0, cfg.Pool.CapacityPages, logr)
	if err != nil {
		log.Fatalf("Failed to create page pool: %v", err)
	}

	collector := metrics.NewCollector()
	runner, err := bench.NewRunner(cfg.Bench, pool, collector, logr)
	if err != nil {
		log.Fatalf("Failed to set up bench: %v", err)
	}
	defer runner.ReleasePages()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	results, err := runner.Run(ctx)
	if err != nil {
		log.Fatalf("Bench failed: %v", err)
	}

	if err := os.MkdirAll(cfg.Bench.ResultsDir, 0755); err != nil {
		log.Fatalf("Failed to create results dir: %v", err)
	}
	db, err := bench.OpenResultsDB(bench.ResultsDBPath(cfg.Bench.ResultsDir))
	if err != nil {
		log.Fatalf("Failed to open results db: %v", err)
	}
	defer db.Close()

	runID := bench.NewRunID()
	if err := bench.InsertRun(db, runID, cfg.Bench.Pages, cfg.Bench.Readers, cfg.Bench.Writers, cfg.Bench.Duration); err != nil {
		log.Fatalf("Failed to record run: %v", err)
	}
	for _, r := range results {
		fmt.Printf("%-16s ops=%-12d retries=%-10d failures=%-4d %.0f ops/s\n",
			r.Workload, r.Ops, r.Retries, r.ValidationFailures, r.Throughput)
		if err := bench.InsertResult(db, runID, r); err != nil {
			log.Fatalf("Failed to record result: %v", err)
		}
	}
	if err := bench.FinishRun(db, runID); err != nil {
		log.Fatalf("Failed to finish run: %v", err)
	}
	logr.Info("Run %s recorded in %s", runID, bench.ResultsDBPath(cfg.Bench.ResultsDir))

	fmt.Println()
	fmt.Print(collector.Export())
}
