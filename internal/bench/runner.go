// Package bench drives concurrent reader/writer workloads against a pool of
// pages and checks the version protocol while doing so: stable statuses must
// never show transitional bits, and a validated optimistic read must never
// observe a torn payload. Outcomes are recorded in a SQLite results
// database.
package bench

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/kartikbazzad/pagestore/internal/config"
	"github.com/kartikbazzad/pagestore/internal/epoch"
	"github.com/kartikbazzad/pagestore/internal/logger"
	"github.com/kartikbazzad/pagestore/internal/memory"
	"github.com/kartikbazzad/pagestore/internal/metrics"
	"github.com/kartikbazzad/pagestore/internal/storage"
	"github.com/kartikbazzad/pagestore/internal/thread"
)

// WorkloadResult is the outcome of one workload (readers or writers) in a
// run.
type WorkloadResult struct {
	Workload           string
	Ops                uint64
	Retries            uint64
	ValidationFailures uint64
	Throughput         float64 // ops per second
}

// Runner owns the pages and counters of one bench run.
type Runner struct {
	cfg       config.BenchConfig
	pool      *memory.PagePool
	pages     []*storage.Page
	collector *metrics.Collector
	log       *logger.Logger

	reads            atomic.Uint64
	readRetries      atomic.Uint64
	readFailures     atomic.Uint64
	writes           atomic.Uint64
	writeRetries     atomic.Uint64
	stableViolations atomic.Uint64
}

// splitEvery makes every n-th write a structural split instead of an
// insert.
const splitEvery = 8

// NewRunner grabs cfg.Pages frames from the pool and initializes them as
// border tree pages.
func NewRunner(cfg config.BenchConfig, pool *memory.PagePool, collector *metrics.Collector, log *logger.Logger) (*Runner, error) {
	if log == nil {
		log = logger.Default()
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	init := storage.NewVolatilePageInitializer(1, storage.TreeBorderPageType, false, nil)
	pages := make([]*storage.Page, 0, cfg.Pages)
	for i := 0; i < cfg.Pages; i++ {
		page, ptr, err := pool.Grab()
		if err != nil {
			return nil, fmt.Errorf("grab bench page %d: %w", i, err)
		}
		init.Initialize(page, ptr)
		collector.RecordPageAllocated()
		pages = append(pages, page)
	}
	return &Runner{
		cfg:       cfg,
		pool:      pool,
		pages:     pages,
		collector: collector,
		log:       log,
	}, nil
}

// Collector returns the metrics collector the run feeds.
func (r *Runner) Collector() *metrics.Collector { return r.collector }

// Run executes the configured workload until the duration elapses or ctx is
// canceled, and returns per-workload results.
func (r *Runner) Run(ctx context.Context) ([]WorkloadResult, error) {
	workerPool, err := ants.NewPool(r.cfg.MaxWorkers,
		ants.WithExpiryDuration(r.cfg.WorkerExpiry),
		ants.WithPanicHandler(func(v any) {
			r.log.Error("bench worker panic: %v", v)
		}))
	if err != nil {
		return nil, fmt.Errorf("bench worker pool: %w", err)
	}
	defer workerPool.Release()

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < r.cfg.Writers; i++ {
		wg.Add(1)
		seed := int64(i + 1)
		if err := workerPool.Submit(func() {
			defer wg.Done()
			r.writerLoop(runCtx, seed)
		}); err != nil {
			wg.Done()
			return nil, fmt.Errorf("submit writer: %w", err)
		}
	}
	for i := 0; i < r.cfg.Readers; i++ {
		wg.Add(1)
		seed := int64(1000 + i)
		if err := workerPool.Submit(func() {
			defer wg.Done()
			r.readerLoop(runCtx, seed)
		}); err != nil {
			wg.Done()
			return nil, fmt.Errorf("submit reader: %w", err)
		}
	}

	wg.Wait()
	elapsed := time.Since(start)

	if n := r.stableViolations.Load(); n > 0 {
		return nil, fmt.Errorf("protocol violation: %d stable statuses showed transitional bits", n)
	}

	reads := r.reads.Load()
	writes := r.writes.Load()
	results := []WorkloadResult{
		{
			Workload:           "optimistic-read",
			Ops:                reads,
			Retries:            r.readRetries.Load(),
			ValidationFailures: r.readFailures.Load(),
			Throughput:         float64(reads) / elapsed.Seconds(),
		},
		{
			Workload:           "locked-write",
			Ops:                writes,
			Retries:            r.writeRetries.Load(),
			ValidationFailures: 0,
			Throughput:         float64(writes) / elapsed.Seconds(),
		},
	}
	r.log.Info("bench done: %d reads (%d retries), %d writes in %s",
		reads, r.readRetries.Load(), writes, elapsed.Round(time.Millisecond))
	return results, nil
}

// ReleasePages returns the bench pages to the pool.
func (r *Runner) ReleasePages() {
	for _, p := range r.pages {
		if err := r.pool.Release(p.Header().VolatilePageID()); err != nil {
			r.log.Warn("release bench page: %v", err)
			continue
		}
		r.collector.RecordPageReleased()
	}
	r.pages = nil
}

// writerLoop locks random pages and performs insert or split critical
// sections, writing a token pair the readers can validate.
func (r *Runner) writerLoop(ctx context.Context, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	node := thread.GroupID(0)
	e := epoch.Epoch(1)
	for n := uint64(1); ctx.Err() == nil; n++ {
		page := r.pages[rng.Intn(len(r.pages))]
		version := page.Header().Version()

		var spins uint64
		for !version.TryLock() {
			spins++
			runtime.Gosched()
		}
		r.collector.RecordLock(spins)
		r.writeRetries.Add(spins)

		token := rng.Uint64()
		payload := page.Payload()
		binary.LittleEndian.PutUint64(payload[0:8], token)
		binary.LittleEndian.PutUint64(payload[8:16], ^token)

		if n%splitEvery == 0 {
			version.SetSplitting()
			version.SetHasFosterChild(!version.Load().HasFosterChild())
			r.collector.RecordSplit()
		} else {
			version.SetInsertingAndIncrementKeyCount()
			if version.Load().KeyCount() == 0xFFFF {
				version.SetKeyCount(0)
			}
			r.collector.RecordInsert()
		}
		page.Header().UpdateStats(node, e)
		e = e.Next()
		version.Unlock()

		r.writes.Add(1)
	}
}

// readerLoop performs validated optimistic reads: stable status, payload
// read, re-load, compare. A mismatch discards the read and retries, exactly
// as a storage type would retry its traversal.
func (r *Runner) readerLoop(ctx context.Context, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for ctx.Err() == nil {
		page := r.pages[rng.Intn(len(r.pages))]
		version := page.Header().Version()

		var retries uint64
		for ctx.Err() == nil {
			before := version.Stable()
			if before.Inserting() || before.Splitting() {
				r.stableViolations.Add(1)
				break
			}
			if before.Locked() {
				retries++
				runtime.Gosched()
				continue
			}

			payload := page.Payload()
			token := binary.LittleEndian.Uint64(payload[0:8])
			inverse := binary.LittleEndian.Uint64(payload[8:16])

			after := version.Load()
			if after != before {
				retries++
				continue
			}

			// Validated read: the token pair must be coherent.
			if token != 0 && inverse != ^token {
				r.readFailures.Add(1)
			}
			r.reads.Add(1)
			r.collector.RecordOptimisticRead(retries)
			r.readRetries.Add(retries)
			break
		}
	}
}
