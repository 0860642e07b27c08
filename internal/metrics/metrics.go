// Package metrics collects page-protocol counters and renders them in
// Prometheus text exposition format. Counters are plain atomics so the hot
// path pays one uncontended add per event.
package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Collector accumulates protocol events. The zero value is ready to use.
type Collector struct {
	lockAcquisitions atomic.Uint64
	lockRetries      atomic.Uint64
	stableRetries    atomic.Uint64

	inserts         atomic.Uint64
	splits          atomic.Uint64
	optimisticReads atomic.Uint64
	readRetries     atomic.Uint64

	pagesAllocated atomic.Uint64
	pagesReleased  atomic.Uint64
	pagesFrozen    atomic.Uint64
}

func NewCollector() *Collector {
	return &Collector{}
}

// RecordLock records one successful lock acquisition after the given number
// of failed attempts.
func (c *Collector) RecordLock(retries uint64) {
	c.lockAcquisitions.Add(1)
	if retries > 0 {
		c.lockRetries.Add(retries)
	}
}

// RecordStableRetries records spins a stable-status read needed before it
// observed a quiescent word.
func (c *Collector) RecordStableRetries(retries uint64) {
	if retries > 0 {
		c.stableRetries.Add(retries)
	}
}

// RecordInsert records one completed insert critical section.
func (c *Collector) RecordInsert() { c.inserts.Add(1) }

// RecordSplit records one completed split critical section.
func (c *Collector) RecordSplit() { c.splits.Add(1) }

// RecordOptimisticRead records one validated optimistic read and how many
// times it had to be retried before validating.
func (c *Collector) RecordOptimisticRead(retries uint64) {
	c.optimisticReads.Add(1)
	if retries > 0 {
		c.readRetries.Add(retries)
	}
}

// RecordPageAllocated records one frame handed out by a pool.
func (c *Collector) RecordPageAllocated() { c.pagesAllocated.Add(1) }

// RecordPageReleased records one frame returned to a pool.
func (c *Collector) RecordPageReleased() { c.pagesReleased.Add(1) }

// RecordPageFrozen records one page frozen into a snapshot image.
func (c *Collector) RecordPageFrozen() { c.pagesFrozen.Add(1) }

// Snapshot of every counter, for programmatic use.
type Snapshot struct {
	LockAcquisitions uint64
	LockRetries      uint64
	StableRetries    uint64
	Inserts          uint64
	Splits           uint64
	OptimisticReads  uint64
	ReadRetries      uint64
	PagesAllocated   uint64
	PagesReleased    uint64
	PagesFrozen      uint64
}

func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		LockAcquisitions: c.lockAcquisitions.Load(),
		LockRetries:      c.lockRetries.Load(),
		StableRetries:    c.stableRetries.Load(),
		Inserts:          c.inserts.Load(),
		Splits:           c.splits.Load(),
		OptimisticReads:  c.optimisticReads.Load(),
		ReadRetries:      c.readRetries.Load(),
		PagesAllocated:   c.pagesAllocated.Load(),
		PagesReleased:    c.pagesReleased.Load(),
		PagesFrozen:      c.pagesFrozen.Load(),
	}
}

// Export renders all counters in Prometheus/OpenMetrics text format.
func (c *Collector) Export() string {
	s := c.Snapshot()
	var b strings.Builder

	writeCounter(&b, "pagestore_lock_acquisitions_total",
		"Total page lock acquisitions.", s.LockAcquisitions)
	writeCounter(&b, "pagestore_lock_retries_total",
		"Total failed lock attempts before acquisition.", s.LockRetries)
	writeCounter(&b, "pagestore_stable_retries_total",
		"Total spins waiting for a stable version.", s.StableRetries)
	writeCounter(&b, "pagestore_inserts_total",
		"Total completed insert critical sections.", s.Inserts)
	writeCounter(&b, "pagestore_splits_total",
		"Total completed split critical sections.", s.Splits)
	writeCounter(&b, "pagestore_optimistic_reads_total",
		"Total validated optimistic reads.", s.OptimisticReads)
	writeCounter(&b, "pagestore_read_retries_total",
		"Total optimistic read retries due to version mismatch.", s.ReadRetries)
	writeCounter(&b, "pagestore_pages_allocated_total",
		"Total page frames handed out.", s.PagesAllocated)
	writeCounter(&b, "pagestore_pages_released_total",
		"Total page frames returned.", s.PagesReleased)
	writeCounter(&b, "pagestore_pages_frozen_total",
		"Total pages frozen into snapshot images.", s.PagesFrozen)

	return b.String()
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s counter\n", name)
	fmt.Fprintf(b, "%s %d\n", name, value)
}
