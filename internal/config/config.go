// Package config holds the runtime configuration for the page substrate and
// its tools.
package config

import (
	"fmt"
	"runtime"
	"time"
)

type Config struct {
	Pool     PoolConfig
	Snapshot SnapshotConfig
	Bench    BenchConfig
}

type PoolConfig struct {
	Node          uint8  // NUMA node the pool serves
	CapacityPages uint32 // Frames in the pool slab
}

type SnapshotConfig struct {
	CacheSize int // Frozen-image LRU entries
}

type BenchConfig struct {
	Pages        int           // Pages the workload touches
	Readers      int           // Optimistic reader goroutines
	Writers      int           // Lock-holding writer goroutines
	Duration     time.Duration // Wall-clock run length
	MaxWorkers   int           // Worker-pool capacity (readers+writers must fit)
	WorkerExpiry time.Duration // Idle goroutine expiry for the worker pool
	ResultsDir   string        // Where the results database lives
}

func DefaultConfig() *Config {
	return &Config{
		Pool: PoolConfig{
			Node:          0,
			CapacityPages: 1024,
		},
		Snapshot: SnapshotConfig{
			CacheSize: 256,
		},
		Bench: BenchConfig{
			Pages:        64,
			Readers:      runtime.NumCPU(),
			Writers:      2,
			Duration:     5 * time.Second,
			MaxWorkers:   256,
			WorkerExpiry: time.Second,
			ResultsDir:   "./results",
		},
	}
}

func (c *Config) Validate() error {
	if c.Pool.CapacityPages == 0 {
		return fmt.Errorf("pool capacity must be positive")
	}
	if c.Snapshot.CacheSize <= 0 {
		return fmt.Errorf("snapshot cache size must be positive")
	}
	if c.Bench.Pages <= 0 {
		return fmt.Errorf("bench pages must be positive")
	}
	if uint32(c.Bench.Pages) > c.Pool.CapacityPages {
		return fmt.Errorf("bench pages (%d) exceed pool capacity (%d)",
			c.Bench.Pages, c.Pool.CapacityPages)
	}
	if c.Bench.Readers < 0 || c.Bench.Writers < 0 {
		return fmt.Errorf("bench worker counts must not be negative")
	}
	if c.Bench.Readers+c.Bench.Writers == 0 {
		return fmt.Errorf("bench needs at least one reader or writer")
	}
	if c.Bench.Readers+c.Bench.Writers > c.Bench.MaxWorkers {
		return fmt.Errorf("bench workers (%d) exceed max workers (%d)",
			c.Bench.Readers+c.Bench.Writers, c.Bench.MaxWorkers)
	}
	if c.Bench.Duration <= 0 {
		return fmt.Errorf("bench duration must be positive")
	}
	return nil
}
