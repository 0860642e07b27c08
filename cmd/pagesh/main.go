// pagesh is an interactive shell over an in-process page pool, for poking
// at the version-word protocol: allocate pages, lock and unlock them, drive
// insert/split critical sections, freeze snapshot images, and watch the
// counters move.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/kartikbazzad/pagestore/internal/logger"
	"github.com/kartikbazzad/pagestore/internal/memory"
	"github.com/kartikbazzad/pagestore/internal/metrics"
	"github.com/kartikbazzad/pagestore/internal/snapshot"
	"github.com/kartikbazzad/pagestore/internal/storage"
)

const prompt = "pagesh> "

var commands = []string{
	"alloc", "show", "lock", "trylock", "unlock", "insert", "split",
	"foster", "keycount", "freeze", "verify", "release", "stats", "help", "exit",
}

type session struct {
	pool      *memory.PagePool
	freezer   *snapshot.Freezer
	collector *metrics.Collector
	init      storage.PageInitializer
	pages     map[uint32]*storage.Page
	nextSnap  storage.SnapshotPagePointer
}

func main() {
	capacity := flag.Uint("pool-capacity", 256, "Page pool capacity in pages")
	flag.Parse()

	logr := logger.Default()
	logr.SetLevel(logger.LevelWarn)

	pool, err := memory.NewPagePool(0, uint32(*capacity), logr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create page pool: %v\n", err)
		os.Exit(1)
	}
	collector := metrics.NewCollector()
	freezer, err := snapshot.NewFreezer(64, logr, collector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create freezer: %v\n", err)
		os.Exit(1)
	}

	s := &session{
		pool:      pool,
		freezer:   freezer,
		collector: collector,
		init:      storage.NewVolatilePageInitializer(1, storage.TreeBorderPageType, false, nil),
		pages:     make(map[uint32]*storage.Page),
		nextSnap:  1,
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(prefix string) []string {
		var out []string
		for _, c := range commands {
			if strings.HasPrefix(c, prefix) {
				out = append(out, c)
			}
		}
		return out
	})

	fmt.Println("pagesh: page protocol shell. Type 'help' for commands.")

	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println()
				return
			}
			fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if s.execute(input) {
			return
		}
	}
}

// execute runs one command line; returns true when the shell should exit.
func (s *session) execute(input string) bool {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "exit", "quit":
		return true
	case "help":
		printHelp()
	case "alloc":
		s.alloc()
	case "show":
		s.withPage(args, func(p *storage.Page) {
			hdr := p.Header()
			fmt.Printf("page %s storage=%d type=%s root=%v snapshot=%v\n",
				hdr.VolatilePageID(), hdr.StorageID(), hdr.PageType(), hdr.IsRoot(), hdr.IsSnapshot())
			fmt.Printf("  %s\n", hdr.Version().Load())
		})
	case "lock":
		s.withPage(args, func(p *storage.Page) {
			p.Header().Version().Lock()
			s.collector.RecordLock(0)
			fmt.Println("locked")
		})
	case "trylock":
		s.withPage(args, func(p *storage.Page) {
			if p.Header().Version().TryLock() {
				s.collector.RecordLock(0)
				fmt.Println("locked")
			} else {
				fmt.Println("busy")
			}
		})
	case "unlock":
		s.withPage(args, func(p *storage.Page) {
			p.Header().Version().Unlock()
			fmt.Printf("unlocked: %s\n", p.Header().Version().Load())
		})
	case "insert":
		s.withPage(args, func(p *storage.Page) {
			p.Header().Version().SetInsertingAndIncrementKeyCount()
			s.collector.RecordInsert()
			fmt.Println("inserting set, key count bumped (unlock to publish)")
		})
	case "split":
		s.withPage(args, func(p *storage.Page) {
			p.Header().Version().SetSplitting()
			s.collector.RecordSplit()
			fmt.Println("splitting set (unlock to publish)")
		})
	case "foster":
		if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
			fmt.Println("usage: foster <offset> on|off")
			return false
		}
		s.withPage(args[:1], func(p *storage.Page) {
			p.Header().Version().SetHasFosterChild(args[1] == "on")
			fmt.Println("ok")
		})
	case "keycount":
		if len(args) != 2 {
			fmt.Println("usage: keycount <offset> <count>")
			return false
		}
		count, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil {
			fmt.Printf("bad count: %v\n", err)
			return false
		}
		s.withPage(args[:1], func(p *storage.Page) {
			p.Header().Version().SetKeyCount(uint16(count))
			fmt.Println("ok")
		})
	case "freeze":
		s.withPage(args, func(p *storage.Page) {
			id := s.nextSnap
			img, err := s.freezer.Freeze(p, id)
			if err != nil {
				fmt.Printf("freeze failed: %v\n", err)
				return
			}
			s.nextSnap++
			frozen, _ := storage.PageFrom(img)
			fmt.Printf("frozen as %s checksum=%08x\n", id, uint32(frozen.Header().Checksum()))
		})
	case "verify":
		if len(args) != 1 {
			fmt.Println("usage: verify <snapshot-id>")
			return false
		}
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			fmt.Printf("bad snapshot id: %v\n", err)
			return false
		}
		img, ok := s.freezer.Lookup(storage.SnapshotPagePointer(id))
		if !ok {
			fmt.Println("no cached image with that id")
			return false
		}
		if err := s.freezer.Verify(img); err != nil {
			fmt.Printf("verify failed: %v\n", err)
		} else {
			fmt.Println("checksum ok")
		}
	case "release":
		s.withPage(args, func(p *storage.Page) {
			ptr := p.Header().VolatilePageID()
			if err := s.pool.Release(ptr); err != nil {
				fmt.Printf("release failed: %v\n", err)
				return
			}
			delete(s.pages, ptr.Offset())
			s.collector.RecordPageReleased()
			fmt.Println("released")
		})
	case "stats":
		fmt.Printf("pool: node=%d in-use=%d/%d\n", s.pool.Node(), s.pool.InUse(), s.pool.Capacity())
		fmt.Print(s.collector.Export())
	default:
		fmt.Printf("unknown command %q; type 'help'\n", cmd)
	}
	return false
}

func (s *session) alloc() {
	page, ptr, err := s.pool.Grab()
	if err != nil {
		fmt.Printf("alloc failed: %v\n", err)
		return
	}
	s.init.Initialize(page, ptr)
	s.pages[ptr.Offset()] = page
	s.collector.RecordPageAllocated()
	fmt.Printf("allocated %s\n", ptr)
}

// withPage parses args[0] as a pool offset and runs fn on that page.
func (s *session) withPage(args []string, fn func(*storage.Page)) {
	if len(args) < 1 {
		fmt.Println("usage: <command> <offset>")
		return
	}
	offset, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Printf("bad offset: %v\n", err)
		return
	}
	page, ok := s.pages[uint32(offset)]
	if !ok {
		fmt.Printf("no allocated page at offset %d (see 'alloc')\n", offset)
		return
	}
	fn(page)
}

func printHelp() {
	fmt.Print(`Commands:
  alloc                 allocate and initialize a page
  show <offset>         print a page's header and version word
  lock <offset>         acquire the page lock (spins)
  trylock <offset>      try to acquire the page lock once
  unlock <offset>       release the lock, publishing the critical section
  insert <offset>       mark inserting and bump key count (requires lock)
  split <offset>        mark splitting (requires lock)
  foster <offset> on|off  set or clear the foster-child flag (requires lock)
  keycount <offset> <n> overwrite the key count (requires lock)
  freeze <offset>       freeze the page into a snapshot image
  verify <snapshot-id>  re-checksum a cached snapshot image
  release <offset>      return the page frame to the pool
  stats                 pool usage and protocol counters
  exit                  leave the shell
`)
}
