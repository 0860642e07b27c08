// Package memory owns the volatile page frames. A PagePool carves
// fixed-size frames out of one contiguous slab per NUMA node and hands them
// to storage types; it never frees a frame while the engine runs, it only
// recycles frames callers explicitly release after quiescence.
package memory

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kartikbazzad/pagestore/internal/logger"
	"github.com/kartikbazzad/pagestore/internal/storage"
	"github.com/kartikbazzad/pagestore/internal/thread"
)

var (
	// ErrPoolExhausted is returned when no free frame is left.
	ErrPoolExhausted = errors.New("page pool exhausted")

	// ErrBadPointer is returned for a pointer outside this pool.
	ErrBadPointer = errors.New("pointer does not belong to this pool")

	// ErrDoubleRelease is returned when a frame is released twice.
	ErrDoubleRelease = errors.New("page frame released twice")
)

// PagePool is the page manager for one NUMA node. Frame offsets start at 1;
// offset 0 is the null page and is never handed out, so a zero
// VolatilePagePointer always means "no page".
type PagePool struct {
	node     thread.GroupID
	slab     []byte
	capacity uint32

	mu       sync.Mutex
	next     uint32   // next never-used offset
	freeList []uint32 // released offsets available for reuse
	released []bool   // per-offset release state, index 0 unused

	inUse atomic.Int64

	log *logger.Logger
}

// NewPagePool allocates a slab of capacityPages frames for the given node.
func NewPagePool(node thread.GroupID, capacityPages uint32, log *logger.Logger) (*PagePool, error) {
	if capacityPages == 0 {
		return nil, fmt.Errorf("page pool capacity must be positive")
	}
	if log == nil {
		log = logger.Default()
	}
	p := &PagePool{
		node:     node,
		slab:     make([]byte, uint64(capacityPages)*storage.PageSize),
		capacity: capacityPages,
		next:     1,
		released: make([]bool, capacityPages+1),
		log:      log,
	}
	p.log.Info("page pool ready: node=%d capacity=%d pages (%d MB)",
		node, capacityPages, uint64(capacityPages)*storage.PageSize/(1<<20))
	return p, nil
}

// Node returns the NUMA node this pool serves.
func (p *PagePool) Node() thread.GroupID { return p.node }

// Capacity returns the total number of frames in the pool.
func (p *PagePool) Capacity() uint32 { return p.capacity }

// InUse returns the number of frames currently handed out.
func (p *PagePool) InUse() int64 { return p.inUse.Load() }

// Grab hands out a zero-filled frame and its pointer. The caller owns the
// frame until it passes the pointer to Release.
func (p *PagePool) Grab() (*storage.Page, storage.VolatilePagePointer, error) {
	p.mu.Lock()
	var offset uint32
	switch {
	case len(p.freeList) > 0:
		offset = p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		p.released[offset] = false
	case p.next <= p.capacity:
		offset = p.next
		p.next++
	default:
		p.mu.Unlock()
		p.log.Warn("page pool exhausted: node=%d capacity=%d", p.node, p.capacity)
		return nil, 0, ErrPoolExhausted
	}
	p.mu.Unlock()

	frame := p.frame(offset)
	clear(frame)
	page, err := storage.PageFrom(frame)
	if err != nil {
		// Slab frames are PageSize-sized and 8-aligned by construction.
		return nil, 0, fmt.Errorf("pool frame invalid: %w", err)
	}
	p.inUse.Add(1)
	return page, storage.NewVolatilePagePointer(p.node, offset), nil
}

// Resolve maps a pointer back to its frame. The frame's content is whatever
// the owning storage type last wrote; Resolve performs no synchronization.
func (p *PagePool) Resolve(ptr storage.VolatilePagePointer) (*storage.Page, error) {
	offset, err := p.checkPointer(ptr)
	if err != nil {
		return nil, err
	}
	return storage.PageFrom(p.frame(offset))
}

// Release returns a frame to the pool for reuse. The caller must guarantee
// no reader can still reach the page; the pool does not track quiescence.
func (p *PagePool) Release(ptr storage.VolatilePagePointer) error {
	offset, err := p.checkPointer(ptr)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if offset >= p.next || p.released[offset] {
		return fmt.Errorf("%w: %s", ErrDoubleRelease, ptr)
	}
	p.released[offset] = true
	p.freeList = append(p.freeList, offset)
	p.inUse.Add(-1)
	return nil
}

func (p *PagePool) checkPointer(ptr storage.VolatilePagePointer) (uint32, error) {
	if ptr.IsNull() {
		return 0, fmt.Errorf("%w: null pointer", ErrBadPointer)
	}
	if ptr.Node() != p.node {
		return 0, fmt.Errorf("%w: %s is on node %d, pool serves node %d",
			ErrBadPointer, ptr, ptr.Node(), p.node)
	}
	offset := ptr.Offset()
	if offset > p.capacity {
		return 0, fmt.Errorf("%w: offset %d beyond capacity %d", ErrBadPointer, offset, p.capacity)
	}
	return offset, nil
}

func (p *PagePool) frame(offset uint32) []byte {
	start := uint64(offset-1) * storage.PageSize
	return p.slab[start : start+storage.PageSize : start+storage.PageSize]
}
