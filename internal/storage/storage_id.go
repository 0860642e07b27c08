package storage

import (
	"fmt"

	"github.com/kartikbazzad/pagestore/internal/thread"
)

// StorageID is the unique ID of a storage (an array store, a tree, a hash
// store, ...). Zero is reserved for "no storage".
type StorageID uint32

// Checksum is the content checksum of a durable page image. It is only
// meaningful on snapshot pages; volatile pages carry zero.
type Checksum uint32

// PageType tags the layout of a page's payload. The values are stored in
// snapshot page images, so they must never be renumbered.
type PageType uint8

const (
	UnknownPageType PageType = iota
	ArrayPageType
	TreeIntermediatePageType
	TreeBorderPageType
	SequentialPageType
	SequentialRootPageType
	HashRootPageType
	HashBinPageType
	HashDataPageType
)

func (t PageType) String() string {
	switch t {
	case UnknownPageType:
		return "unknown"
	case ArrayPageType:
		return "array"
	case TreeIntermediatePageType:
		return "tree-intermediate"
	case TreeBorderPageType:
		return "tree-border"
	case SequentialPageType:
		return "sequential"
	case SequentialRootPageType:
		return "sequential-root"
	case HashRootPageType:
		return "hash-root"
	case HashBinPageType:
		return "hash-bin"
	case HashDataPageType:
		return "hash-data"
	default:
		return fmt.Sprintf("page-type(%d)", uint8(t))
	}
}

// VolatilePagePointer locates a volatile page in the in-memory page pools:
// the owning NUMA node in bits 32-39 and the pool-local frame offset in the
// low 32 bits. Offset zero is the null page.
type VolatilePagePointer uint64

// NewVolatilePagePointer composes a volatile pointer from a node and a
// pool-local offset.
func NewVolatilePagePointer(node thread.GroupID, offset uint32) VolatilePagePointer {
	return VolatilePagePointer(uint64(node)<<32 | uint64(offset))
}

// IsNull reports whether the pointer addresses no page.
func (p VolatilePagePointer) IsNull() bool {
	return p.Offset() == 0
}

// Node returns the NUMA node whose pool owns the page.
func (p VolatilePagePointer) Node() thread.GroupID {
	return thread.GroupID(p >> 32)
}

// Offset returns the pool-local frame offset.
func (p VolatilePagePointer) Offset() uint32 {
	return uint32(p)
}

// Word returns the raw 64-bit representation stored in page headers.
func (p VolatilePagePointer) Word() uint64 {
	return uint64(p)
}

func (p VolatilePagePointer) String() string {
	return fmt.Sprintf("volatile-ptr(node=%d, offset=%d)", p.Node(), p.Offset())
}

// SnapshotPagePointer locates a page image in a durable snapshot file.
// Zero means the page has never been snapshotted.
type SnapshotPagePointer uint64

// IsNull reports whether the pointer addresses no snapshot page.
func (p SnapshotPagePointer) IsNull() bool {
	return p == 0
}

func (p SnapshotPagePointer) String() string {
	return fmt.Sprintf("snapshot-ptr(%d)", uint64(p))
}
