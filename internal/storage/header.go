package storage

import (
	"unsafe"

	"github.com/kartikbazzad/pagestore/internal/epoch"
	"github.com/kartikbazzad/pagestore/internal/thread"
)

// PageHeaderSize is the byte size of the common header that prefixes every
// page frame, volatile or snapshot.
const PageHeaderSize = 32

// PageHeader is the fixed-layout prefix of every page. It carries the page's
// identity, snapshot bookkeeping, advisory modifier statistics, and the
// version word that synchronizes all access to the rest of the frame.
//
// A header is owned exclusively by the frame it prefixes and is never
// aliased on its own. InitVolatile and InitSnapshot are the only ways it
// acquires a valid state; the identity fields never change afterwards within
// one representation.
type PageHeader struct {
	// pageID holds a VolatilePagePointer word for volatile pages and a
	// SnapshotPagePointer for snapshot pages, per the snapshot flag.
	pageID    uint64
	storageID StorageID
	// checksum covers the payload and is written exactly once, when the
	// page is frozen into a durable image. Zero on volatile pages.
	checksum Checksum
	pageType PageType
	snapshot bool
	root     bool
	// statLatestModifier and statLatestModifyEpoch record which node's
	// thread last touched the page and when. Advisory only: maintained
	// without transactional guarantees, read by partitioning heuristics.
	statLatestModifier    thread.GroupID
	statLatestModifyEpoch epoch.Epoch
	version               PageVersion
}

// The header layout is part of the durable image format.
var _ [PageHeaderSize]byte = [unsafe.Sizeof(PageHeader{})]byte{}

// InitVolatile stamps the header for a live in-memory page. Checksum,
// statistics, and the version word start at zero.
func (h *PageHeader) InitVolatile(pageID VolatilePagePointer, storageID StorageID, pageType PageType, root bool) {
	h.pageID = pageID.Word()
	h.storageID = storageID
	h.checksum = 0
	h.pageType = pageType
	h.snapshot = false
	h.root = root
	h.statLatestModifier = 0
	h.statLatestModifyEpoch = epoch.Invalid
	h.version = PageVersion{}
}

// InitSnapshot stamps the header for a durable page image. The checksum is
// zeroed here and written later by the snapshot writer, once.
func (h *PageHeader) InitSnapshot(pageID SnapshotPagePointer, storageID StorageID, pageType PageType, root bool) {
	h.pageID = uint64(pageID)
	h.storageID = storageID
	h.checksum = 0
	h.pageType = pageType
	h.snapshot = true
	h.root = root
	h.statLatestModifier = 0
	h.statLatestModifyEpoch = epoch.Invalid
	h.version = PageVersion{}
}

// PageID returns the raw page identifier word. Interpret it as a
// VolatilePagePointer or a SnapshotPagePointer depending on IsSnapshot.
func (h *PageHeader) PageID() uint64 { return h.pageID }

// VolatilePageID returns the identifier as a volatile pointer.
func (h *PageHeader) VolatilePageID() VolatilePagePointer { return VolatilePagePointer(h.pageID) }

// SnapshotPageID returns the identifier as a snapshot pointer.
func (h *PageHeader) SnapshotPageID() SnapshotPagePointer { return SnapshotPagePointer(h.pageID) }

// StorageID returns the ID of the storage the page belongs to.
func (h *PageHeader) StorageID() StorageID { return h.storageID }

// Checksum returns the payload checksum. Meaningful only on snapshot pages.
func (h *PageHeader) Checksum() Checksum { return h.checksum }

// SetChecksum writes the payload checksum. Legal exactly once, on a
// snapshot header; checked in debug builds only.
func (h *PageHeader) SetChecksum(c Checksum) {
	checkChecksumUnset(h)
	h.checksum = c
}

// PageType returns the payload-layout tag.
func (h *PageHeader) PageType() PageType { return h.pageType }

// IsSnapshot reports whether this is a durable page image rather than a
// live volatile page.
func (h *PageHeader) IsSnapshot() bool { return h.snapshot }

// IsRoot reports whether the page is its storage's root.
func (h *PageHeader) IsRoot() bool { return h.root }

// Stats returns the advisory last-modifier statistics.
func (h *PageHeader) Stats() (thread.GroupID, epoch.Epoch) {
	return h.statLatestModifier, h.statLatestModifyEpoch
}

// UpdateStats records the node and epoch of the latest modification. Best
// effort: callers update it while holding the page lock, but readers may
// observe torn values and must treat them as hints.
func (h *PageHeader) UpdateStats(modifier thread.GroupID, e epoch.Epoch) {
	h.statLatestModifier = modifier
	h.statLatestModifyEpoch = e
}

// Version returns the page's version word.
func (h *PageHeader) Version() *PageVersion { return &h.version }
