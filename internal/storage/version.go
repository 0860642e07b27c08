// Package storage implements the page-level concurrency substrate shared by
// every storage type: the versioned lock word, the common page header, the
// fixed page frame, and the page initializers invoked when a frame is first
// materialized. Higher-level structures (array stores, trees, hash stores)
// interpret page payloads; this package only defines the envelope they all
// obey.
package storage

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

// Bit layout of the version word. The word is written into durable page
// images, so the layout must stay stable.
//
//	bit 63      locked
//	bit 62      inserting
//	bit 61      splitting
//	bit 60      deleted (reserved)
//	bit 59      has_foster_child
//	bit 58      is_border
//	bit 57      is_high_fence_supremum
//	bits 51-56  insertion counter
//	bits 33-50  split counter
//	bits 16-31  physical key count
//	bits 8-15   layer
const (
	versionLockedBit         uint64 = 1 << 63
	versionInsertingBit      uint64 = 1 << 62
	versionSplittingBit      uint64 = 1 << 61
	versionDeletedBit        uint64 = 1 << 60
	versionHasFosterChildBit uint64 = 1 << 59
	versionIsBorderBit       uint64 = 1 << 58
	versionIsSupremumBit     uint64 = 1 << 57

	versionInsertionCounterMask  uint64 = 0x01F8000000000000
	versionInsertionCounterShift        = 51
	versionSplitCounterMask      uint64 = 0x0007FFFE00000000
	versionSplitCounterShift            = 33
	versionKeyCountMask          uint64 = 0x00000000FFFF0000
	versionKeyCountShift                = 16
	versionLayerMask             uint64 = 0x000000000000FF00
	versionLayerShift                   = 8

	// Fields an Unlock carries over unchanged.
	versionUnlockMask = versionHasFosterChildBit | versionIsBorderBit |
		versionKeyCountMask | versionLayerMask
)

// VersionStatus is one observed value of a page's version word. It is a
// plain immutable value; its accessors never re-read the live word. Readers
// capture a status before and after an optimistic payload read and compare
// the two to detect a concurrent structural change.
type VersionStatus uint64

// Word returns the raw 64-bit value.
func (v VersionStatus) Word() uint64 { return uint64(v) }

// Locked reports whether a writer held the page when this value was read.
func (v VersionStatus) Locked() bool { return uint64(v)&versionLockedBit != 0 }

// Inserting reports whether a record insert was in progress.
func (v VersionStatus) Inserting() bool { return uint64(v)&versionInsertingBit != 0 }

// Splitting reports whether a structural split was in progress.
func (v VersionStatus) Splitting() bool { return uint64(v)&versionSplittingBit != 0 }

// Deleted reports the reserved page-removal bit. Nothing sets it today.
func (v VersionStatus) Deleted() bool { return uint64(v)&versionDeletedBit != 0 }

// HasFosterChild reports whether the page currently carries a foster child
// produced by an in-progress split. Tree pages only.
func (v VersionStatus) HasFosterChild() bool { return uint64(v)&versionHasFosterChildBit != 0 }

// IsBorder reports whether the page is a leaf-level (border) page.
func (v VersionStatus) IsBorder() bool { return uint64(v)&versionIsBorderBit != 0 }

// IsHighFenceSupremum reports whether the page's upper key boundary is the
// unbounded maximum.
func (v VersionStatus) IsHighFenceSupremum() bool { return uint64(v)&versionIsSupremumBit != 0 }

// InsertionCounter returns the count of completed inserts, modulo 2^6.
func (v VersionStatus) InsertionCounter() uint32 {
	return uint32((uint64(v) & versionInsertionCounterMask) >> versionInsertionCounterShift)
}

// SplitCounter returns the count of completed splits, modulo 2^18.
func (v VersionStatus) SplitCounter() uint32 {
	return uint32((uint64(v) & versionSplitCounterMask) >> versionSplitCounterShift)
}

// KeyCount returns the number of physical key slots on the page, including
// logically deleted ones.
func (v VersionStatus) KeyCount() uint16 {
	return uint16((uint64(v) & versionKeyCountMask) >> versionKeyCountShift)
}

// Layer returns which 8-byte key slice this page indexes. Layer 0 covers the
// first slice, layer 1 the next, and so on.
func (v VersionStatus) Layer() uint8 {
	return uint8((uint64(v) & versionLayerMask) >> versionLayerShift)
}

func (v VersionStatus) String() string {
	return fmt.Sprintf(
		"version{locked=%v inserting=%v splitting=%v foster=%v border=%v supremum=%v ins=%d split=%d keys=%d layer=%d}",
		v.Locked(), v.Inserting(), v.Splitting(), v.HasFosterChild(), v.IsBorder(),
		v.IsHighFenceSupremum(), v.InsertionCounter(), v.SplitCounter(), v.KeyCount(), v.Layer())
}

// PageVersion is the 8-byte versioned lock word embedded in every page
// header, and the only synchronization a page has. Writers acquire the lock
// bit before any structural mutation and publish by unlocking; readers never
// block, they take a stable status, read the payload, and re-take a status
// to validate. The zero value is a valid unlocked word with all counters at
// zero.
//
// Every mutator except Initialize, TryLock, and Lock requires the caller to
// hold the lock bit. The requirement is checked only in debug builds
// (-tags debug); violating it in a release build corrupts the page.
type PageVersion struct {
	word uint64
}

// Initialize sets the word from scratch with zero counters and zero key
// count. Only legal on a page not yet visible to any other goroutine.
func (pv *PageVersion) Initialize(locked, hasFosterChild, isBorder, isHighFenceSupremum bool, layer uint8) {
	var w uint64
	if locked {
		w |= versionLockedBit
	}
	if hasFosterChild {
		w |= versionHasFosterChildBit
	}
	if isBorder {
		w |= versionIsBorderBit
	}
	if isHighFenceSupremum {
		w |= versionIsSupremumBit
	}
	w |= uint64(layer) << versionLayerShift
	atomic.StoreUint64(&pv.word, w)
}

// Load returns the current value of the word. The value may be
// mid-modification; use Stable when the caller is about to read the payload.
func (pv *PageVersion) Load() VersionStatus {
	return VersionStatus(atomic.LoadUint64(&pv.word))
}

// Stable spins until it observes a value with neither inserting nor
// splitting set and returns it. The atomic load gives the acquire ordering
// optimistic readers need: payload reads issued after Stable returns
// happen-after the unlock that published them.
func (pv *PageVersion) Stable() VersionStatus {
	for {
		w := atomic.LoadUint64(&pv.word)
		if w&(versionInsertingBit|versionSplittingBit) == 0 {
			return VersionStatus(w)
		}
		runtime.Gosched()
	}
}

// TryLock attempts to acquire the lock bit once. It fails if the word is
// already locked or if a concurrent locker wins the race.
func (pv *PageVersion) TryLock() bool {
	w := atomic.LoadUint64(&pv.word)
	if w&versionLockedBit != 0 {
		return false
	}
	return atomic.CompareAndSwapUint64(&pv.word, w, w|versionLockedBit)
}

// Lock acquires the lock bit, spinning until it succeeds. Critical sections
// under this lock are sub-microsecond, so spinning beats parking; callers
// that need a bounded wait must bound the enclosing traversal instead.
func (pv *PageVersion) Lock() {
	for !pv.TryLock() {
		runtime.Gosched()
	}
}

// SetInserting marks a record insert in progress. Requires the lock.
func (pv *PageVersion) SetInserting() {
	checkPageLocked(pv, "SetInserting")
	atomic.StoreUint64(&pv.word, atomic.LoadUint64(&pv.word)|versionInsertingBit)
}

// SetInsertingAndIncrementKeyCount marks an insert in progress and bumps the
// key count in one step. Requires the lock.
func (pv *PageVersion) SetInsertingAndIncrementKeyCount() {
	checkPageLocked(pv, "SetInsertingAndIncrementKeyCount")
	w := atomic.LoadUint64(&pv.word)
	atomic.StoreUint64(&pv.word, (w|versionInsertingBit)+(1<<versionKeyCountShift))
}

// IncrementKeyCount bumps the physical key count. Requires the lock.
func (pv *PageVersion) IncrementKeyCount() {
	checkPageLocked(pv, "IncrementKeyCount")
	atomic.StoreUint64(&pv.word, atomic.LoadUint64(&pv.word)+(1<<versionKeyCountShift))
}

// SetKeyCount overwrites the physical key count. Requires the lock.
func (pv *PageVersion) SetKeyCount(count uint16) {
	checkPageLocked(pv, "SetKeyCount")
	w := atomic.LoadUint64(&pv.word)
	w = (w &^ versionKeyCountMask) | (uint64(count) << versionKeyCountShift)
	atomic.StoreUint64(&pv.word, w)
}

// SetSplitting marks a structural split in progress. Requires the lock.
func (pv *PageVersion) SetSplitting() {
	checkPageLocked(pv, "SetSplitting")
	atomic.StoreUint64(&pv.word, atomic.LoadUint64(&pv.word)|versionSplittingBit)
}

// SetHasFosterChild sets or clears the foster-child flag. Requires the lock.
func (pv *PageVersion) SetHasFosterChild(has bool) {
	checkPageLocked(pv, "SetHasFosterChild")
	w := atomic.LoadUint64(&pv.word)
	if has {
		w |= versionHasFosterChildBit
	} else {
		w &^= versionHasFosterChildBit
	}
	atomic.StoreUint64(&pv.word, w)
}

// Unlock releases the lock and publishes the critical section. It carries
// over the foster-child flag, border flag, key count, and layer; advances
// the insertion counter if inserting was set, else the split counter if
// splitting was set; and clears the locked, inserting, splitting, and
// deleted bits. A page undergoes exactly one kind of progress per critical
// section, so the two counters never advance together.
func (pv *PageVersion) Unlock() {
	w := atomic.LoadUint64(&pv.word)
	checkUnlockPrecondition(w)

	next := w & versionUnlockMask
	ins := w & versionInsertionCounterMask
	if w&versionInsertingBit != 0 {
		ins = (ins + (1 << versionInsertionCounterShift)) & versionInsertionCounterMask
	}
	spl := w & versionSplitCounterMask
	if w&versionSplittingBit != 0 {
		spl = (spl + (1 << versionSplitCounterShift)) & versionSplitCounterMask
	}
	atomic.StoreUint64(&pv.word, next|ins|spl)
}
