//go:build debug

package storage

import (
	"fmt"
	"sync/atomic"
)

// checkPageLocked verifies the caller holds the page lock before mutating a
// lock-protected version field. Panics on violation; compiled out of release
// builds.
func checkPageLocked(pv *PageVersion, op string) {
	if atomic.LoadUint64(&pv.word)&versionLockedBit == 0 {
		panic(fmt.Sprintf("pagestore invariant: %s called without holding the page lock", op))
	}
}

// checkUnlockPrecondition verifies an Unlock is legal for the given word:
// the lock must be held and at most one transitional bit may be set.
func checkUnlockPrecondition(w uint64) {
	if w&versionLockedBit == 0 {
		panic("pagestore invariant: Unlock called without holding the page lock")
	}
	if w&versionInsertingBit != 0 && w&versionSplittingBit != 0 {
		panic("pagestore invariant: inserting and splitting both set at Unlock")
	}
}

// checkChecksumUnset verifies the one-shot write rule for snapshot
// checksums.
func checkChecksumUnset(h *PageHeader) {
	if !h.snapshot {
		panic("pagestore invariant: checksum written to a volatile page")
	}
	if h.checksum != 0 {
		panic("pagestore invariant: snapshot checksum written twice")
	}
}
