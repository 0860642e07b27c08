//go:build !debug

package storage

func checkPageLocked(pv *PageVersion, op string) {
	_ = pv
	_ = op
}

func checkUnlockPrecondition(w uint64) {
	_ = w
}

func checkChecksumUnset(h *PageHeader) {
	_ = h
}
