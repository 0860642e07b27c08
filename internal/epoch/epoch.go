// Package epoch provides the engine's coarse logical clock. An epoch is a
// 32-bit counter advanced every few tens of milliseconds; page headers stamp
// the epoch of their latest modification as an advisory statistic.
package epoch

import "fmt"

// Epoch is a coarse logical timestamp. Zero is the invalid epoch; valid
// epochs wrap around from MaxEpoch back to 1, so comparisons are only
// meaningful between epochs less than half the range apart.
type Epoch uint32

const (
	Invalid  Epoch = 0
	MaxEpoch Epoch = 0xFFFFFFFF

	// halfRange bounds how far apart two comparable epochs may be.
	halfRange = 1 << 31
)

// Valid reports whether e is a usable epoch.
func (e Epoch) Valid() bool {
	return e != Invalid
}

// Next returns the epoch after e, skipping the invalid zero on wraparound.
func (e Epoch) Next() Epoch {
	n := e + 1
	if n == Invalid {
		n = 1
	}
	return n
}

// Before reports whether e is older than other, accounting for wraparound.
// Both epochs must be valid and within half the epoch range of each other.
func (e Epoch) Before(other Epoch) bool {
	if e == other {
		return false
	}
	diff := uint32(other - e)
	return diff < halfRange
}

// After reports whether e is newer than other.
func (e Epoch) After(other Epoch) bool {
	return other.Before(e)
}

func (e Epoch) String() string {
	if !e.Valid() {
		return "epoch(invalid)"
	}
	return fmt.Sprintf("epoch(%d)", uint32(e))
}
