package storage

import (
	"sync"
	"testing"
	"time"
)

func TestPageVersion_InitializeRoundTrip(t *testing.T) {
	tests := []struct {
		name                string
		locked              bool
		hasFosterChild      bool
		isBorder            bool
		isHighFenceSupremum bool
		layer               uint8
	}{
		{"all clear", false, false, false, false, 0},
		{"locked only", true, false, false, false, 0},
		{"foster child", false, true, false, false, 0},
		{"border", false, false, true, false, 0},
		{"supremum", false, false, false, true, 0},
		{"layer mid", false, false, false, false, 7},
		{"layer max", false, false, false, false, 255},
		{"everything", true, true, true, true, 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var pv PageVersion
			pv.Initialize(tt.locked, tt.hasFosterChild, tt.isBorder, tt.isHighFenceSupremum, tt.layer)
			v := pv.Load()
			if v.Locked() != tt.locked {
				t.Errorf("Locked: got %v, want %v", v.Locked(), tt.locked)
			}
			if v.HasFosterChild() != tt.hasFosterChild {
				t.Errorf("HasFosterChild: got %v, want %v", v.HasFosterChild(), tt.hasFosterChild)
			}
			if v.IsBorder() != tt.isBorder {
				t.Errorf("IsBorder: got %v, want %v", v.IsBorder(), tt.isBorder)
			}
			if v.IsHighFenceSupremum() != tt.isHighFenceSupremum {
				t.Errorf("IsHighFenceSupremum: got %v, want %v", v.IsHighFenceSupremum(), tt.isHighFenceSupremum)
			}
			if v.Layer() != tt.layer {
				t.Errorf("Layer: got %d, want %d", v.Layer(), tt.layer)
			}
			if v.InsertionCounter() != 0 || v.SplitCounter() != 0 {
				t.Errorf("counters after Initialize: got ins=%d split=%d, want 0/0",
					v.InsertionCounter(), v.SplitCounter())
			}
			if v.KeyCount() != 0 {
				t.Errorf("KeyCount after Initialize: got %d, want 0", v.KeyCount())
			}
			if v.Inserting() || v.Splitting() || v.Deleted() {
				t.Errorf("transitional bits after Initialize: %s", v)
			}
		})
	}
}

func TestPageVersion_UnlockAfterInsert(t *testing.T) {
	var pv PageVersion
	pv.Initialize(false, false, true, false, 3)

	pv.Lock()
	pv.SetInsertingAndIncrementKeyCount()
	pv.Unlock()

	v := pv.Load()
	if v.Locked() || v.Inserting() || v.Splitting() {
		t.Fatalf("bits not cleared after Unlock: %s", v)
	}
	if v.InsertionCounter() != 1 {
		t.Errorf("InsertionCounter: got %d, want 1", v.InsertionCounter())
	}
	if v.SplitCounter() != 0 {
		t.Errorf("SplitCounter: got %d, want 0", v.SplitCounter())
	}
	if v.KeyCount() != 1 {
		t.Errorf("KeyCount: got %d, want 1", v.KeyCount())
	}
	if v.Layer() != 3 {
		t.Errorf("Layer: got %d, want 3", v.Layer())
	}
	if !v.IsBorder() {
		t.Error("IsBorder lost across Unlock")
	}
}

func TestPageVersion_UnlockAfterSplit(t *testing.T) {
	var pv PageVersion
	pv.Initialize(false, false, false, false, 0)

	pv.Lock()
	pv.SetSplitting()
	pv.SetHasFosterChild(true)
	pv.Unlock()

	v := pv.Load()
	if v.SplitCounter() != 1 {
		t.Errorf("SplitCounter: got %d, want 1", v.SplitCounter())
	}
	if v.InsertionCounter() != 0 {
		t.Errorf("InsertionCounter: got %d, want 0", v.InsertionCounter())
	}
	if !v.HasFosterChild() {
		t.Error("HasFosterChild lost across Unlock")
	}
	if v.Locked() || v.Splitting() {
		t.Fatalf("bits not cleared after Unlock: %s", v)
	}
}

func TestPageVersion_UnlockWithoutProgress(t *testing.T) {
	var pv PageVersion
	pv.Initialize(false, false, true, false, 1)

	pv.Lock()
	pv.SetKeyCount(17)
	pv.Unlock()

	v := pv.Load()
	if v.InsertionCounter() != 0 || v.SplitCounter() != 0 {
		t.Errorf("counters advanced without transitional bit: ins=%d split=%d",
			v.InsertionCounter(), v.SplitCounter())
	}
	if v.KeyCount() != 17 {
		t.Errorf("KeyCount: got %d, want 17", v.KeyCount())
	}
}

func TestPageVersion_KeyCountRoundTrip(t *testing.T) {
	for _, count := range []uint16{0, 1, 2, 255, 256, 4095, 32768, 65534, 65535} {
		var pv PageVersion
		pv.Initialize(false, false, true, false, 5)
		pv.Lock()
		pv.SetKeyCount(count)
		if got := pv.Load().KeyCount(); got != count {
			t.Errorf("KeyCount while locked: got %d, want %d", got, count)
		}
		pv.Unlock()
		v := pv.Load()
		if got := v.KeyCount(); got != count {
			t.Errorf("KeyCount after Unlock: got %d, want %d", got, count)
		}
		if v.Layer() != 5 {
			t.Errorf("Layer disturbed by SetKeyCount(%d): got %d, want 5", count, v.Layer())
		}
	}
}

func TestPageVersion_IncrementKeyCount(t *testing.T) {
	var pv PageVersion
	pv.Initialize(false, false, true, false, 0)
	pv.Lock()
	for i := 1; i <= 100; i++ {
		pv.IncrementKeyCount()
		if got := pv.Load().KeyCount(); got != uint16(i) {
			t.Fatalf("after %d increments: got %d", i, got)
		}
	}
	pv.Unlock()
}

func TestPageVersion_InsertionCounterWraps(t *testing.T) {
	var pv PageVersion
	pv.Initialize(false, false, false, true, 0)

	// 6-bit counter: 64 completed inserts wrap back to zero without
	// touching any neighboring field.
	for i := 0; i < 64; i++ {
		pv.Lock()
		pv.SetInserting()
		pv.Unlock()
	}
	v := pv.Load()
	if v.InsertionCounter() != 0 {
		t.Errorf("InsertionCounter after 64 inserts: got %d, want 0 (wrapped)", v.InsertionCounter())
	}
	if v.SplitCounter() != 0 {
		t.Errorf("SplitCounter disturbed by insertion wraparound: got %d", v.SplitCounter())
	}
}

func TestPageVersion_SplitCounterAccumulates(t *testing.T) {
	var pv PageVersion
	pv.Initialize(false, false, false, false, 0)
	for i := 1; i <= 300; i++ {
		pv.Lock()
		pv.SetSplitting()
		pv.Unlock()
		if got := pv.Load().SplitCounter(); got != uint32(i) {
			t.Fatalf("SplitCounter after %d splits: got %d", i, got)
		}
	}
	if got := pv.Load().InsertionCounter(); got != 0 {
		t.Errorf("InsertionCounter after splits: got %d, want 0", got)
	}
}

func TestPageVersion_TryLock(t *testing.T) {
	var pv PageVersion
	if !pv.TryLock() {
		t.Fatal("TryLock on unlocked word failed")
	}
	if pv.TryLock() {
		t.Fatal("TryLock succeeded on an already locked word")
	}
	pv.Unlock()
	if !pv.TryLock() {
		t.Fatal("TryLock after Unlock failed")
	}
	pv.Unlock()
}

func TestPageVersion_LockRace(t *testing.T) {
	var pv PageVersion
	pv.Lock()

	second := make(chan struct{})
	go func() {
		pv.Lock()
		pv.Unlock()
		close(second)
	}()

	// The second locker must observe locked until we release.
	select {
	case <-second:
		t.Fatal("second locker acquired the lock while it was held")
	case <-time.After(20 * time.Millisecond):
	}
	if !pv.Load().Locked() {
		t.Fatal("lock bit not observed while held")
	}

	pv.Unlock()
	select {
	case <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("second locker never acquired the lock after Unlock")
	}
}

func TestPageVersion_StableNeverTransitional(t *testing.T) {
	var pv PageVersion
	pv.Initialize(false, false, true, false, 0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5000; i++ {
			pv.Lock()
			if i%2 == 0 {
				pv.SetInsertingAndIncrementKeyCount()
			} else {
				pv.SetSplitting()
			}
			pv.Unlock()
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		v := pv.Stable()
		if v.Inserting() || v.Splitting() {
			t.Fatalf("Stable returned a transitional word: %s", v)
		}
	}
}

func TestPageVersion_ReaderDetectsSplit(t *testing.T) {
	var pv PageVersion
	pv.Initialize(false, false, true, false, 0)

	w1 := pv.Stable()

	pv.Lock()
	pv.SetSplitting()
	pv.Unlock()

	w2 := pv.Stable()
	if w2.SplitCounter() != w1.SplitCounter()+1 {
		t.Errorf("SplitCounter: got %d, want %d", w2.SplitCounter(), w1.SplitCounter()+1)
	}
	if w1 == w2 {
		t.Error("reader validation would miss the split: statuses equal")
	}
}

func TestPageVersion_ConcurrentLockersSerialize(t *testing.T) {
	const (
		goroutines = 8
		perG       = 500
	)
	var pv PageVersion
	pv.Initialize(false, false, true, false, 0)

	// A plain int mutated only under the page lock: any lost update means
	// two lockers overlapped.
	shared := 0
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				pv.Lock()
				shared++
				pv.SetInserting()
				pv.Unlock()
			}
		}()
	}
	wg.Wait()

	if shared != goroutines*perG {
		t.Errorf("lost updates under page lock: got %d, want %d", shared, goroutines*perG)
	}
	v := pv.Load()
	if v.Locked() || v.Inserting() {
		t.Fatalf("word dirty after all lockers finished: %s", v)
	}
	if got := v.InsertionCounter(); got != uint32(goroutines*perG%64) {
		t.Errorf("InsertionCounter: got %d, want %d", got, goroutines*perG%64)
	}
}

func TestVersionStatus_String(t *testing.T) {
	var pv PageVersion
	pv.Initialize(false, true, true, false, 9)
	s := pv.Load().String()
	if s == "" {
		t.Fatal("empty String()")
	}
}
