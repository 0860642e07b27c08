package storage

import (
	"testing"
)

// recordingHook captures what the extension hook observes at init time.
type recordingHook struct {
	called      int
	headerValid bool
	payloadZero bool
	versionZero bool
}

func (h *recordingHook) InitializeMore(p *Page) {
	h.called++
	hdr := p.Header()
	h.headerValid = hdr.PageType() != UnknownPageType && hdr.StorageID() != 0
	h.payloadZero = true
	for _, b := range p.Payload() {
		if b != 0 {
			h.payloadZero = false
			break
		}
	}
	h.versionZero = hdr.Version().Load().Word() == 0
}

func TestVolatilePageInitializer(t *testing.T) {
	buf := alignedFrame(t)
	p, err := PageFrom(buf)
	if err != nil {
		t.Fatalf("PageFrom: %v", err)
	}

	// Dirty the frame to prove Initialize zero-fills it.
	for i := range buf {
		buf[i] = 0xFF
	}

	hook := &recordingHook{}
	init := NewVolatilePageInitializer(9, TreeIntermediatePageType, true, hook)
	ptr := NewVolatilePagePointer(1, 33)
	init.Initialize(p, ptr)

	if hook.called != 1 {
		t.Fatalf("hook called %d times, want 1", hook.called)
	}
	if !hook.headerValid {
		t.Error("hook ran before the header was stamped")
	}
	if !hook.payloadZero {
		t.Error("hook observed a non-zero payload")
	}
	if !hook.versionZero {
		t.Error("hook observed a non-zero version word")
	}

	hdr := p.Header()
	if hdr.VolatilePageID() != ptr {
		t.Errorf("page ID: got %s, want %s", hdr.VolatilePageID(), ptr)
	}
	if hdr.StorageID() != 9 {
		t.Errorf("storage ID: got %d, want 9", hdr.StorageID())
	}
	if hdr.PageType() != TreeIntermediatePageType {
		t.Errorf("page type: got %s, want %s", hdr.PageType(), TreeIntermediatePageType)
	}
	if !hdr.IsRoot() {
		t.Error("root flag lost")
	}
	if hdr.IsSnapshot() {
		t.Error("fresh volatile page marked snapshot")
	}
}

func TestVolatilePageInitializer_NilHook(t *testing.T) {
	buf := alignedFrame(t)
	p, err := PageFrom(buf)
	if err != nil {
		t.Fatalf("PageFrom: %v", err)
	}
	init := NewVolatilePageInitializer(3, ArrayPageType, false, nil)
	init.Initialize(p, NewVolatilePagePointer(0, 1))
	if p.Header().PageType() != ArrayPageType {
		t.Errorf("page type: got %s, want %s", p.Header().PageType(), ArrayPageType)
	}
}

func TestNullPageInitializer(t *testing.T) {
	buf := alignedFrame(t)
	p, err := PageFrom(buf)
	if err != nil {
		t.Fatalf("PageFrom: %v", err)
	}
	NullPageInitializer.Initialize(p, NewVolatilePagePointer(0, 2))
	if p.Header().PageType() != UnknownPageType {
		t.Errorf("page type: got %s, want %s", p.Header().PageType(), UnknownPageType)
	}
	if p.Header().StorageID() != 0 {
		t.Errorf("storage ID: got %d, want 0", p.Header().StorageID())
	}
}
