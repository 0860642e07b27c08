package storage

import (
	"errors"
	"unsafe"
)

const (
	// PageSize is the engine-wide frame size. Every page, volatile or
	// snapshot, is exactly this many bytes.
	PageSize = 4096

	// PageDataSize is the payload capacity left after the common header.
	PageDataSize = PageSize - PageHeaderSize
)

var (
	// ErrFrameTooSmall is returned when a buffer is shorter than PageSize.
	ErrFrameTooSmall = errors.New("page frame smaller than page size")

	// ErrFrameMisaligned is returned when a buffer is not 8-byte aligned.
	ErrFrameMisaligned = errors.New("page frame not 8-byte aligned")
)

// Page is a fixed-size frame: the common header followed by an opaque
// payload. It is never allocated through this package; it exists only as a
// reinterpretation of an externally owned memory region obtained via
// PageFrom. The payload layout is owned entirely by the storage type named
// in the header, so this package exposes it as raw bytes.
type Page struct {
	header PageHeader
	data   [PageDataSize]byte
}

var _ [PageSize]byte = [unsafe.Sizeof(Page{})]byte{}

// PageFrom reinterprets the first PageSize bytes of buf as a page. The
// frame must be 8-byte aligned so the version word can be accessed
// atomically. The returned page aliases buf; it is valid as long as the
// underlying region is.
func PageFrom(buf []byte) (*Page, error) {
	if len(buf) < PageSize {
		return nil, ErrFrameTooSmall
	}
	if uintptr(unsafe.Pointer(&buf[0]))%8 != 0 {
		return nil, ErrFrameMisaligned
	}
	return (*Page)(unsafe.Pointer(&buf[0])), nil
}

// Header returns the common header at the front of the frame.
func (p *Page) Header() *PageHeader {
	return &p.header
}

// Payload returns the payload bytes after the header. Access to them must
// follow the version-word convention: hold the lock for any structural
// mutation, validate with stable statuses around optimistic reads.
func (p *Page) Payload() []byte {
	return p.data[:]
}

// Bytes returns the whole frame, header included, as raw bytes. Used when a
// page is copied into a snapshot image.
func (p *Page) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), PageSize)
}
