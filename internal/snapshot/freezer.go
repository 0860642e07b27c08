// Package snapshot freezes volatile pages into immutable durable page
// images. A frozen image carries a payload checksum and a quiescent version
// word; transient lock and progress bits never leak into it.
package snapshot

import (
	"errors"
	"fmt"
	"hash/crc32"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kartikbazzad/pagestore/internal/logger"
	"github.com/kartikbazzad/pagestore/internal/metrics"
	"github.com/kartikbazzad/pagestore/internal/storage"
)

var (
	// ErrPageBusy is returned when the source page is locked or
	// mid-modification. Snapshotting only runs on quiescent pages; the
	// caller picked the wrong moment.
	ErrPageBusy = errors.New("page busy: cannot freeze a page under modification")

	// ErrChecksumMismatch is returned when an image fails verification.
	ErrChecksumMismatch = errors.New("snapshot image checksum mismatch")

	// ErrNullSnapshotPointer is returned for a zero snapshot pointer.
	ErrNullSnapshotPointer = errors.New("snapshot pointer must not be null")
)

// Freezer produces snapshot page images from volatile pages and caches the
// most recently produced images by snapshot pointer.
type Freezer struct {
	cache   *lru.Cache[storage.SnapshotPagePointer, []byte]
	log     *logger.Logger
	metrics *metrics.Collector
}

// NewFreezer creates a freezer with an image cache of cacheSize entries.
// The metrics collector may be nil.
func NewFreezer(cacheSize int, log *logger.Logger, m *metrics.Collector) (*Freezer, error) {
	if log == nil {
		log = logger.Default()
	}
	cache, err := lru.New[storage.SnapshotPagePointer, []byte](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("snapshot cache: %w", err)
	}
	return &Freezer{cache: cache, log: log, metrics: m}, nil
}

// Freeze copies src into a new snapshot image identified by id, re-stamps
// the header for the snapshot representation, and writes the payload
// checksum. src must be quiescent: not locked, not mid-insert, not
// mid-split. The returned image is owned by the caller (and cached).
func (f *Freezer) Freeze(src *storage.Page, id storage.SnapshotPagePointer) ([]byte, error) {
	if id.IsNull() {
		return nil, ErrNullSnapshotPointer
	}
	v := src.Header().Version().Load()
	if v.Locked() || v.Inserting() || v.Splitting() {
		return nil, fmt.Errorf("%w: %s", ErrPageBusy, v)
	}

	img := make([]byte, storage.PageSize)
	copy(img, src.Bytes())

	page, err := storage.PageFrom(img)
	if err != nil {
		return nil, fmt.Errorf("snapshot image: %w", err)
	}
	hdr := page.Header()
	hdr.InitSnapshot(id, src.Header().StorageID(), src.Header().PageType(), src.Header().IsRoot())
	hdr.SetChecksum(storage.Checksum(crc32.ChecksumIEEE(page.Payload())))
	checkImageQuiescent(page)

	f.cache.Add(id, img)
	if f.metrics != nil {
		f.metrics.RecordPageFrozen()
	}
	f.log.Debug("froze page: storage=%d type=%s id=%s checksum=%08x",
		hdr.StorageID(), hdr.PageType(), id, uint32(hdr.Checksum()))
	return img, nil
}

// Lookup returns the cached image for id, if still cached.
func (f *Freezer) Lookup(id storage.SnapshotPagePointer) ([]byte, bool) {
	return f.cache.Get(id)
}

// Verify recomputes an image's payload checksum and checks it against the
// header, detecting corrupt images before they are trusted.
func (f *Freezer) Verify(img []byte) error {
	page, err := storage.PageFrom(img)
	if err != nil {
		return err
	}
	hdr := page.Header()
	got := storage.Checksum(crc32.ChecksumIEEE(page.Payload()))
	if got != hdr.Checksum() {
		return fmt.Errorf("%w: stored %08x, computed %08x",
			ErrChecksumMismatch, uint32(hdr.Checksum()), uint32(got))
	}
	return nil
}
