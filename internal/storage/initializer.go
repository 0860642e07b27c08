package storage

// PageInitializer materializes a page when a frame is first handed to a
// storage type. Implementations are stateless per page type and safe to
// share across every page of that type.
type PageInitializer interface {
	// Initialize prepares the frame as a brand-new page with the given ID.
	// Called exactly once per page, before the page is visible to any
	// other goroutine.
	Initialize(p *Page, pageID VolatilePagePointer)
}

// PageInitHook is the type-specific extension point of
// VolatilePageInitializer. The hook runs on a zero-filled frame whose
// header is fully valid; it must leave the version word exactly as the
// header left it (unlocked, zero counters) unless the page type documents a
// reason to start pre-locked.
type PageInitHook interface {
	InitializeMore(p *Page)
}

// VolatilePageInitializer initializes volatile pages of one storage and
// page type: it zero-fills the frame, stamps the header, then runs the
// type-specific hook.
type VolatilePageInitializer struct {
	storageID StorageID
	pageType  PageType
	root      bool
	more      PageInitHook
}

// NewVolatilePageInitializer returns an initializer for pages of the given
// identity. more may be nil for page types with no extra setup.
func NewVolatilePageInitializer(storageID StorageID, pageType PageType, root bool, more PageInitHook) *VolatilePageInitializer {
	return &VolatilePageInitializer{
		storageID: storageID,
		pageType:  pageType,
		root:      root,
		more:      more,
	}
}

// Initialize implements PageInitializer.
func (vi *VolatilePageInitializer) Initialize(p *Page, pageID VolatilePagePointer) {
	*p = Page{}
	p.header.InitVolatile(pageID, vi.storageID, vi.pageType, vi.root)
	if vi.more != nil {
		vi.more.InitializeMore(p)
	}
}

// NullPageInitializer is for callers that treat a page miss as data absence
// rather than implicit creation: it satisfies the interface but is never
// expected to run. If it does run, it produces an anonymous unknown-type
// page.
var NullPageInitializer PageInitializer = NewVolatilePageInitializer(0, UnknownPageType, true, nil)
