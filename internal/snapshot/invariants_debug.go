//go:build debug

package snapshot

import (
	"fmt"

	"github.com/kartikbazzad/pagestore/internal/storage"
)

// checkImageQuiescent verifies a freshly built snapshot image carries a
// fully zero version word: no transient bit may ever reach a durable image.
func checkImageQuiescent(p *storage.Page) {
	if w := p.Header().Version().Load().Word(); w != 0 {
		panic(fmt.Sprintf("pagestore invariant: snapshot image with live version word %016x", w))
	}
	if !p.Header().IsSnapshot() {
		panic("pagestore invariant: snapshot image without snapshot flag")
	}
}
