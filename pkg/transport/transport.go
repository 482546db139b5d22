// Package transport performs the network I/O of a sync run: fetching the
// manifest document, and fetching individual files. Nothing else in the
// system touches the network.
package transport

import (
	"github.com/modpack-run/modsync/pkg/manifest"
)

// UnknownTotal is passed to a Progress callback when the server didn't
// report a content length.
const UnknownTotal = int64(-1)

// Progress reports how many bytes of a fetch have completed. bytesDone is
// monotonically non-decreasing within one fetch. The callback runs
// synchronously from inside the fetch, so the caller stays in control of the
// event loop.
type Progress func(bytesDone, totalBytes int64)

// A Fetcher retrieves manifests and file contents. The reconciliation engine
// depends on this interface rather than on HTTP so that runs can be tested
// without a network.
type Fetcher interface {
	// FetchManifest downloads and parses the manifest document at url.
	FetchManifest(url string) (manifest.Manifest, error)

	// FetchFile downloads the file at locator into dest. The destination
	// only ever observes a complete file: bytes stream into a temporary
	// sibling first, which is atomically renamed over dest once fully
	// received. onProgress may be nil.
	FetchFile(locator, dest string, onProgress Progress) error
}
