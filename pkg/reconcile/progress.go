package reconcile

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/modpack-run/modsync/pkg/transport"
)

// Mocked out for unit testing.
var clock clockwork.Clock = clockwork.NewRealClock()

// progressInterval is the minimum time between forwarded progress callbacks.
// The transport reports once per chunk, which is far more often than any
// front-end wants to repaint.
const progressInterval = 100 * time.Millisecond

// throttled rate-limits a progress callback. The first report and every
// report that completes the download always go through, so a consumer sees
// both 0% and 100%.
func throttled(onProgress transport.Progress) transport.Progress {
	if onProgress == nil {
		return nil
	}

	var started bool
	var last time.Time
	return func(done, total int64) {
		now := clock.Now()
		finished := total != transport.UnknownTotal && done == total
		if started && !finished && now.Sub(last) < progressInterval {
			return
		}

		started = true
		last = now
		onProgress(done, total)
	}
}
