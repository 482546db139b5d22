package reconcile

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/modpack-run/modsync/pkg/errors"
	"github.com/modpack-run/modsync/pkg/transport"
)

// downloadSuffix marks a verified-pending download next to its final
// destination. The rename from this path to the destination is the only
// write that ever touches a live file.
const downloadSuffix = ".modsync-new"

// Hooks let the presentation layer observe a run. All callbacks run
// synchronously from within Execute; a nil hook is skipped.
type Hooks struct {
	// OnAction fires before an action is attempted.
	OnAction func(Action)

	// OnProgress reports download progress for the in-flight fetch. Calls
	// are throttled so a UI can render them directly.
	OnProgress transport.Progress

	// OnResult fires after each action with its terminal outcome.
	OnResult func(ActionResult)
}

// Execute applies the plan, one action at a time in plan order. Failures are
// recorded per action and never abort the remaining plan; the run is
// terminal once every action has been attempted exactly once. Cancellation
// is checked between actions only.
func Execute(ctx context.Context, plan Plan, fetcher transport.Fetcher, hooks Hooks) Result {
	result := Result{RunID: uuid.New().String()[:8]}
	logger := log.WithField("run", result.RunID)

	for _, action := range plan.Actions {
		if ctx.Err() != nil {
			logger.Warn("Run cancelled; remaining actions were not attempted")
			result.Cancelled = true
			break
		}

		if hooks.OnAction != nil {
			hooks.OnAction(action)
		}

		res := executeAction(plan.Root, action, fetcher, hooks.OnProgress)
		if res.Outcome == Success {
			result.Succeeded++
			logger.WithField("path", action.TrackedPath()).
				Debugf("Action %s succeeded", action.Kind)
		} else {
			result.Failed++
			logger.WithError(res.Err).WithField("path", action.TrackedPath()).
				Warnf("Action %s failed: %s", action.Kind, res.Outcome)
		}

		result.Results = append(result.Results, res)
		if hooks.OnResult != nil {
			hooks.OnResult(res)
		}
	}
	return result
}

func executeAction(root string, a Action, fetcher transport.Fetcher,
	onProgress transport.Progress) ActionResult {

	switch a.Kind {
	case Keep:
		// The local file already matches the manifest. No I/O.
		return ActionResult{Action: a, Outcome: Success}
	case Fetch:
		return executeFetch(root, a, fetcher, onProgress)
	case Delete:
		dest := filepath.Join(root, filepath.FromSlash(a.TrackedPath()))
		if err := fs.Remove(dest); err != nil {
			return ActionResult{Action: a, Outcome: DeleteFailed, Err: err}
		}
		return ActionResult{Action: a, Outcome: Success}
	default:
		return ActionResult{Action: a, Outcome: DownloadFailed,
			Err: errors.New("unknown action kind")}
	}
}

// executeFetch downloads a file next to its destination, verifies the
// digest, and only then moves it into place. A failed or mismatched
// download leaves the previous file at the destination untouched.
func executeFetch(root string, a Action, fetcher transport.Fetcher,
	onProgress transport.Progress) ActionResult {

	dest := filepath.Join(root, filepath.FromSlash(a.TrackedPath()))
	pending := dest + downloadSuffix

	if err := fetcher.FetchFile(a.Entry.Source, pending, throttled(onProgress)); err != nil {
		return ActionResult{Action: a, Outcome: DownloadFailed, Err: err}
	}

	d, err := localDigest(root, a.TrackedPath()+downloadSuffix)
	if err != nil {
		discardPending(pending)
		return ActionResult{Action: a, Outcome: DownloadFailed,
			Err: errors.WithContext(err, "verify download")}
	}

	if d != a.Entry.SHA256 {
		discardPending(pending)
		return ActionResult{Action: a, Outcome: HashMismatch, Err: errors.HashMismatchError{
			Path:     a.TrackedPath(),
			Expected: a.Entry.SHA256.Encoded(),
			Actual:   d.Encoded(),
		}}
	}

	if err := fs.Rename(pending, dest); err != nil {
		discardPending(pending)
		return ActionResult{Action: a, Outcome: DownloadFailed,
			Err: errors.WithContext(err, "place verified file")}
	}
	return ActionResult{Action: a, Outcome: Success}
}

func discardPending(path string) {
	if err := fs.Remove(path); err != nil {
		log.WithError(err).WithField("path", path).
			Debug("Failed to discard pending download")
	}
}
