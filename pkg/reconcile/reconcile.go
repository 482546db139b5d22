// Package reconcile computes and applies the minimal set of changes that
// brings a local modpack directory into exact correspondence with a
// manifest. A run has two phases: planning, which compares the manifest
// against the actual local files and is fatal on a bad manifest, and
// execution, which attempts every planned action exactly once and downgrades
// individual failures to per-file results.
package reconcile

import (
	"path"

	"github.com/spf13/afero"

	"github.com/modpack-run/modsync/pkg/manifest"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// A CategoryPolicy controls how one category's local subdirectory is
// treated: whether it's scanned recursively, and whether files the manifest
// doesn't reference may be deleted from it.
type CategoryPolicy struct {
	Recursive bool
	Prune     bool
}

// DefaultPolicies mirrors the published pack layout: mods live flat in their
// directory, configs keep their directory structure, and both are cleaned up.
var DefaultPolicies = map[string]CategoryPolicy{
	manifest.CategoryMods:    {Recursive: false, Prune: true},
	manifest.CategoryConfigs: {Recursive: true, Prune: true},
}

// Options configures a planning run.
type Options struct {
	// RemoveStale enables deletion of local files not referenced by the
	// manifest. When disabled, stale files are reported but left alone.
	RemoveStale bool

	// Policies maps category names to their policy. Categories without an
	// entry are scanned recursively and are eligible for pruning.
	Policies map[string]CategoryPolicy
}

func (opts Options) policy(category string) CategoryPolicy {
	if policy, ok := opts.Policies[category]; ok {
		return policy
	}
	return CategoryPolicy{Recursive: true, Prune: true}
}

// ActionKind is what the plan decided to do with one tracked path.
type ActionKind int

const (
	// Keep means the local file already matches the manifest digest.
	Keep ActionKind = iota

	// Fetch means the file is missing or outdated and must be downloaded.
	Fetch

	// Delete means the local file is stale and cleanup is enabled for it.
	Delete
)

func (k ActionKind) String() string {
	switch k {
	case Keep:
		return "keep"
	case Fetch:
		return "fetch"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// An Action is one planned operation on one tracked path.
type Action struct {
	Kind     ActionKind
	Category string

	// Path is relative to the category's subdirectory.
	Path string

	// Entry is the manifest entry backing a Keep or Fetch. Nil for Delete,
	// which by definition concerns a path the manifest doesn't have.
	Entry *manifest.Entry
}

// TrackedPath identifies the action's file relative to the target root.
func (a Action) TrackedPath() string {
	return path.Join(a.Category, a.Path)
}

// A Plan is an ordered sequence of actions. Deletes always come after every
// Keep and Fetch so that cleanup only runs once the manifest's files are in
// place.
type Plan struct {
	// Root is the local directory the plan applies to.
	Root string

	Actions []Action

	// SkippedStale lists tracked paths that would have been deleted if
	// cleanup were enabled for them.
	SkippedStale []string
}

// Counts returns how many actions of each kind the plan contains.
func (p Plan) Counts() (keep, fetch, del int) {
	for _, a := range p.Actions {
		switch a.Kind {
		case Keep:
			keep++
		case Fetch:
			fetch++
		case Delete:
			del++
		}
	}
	return
}

// Outcome is the terminal state of one attempted action.
type Outcome int

const (
	// Success covers a no-op Keep, a verified download, and a completed
	// delete.
	Success Outcome = iota

	// HashMismatch means the download completed but its contents didn't
	// match the manifest digest. The previous local file, if any, is
	// untouched.
	HashMismatch

	// DownloadFailed means the file couldn't be fetched or placed.
	DownloadFailed

	// DeleteFailed means the stale file couldn't be removed.
	DeleteFailed
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case HashMismatch:
		return "hash mismatch"
	case DownloadFailed:
		return "download failed"
	case DeleteFailed:
		return "delete failed"
	default:
		return "unknown"
	}
}

// An ActionResult is the outcome of one attempted action.
type ActionResult struct {
	Action  Action
	Outcome Outcome

	// Err carries the underlying failure for non-Success outcomes.
	Err error
}

// A Result aggregates one execution run. Every attempted action appears in
// Results exactly once.
type Result struct {
	// RunID tags the run's log lines so interleaved output can be attributed.
	RunID string

	Results   []ActionResult
	Succeeded int
	Failed    int

	// Cancelled is set when the run stopped between actions because the
	// caller's context expired. The remaining actions were not attempted.
	Cancelled bool
}
