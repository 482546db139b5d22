package reconcile

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/modpack-run/modsync/pkg/errors"
	"github.com/modpack-run/modsync/pkg/manifest"
)

// PlanSync compares the manifest against the local files under root and
// produces the actions that bring them into correspondence. Every tracked
// path ends up with exactly one action: manifest paths become Keep or Fetch,
// and local paths the manifest doesn't reference become Delete when cleanup
// allows it.
//
// A manifest with no entries fails with ErrEmptyManifest before any Delete
// is planned, regardless of the cleanup policy: a degenerate manifest must
// not be amplified into wiping the local tree.
func PlanSync(m manifest.Manifest, root string, opts Options) (Plan, error) {
	if m.EntryCount() == 0 {
		return Plan{}, errors.ErrEmptyManifest
	}

	local, err := snapshotLocal(root, m, opts)
	if err != nil {
		return Plan{}, errors.WithContext(err, "snapshot local files")
	}

	plan := Plan{Root: root}
	for _, cat := range m.Categories {
		for i := range cat.Entries {
			entry := cat.Entries[i]
			tracked := manifest.TrackedPath(cat.Name, entry)
			action := Action{
				Category: cat.Name,
				Path:     entry.Path,
				Entry:    &entry,
			}

			if _, exists := local[tracked]; !exists {
				action.Kind = Fetch
			} else {
				delete(local, tracked)
				action.Kind = compareLocal(root, tracked, entry)
			}
			plan.Actions = append(plan.Actions, action)
		}
	}

	// Stale paths, in a stable order. Deletes go after every fetch.
	var stale []string
	for tracked := range local {
		stale = append(stale, tracked)
	}
	sort.Strings(stale)

	for _, tracked := range stale {
		category, relPath := splitTracked(tracked)
		if !opts.RemoveStale || !opts.policy(category).Prune {
			plan.SkippedStale = append(plan.SkippedStale, tracked)
			continue
		}

		plan.Actions = append(plan.Actions, Action{
			Kind:     Delete,
			Category: category,
			Path:     relPath,
		})
	}
	return plan, nil
}

// compareLocal decides between Keep and Fetch for a path that exists both
// locally and in the manifest. An unreadable local file is treated as
// outdated rather than failing the plan.
func compareLocal(root, tracked string, entry manifest.Entry) ActionKind {
	d, err := localDigest(root, tracked)
	if err != nil {
		log.WithError(err).WithField("path", tracked).
			Warn("Failed to hash local file; it will be re-downloaded")
		return Fetch
	}

	if d == entry.SHA256 {
		return Keep
	}
	return Fetch
}

func splitTracked(tracked string) (category, relPath string) {
	for i := 0; i < len(tracked); i++ {
		if tracked[i] == '/' {
			return tracked[:i], tracked[i+1:]
		}
	}
	return tracked, ""
}
