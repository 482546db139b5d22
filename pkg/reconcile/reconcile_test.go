package reconcile

import (
	"path/filepath"
	"strings"
	"testing"

	digest "github.com/opencontainers/go-digest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modpack-run/modsync/pkg/errors"
	"github.com/modpack-run/modsync/pkg/hash"
	"github.com/modpack-run/modsync/pkg/manifest"
	"github.com/modpack-run/modsync/pkg/transport"
)

const root = "/minecraft"

// fakeFetcher serves file contents by locator through the package's mock
// filesystem, standing in for the HTTP transport.
type fakeFetcher struct {
	files       map[string]string // locator -> contents
	unreachable map[string]bool
	calls       int
}

func (f *fakeFetcher) FetchManifest(url string) (manifest.Manifest, error) {
	return manifest.Manifest{}, errors.New("not implemented")
}

func (f *fakeFetcher) FetchFile(locator, dest string, onProgress transport.Progress) error {
	f.calls++
	if f.unreachable[locator] {
		return errors.NetworkError{URL: locator, Cause: errors.New("connection refused")}
	}

	contents, ok := f.files[locator]
	if !ok {
		return errors.NetworkError{URL: locator, Cause: errors.New("not found")}
	}

	if err := fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	if err := afero.WriteFile(fs, dest, []byte(contents), 0644); err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(int64(len(contents)), int64(len(contents)))
	}
	return nil
}

func digestOf(t *testing.T, contents string) digest.Digest {
	d, err := hash.Stream(strings.NewReader(contents))
	require.NoError(t, err)
	return d
}

func modEntry(t *testing.T, name, contents string) manifest.Entry {
	return manifest.Entry{
		Name:   name,
		Path:   name,
		Source: "https://example.com/mods/" + name,
		SHA256: digestOf(t, contents),
	}
}

func modsManifest(entries ...manifest.Entry) manifest.Manifest {
	return manifest.Manifest{
		Name:    "pack",
		Version: "1.0.0",
		Categories: []manifest.Category{
			{Name: manifest.CategoryMods, Entries: entries},
		},
	}
}

func defaultOpts() Options {
	return Options{RemoveStale: true, Policies: DefaultPolicies}
}

func writeLocal(t *testing.T, trackedPath, contents string) {
	require.NoError(t, afero.WriteFile(fs,
		filepath.Join(root, filepath.FromSlash(trackedPath)), []byte(contents), 0644))
}

func readLocal(t *testing.T, trackedPath string) string {
	contents, err := afero.ReadFile(fs, filepath.Join(root, filepath.FromSlash(trackedPath)))
	require.NoError(t, err)
	return string(contents)
}

func kinds(p Plan) map[string]ActionKind {
	m := map[string]ActionKind{}
	for _, a := range p.Actions {
		m[a.TrackedPath()] = a.Kind
	}
	return m
}

func TestPlanFreshTree(t *testing.T) {
	fs = afero.NewMemMapFs()
	m := modsManifest(
		modEntry(t, "a.jar", "contents a"),
		modEntry(t, "b.jar", "contents b"),
	)

	plan, err := PlanSync(m, root, defaultOpts())
	require.NoError(t, err)

	require.Len(t, plan.Actions, 2)
	assert.Equal(t, map[string]ActionKind{
		"mods/a.jar": Fetch,
		"mods/b.jar": Fetch,
	}, kinds(plan))
	assert.Empty(t, plan.SkippedStale)
}

func TestPlanKeepFetchDelete(t *testing.T) {
	fs = afero.NewMemMapFs()
	writeLocal(t, "mods/a.jar", "contents a")
	writeLocal(t, "mods/c.jar", "stale contents")

	m := modsManifest(
		modEntry(t, "a.jar", "contents a"),
		modEntry(t, "b.jar", "contents b"),
	)

	plan, err := PlanSync(m, root, defaultOpts())
	require.NoError(t, err)

	assert.Equal(t, map[string]ActionKind{
		"mods/a.jar": Keep,
		"mods/b.jar": Fetch,
		"mods/c.jar": Delete,
	}, kinds(plan))

	// Deletes are ordered after every fetch.
	assert.Equal(t, Delete, plan.Actions[len(plan.Actions)-1].Kind)
}

func TestPlanOutdatedFile(t *testing.T) {
	fs = afero.NewMemMapFs()
	writeLocal(t, "mods/a.jar", "old contents")

	m := modsManifest(modEntry(t, "a.jar", "new contents"))
	plan, err := PlanSync(m, root, defaultOpts())
	require.NoError(t, err)

	assert.Equal(t, map[string]ActionKind{"mods/a.jar": Fetch}, kinds(plan))
}

func TestPlanCleanupDisabled(t *testing.T) {
	fs = afero.NewMemMapFs()
	writeLocal(t, "mods/c.jar", "stale contents")

	m := modsManifest(modEntry(t, "a.jar", "contents a"))

	opts := defaultOpts()
	opts.RemoveStale = false
	plan, err := PlanSync(m, root, opts)
	require.NoError(t, err)

	assert.Equal(t, map[string]ActionKind{"mods/a.jar": Fetch}, kinds(plan))
	assert.Equal(t, []string{"mods/c.jar"}, plan.SkippedStale)
}

func TestPlanCategoryPruneDisabled(t *testing.T) {
	fs = afero.NewMemMapFs()
	writeLocal(t, "mods/c.jar", "stale contents")

	m := modsManifest(modEntry(t, "a.jar", "contents a"))

	opts := Options{
		RemoveStale: true,
		Policies: map[string]CategoryPolicy{
			manifest.CategoryMods: {Recursive: false, Prune: false},
		},
	}
	plan, err := PlanSync(m, root, opts)
	require.NoError(t, err)

	assert.Equal(t, map[string]ActionKind{"mods/a.jar": Fetch}, kinds(plan))
	assert.Equal(t, []string{"mods/c.jar"}, plan.SkippedStale)
}

func TestPlanEmptyManifest(t *testing.T) {
	fs = afero.NewMemMapFs()
	writeLocal(t, "mods/a.jar", "contents a")

	empty := manifest.Manifest{
		Categories: []manifest.Category{{Name: manifest.CategoryMods}},
	}

	plan, err := PlanSync(empty, root, defaultOpts())
	require.Error(t, err)
	assert.Equal(t, errors.ErrEmptyManifest, errors.RootCause(err))
	assert.Empty(t, plan.Actions)

	// The stale local file survived the degenerate manifest.
	assert.Equal(t, "contents a", readLocal(t, "mods/a.jar"))
}

func TestPlanOneActionPerPath(t *testing.T) {
	fs = afero.NewMemMapFs()
	writeLocal(t, "mods/a.jar", "contents a")
	writeLocal(t, "mods/stale.jar", "stale")
	writeLocal(t, "configs/old.cfg", "old")

	m := manifest.Manifest{
		Categories: []manifest.Category{
			{Name: manifest.CategoryMods, Entries: []manifest.Entry{
				modEntry(t, "a.jar", "contents a"),
				modEntry(t, "b.jar", "contents b"),
			}},
			{Name: manifest.CategoryConfigs, Entries: []manifest.Entry{
				{Name: "x.cfg", Path: "deep/x.cfg", Source: "https://example.com/configs/deep/x.cfg",
					SHA256: digestOf(t, "x")},
			}},
		},
	}

	plan, err := PlanSync(m, root, defaultOpts())
	require.NoError(t, err)

	// Exactly one action per tracked path, Fetch+Keep covering the manifest
	// and Delete covering the rest.
	seen := map[string]bool{}
	for _, a := range plan.Actions {
		assert.False(t, seen[a.TrackedPath()], "duplicate action for %s", a.TrackedPath())
		seen[a.TrackedPath()] = true
	}

	assert.Equal(t, map[string]ActionKind{
		"mods/a.jar":         Keep,
		"mods/b.jar":         Fetch,
		"configs/deep/x.cfg": Fetch,
		"mods/stale.jar":     Delete,
		"configs/old.cfg":    Delete,
	}, kinds(plan))
}
