// Package manifest defines the content listing that describes the desired
// state of a local modpack directory, along with the codec for the manifest
// document and the builder that generates a manifest from a reference
// directory tree.
package manifest

import (
	"path"
	"strings"

	goversion "github.com/hashicorp/go-version"
	digest "github.com/opencontainers/go-digest"

	"github.com/modpack-run/modsync/pkg/errors"
)

// The category names understood by the manifest document schema. The local
// subdirectory a file is synced to is the name of its category.
const (
	CategoryMods    = "mods"
	CategoryConfigs = "configs"
)

// An Entry identifies one file in the reference set.
type Entry struct {
	// Name is the display name of the file, used in logs and reports.
	Name string

	// Path is the file's location relative to its category's subdirectory
	// under the target root. Unique within a category.
	Path string

	// Source is the absolute URL the file's bytes are fetched from. It may be
	// empty after parsing a document that doesn't carry URLs, in which case
	// ResolveSources fills it in from the configured base URLs.
	Source string

	// SHA256 is the expected content digest. It is the sole authority for
	// whether a local copy of the file is current.
	SHA256 digest.Digest
}

// A Category is an ordered set of entries that resolve under the same local
// subdirectory.
type Category struct {
	Name    string
	Entries []Entry
}

// A Manifest is the in-memory representation of the reference set. It is
// constructed fresh on each build or fetch and never partially updated; a new
// fetch replaces the whole model.
type Manifest struct {
	Name       string
	Version    string
	Categories []Category

	// Partial is set when the builder couldn't enumerate every configured
	// category. A partial manifest is still valid for the categories it
	// covers, but publishing one should be a deliberate choice.
	Partial bool
}

// EntryCount returns the total number of entries across all categories.
func (m Manifest) EntryCount() int {
	count := 0
	for _, cat := range m.Categories {
		count += len(cat.Entries)
	}
	return count
}

// Category returns the category with the given name.
func (m Manifest) Category(name string) (Category, bool) {
	for _, cat := range m.Categories {
		if cat.Name == name {
			return cat, true
		}
	}
	return Category{}, false
}

// TrackedPath returns the path that identifies an entry across the whole
// manifest, e.g. "mods/foo.jar". It is also the entry's location relative to
// the target root.
func TrackedPath(category string, e Entry) string {
	return path.Join(category, e.Path)
}

// ResolveSources fills in the source URL of every entry that doesn't have
// one, by joining the entry's path onto its category's base URL. It fails if
// an entry has no source and no base URL is configured for its category.
func (m *Manifest) ResolveSources(baseURLs map[string]string) error {
	for ci := range m.Categories {
		cat := &m.Categories[ci]
		for ei := range cat.Entries {
			if cat.Entries[ei].Source != "" {
				continue
			}

			base, ok := baseURLs[cat.Name]
			if !ok || base == "" {
				return errors.New("no base URL configured for category " + cat.Name)
			}
			cat.Entries[ei].Source = joinURL(base, cat.Entries[ei].Path)
		}
	}
	return nil
}

func joinURL(base, relPath string) string {
	return strings.TrimSuffix(base, "/") + "/" + relPath
}

// validate checks the manifest's structural invariants: category names must
// be known to the document schema, and tracked paths must be unique across
// the whole manifest.
func (m Manifest) validate() error {
	seen := map[string]bool{}
	for _, cat := range m.Categories {
		if cat.Name != CategoryMods && cat.Name != CategoryConfigs {
			return errors.New("unknown category " + cat.Name)
		}

		for _, e := range cat.Entries {
			if e.Path == "" {
				return errors.MissingFieldError{Field: "path"}
			}

			tracked := TrackedPath(cat.Name, e)
			if seen[tracked] {
				return errors.New("duplicate manifest path " + tracked)
			}
			seen[tracked] = true
		}
	}
	return nil
}

// CompareVersions compares two modpack version strings. It returns a
// negative number if a is older than b, in the same way as strings.Compare.
func CompareVersions(a, b string) (int, error) {
	versionA, err := goversion.NewVersion(a)
	if err != nil {
		return 0, errors.WithContext(err, "parse version")
	}

	versionB, err := goversion.NewVersion(b)
	if err != nil {
		return 0, errors.WithContext(err, "parse version")
	}
	return versionA.Compare(versionB), nil
}
