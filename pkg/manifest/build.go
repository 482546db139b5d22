package manifest

import (
	"os"
	"path/filepath"
	"strings"

	digest "github.com/opencontainers/go-digest"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/modpack-run/modsync/pkg/errors"
	"github.com/modpack-run/modsync/pkg/hash"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// A CategorySpec describes how one category of the reference set is
// enumerated and published.
type CategorySpec struct {
	// Name is the category name, and also the subdirectory the category's
	// files resolve under on the consuming side.
	Name string `json:"name"`

	// Root is the directory that's scanned when building the manifest.
	Root string `json:"root"`

	// Extensions restricts which files are published, e.g. [".jar"]. An
	// empty list accepts everything.
	Extensions []string `json:"extensions,omitempty"`

	// Recursive controls whether subdirectories of Root are scanned. Mods
	// are traditionally top-level only, while configs keep their directory
	// structure.
	Recursive bool `json:"recursive,omitempty"`

	// Prune marks the category as eligible for stale-file cleanup on the
	// consuming side.
	Prune bool `json:"prune,omitempty"`

	// BaseURL is the URL prefix that entry paths are joined onto to form
	// their download locations.
	BaseURL string `json:"baseURL,omitempty"`
}

// A BuildConfig is the full input to a manifest build.
type BuildConfig struct {
	Name       string         `json:"name"`
	Version    string         `json:"version"`
	Categories []CategorySpec `json:"categories"`
}

// Build scans the configured category roots and produces a manifest listing
// every accepted file with its content digest. A missing category root
// doesn't discard the work done for the other categories: the error is
// returned alongside a manifest flagged Partial so the caller can decide
// whether to publish it.
func Build(cfg BuildConfig) (Manifest, error) {
	m := Manifest{
		Name:    cfg.Name,
		Version: cfg.Version,
	}

	var firstErr error
	seen := map[string]bool{}
	for _, spec := range cfg.Categories {
		entries, err := buildCategory(spec, seen)
		if err != nil {
			if _, ok := errors.RootCause(err).(errors.DirectoryNotFound); ok {
				log.WithError(err).WithField("category", spec.Name).
					Warn("Skipping category with missing root directory")
				m.Partial = true
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			return Manifest{}, errors.WithContext(err, "build category "+spec.Name)
		}

		m.Categories = append(m.Categories, Category{Name: spec.Name, Entries: entries})
	}

	if err := m.validate(); err != nil {
		return Manifest{}, err
	}
	return m, firstErr
}

func buildCategory(spec CategorySpec, seen map[string]bool) ([]Entry, error) {
	fi, err := fs.Stat(spec.Root)
	if err != nil || !fi.IsDir() {
		return nil, errors.DirectoryNotFound{Path: spec.Root}
	}

	var relPaths []string
	if spec.Recursive {
		err = afero.Walk(fs, spec.Root, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() {
				return nil
			}

			relPath, err := filepath.Rel(spec.Root, path)
			if err != nil || strings.HasPrefix(relPath, "..") {
				return errors.WithContext(err, "normalize path")
			}
			relPaths = append(relPaths, filepath.ToSlash(relPath))
			return nil
		})
		if err != nil {
			return nil, errors.WithContext(err, "walk")
		}
	} else {
		infos, err := afero.ReadDir(fs, spec.Root)
		if err != nil {
			return nil, errors.WithContext(err, "read dir")
		}
		for _, fi := range infos {
			if !fi.IsDir() {
				relPaths = append(relPaths, fi.Name())
			}
		}
	}

	var entries []Entry
	for _, relPath := range relPaths {
		if !matchesExtension(relPath, spec.Extensions) {
			continue
		}

		tracked := spec.Name + "/" + relPath
		if seen[tracked] {
			log.WithField("path", tracked).Warn("Skipping duplicate manifest path")
			continue
		}
		seen[tracked] = true

		d, err := hashLocalFile(filepath.Join(spec.Root, filepath.FromSlash(relPath)))
		if err != nil {
			return nil, errors.WithContext(err, "hash "+relPath)
		}

		entry := Entry{
			Name:   filepath.Base(relPath),
			Path:   relPath,
			SHA256: d,
		}
		if spec.BaseURL != "" {
			entry.Source = joinURL(spec.BaseURL, relPath)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// hashLocalFile digests a file through the package's mockable filesystem
// rather than hash.File, which reads the real OS filesystem.
func hashLocalFile(path string) (digest.Digest, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", errors.WithContext(err, "open")
	}
	defer f.Close()

	return hash.Stream(f)
}

func matchesExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}

	ext := filepath.Ext(path)
	for _, allowed := range extensions {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}
