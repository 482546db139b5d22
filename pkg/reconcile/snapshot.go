package reconcile

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	digest "github.com/opencontainers/go-digest"
	"github.com/spf13/afero"

	"github.com/modpack-run/modsync/pkg/errors"
	"github.com/modpack-run/modsync/pkg/hash"
	"github.com/modpack-run/modsync/pkg/manifest"
)

// snapshotLocal enumerates the tracked files that currently exist under
// root: those whose paths lie under one of the manifest's category
// subdirectories. The result maps tracked paths (e.g. "mods/foo.jar") to
// nothing; digests are computed on demand during planning, and never
// persisted across runs.
func snapshotLocal(root string, m manifest.Manifest, opts Options) (map[string]struct{}, error) {
	local := map[string]struct{}{}
	for _, cat := range m.Categories {
		dir := filepath.Join(root, cat.Name)
		fi, err := fs.Stat(dir)
		if err != nil || !fi.IsDir() {
			// Nothing synced for this category yet.
			continue
		}

		if opts.policy(cat.Name).Recursive {
			err = afero.Walk(fs, dir, func(p string, fi os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if fi.IsDir() || isTransient(p) {
					return nil
				}

				relPath, err := filepath.Rel(dir, p)
				if err != nil || strings.HasPrefix(relPath, "..") {
					return errors.WithContext(err, "normalize path")
				}
				local[path.Join(cat.Name, filepath.ToSlash(relPath))] = struct{}{}
				return nil
			})
			if err != nil {
				return nil, errors.WithContext(err, "walk "+dir)
			}
		} else {
			infos, err := afero.ReadDir(fs, dir)
			if err != nil {
				return nil, errors.WithContext(err, "read "+dir)
			}
			for _, fi := range infos {
				if fi.IsDir() || isTransient(fi.Name()) {
					continue
				}
				local[path.Join(cat.Name, fi.Name())] = struct{}{}
			}
		}
	}
	return local, nil
}

// isTransient reports whether a path is a leftover in-flight download rather
// than a tracked file.
func isTransient(p string) bool {
	return strings.HasSuffix(p, ".partial") || strings.HasSuffix(p, downloadSuffix)
}

// localDigest computes the digest of a tracked file under root.
func localDigest(root, trackedPath string) (digest.Digest, error) {
	f, err := fs.Open(filepath.Join(root, filepath.FromSlash(trackedPath)))
	if err != nil {
		return "", errors.WithContext(err, "open")
	}
	defer f.Close()

	return hash.Stream(f)
}
