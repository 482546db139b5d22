// Package fswatch notifies when files under the watched directories change.
// It's used by the manifest builder's watch mode to regenerate the manifest
// whenever the reference tree is edited.
package fswatch

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/modpack-run/modsync/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// Watch watches the given directory roots recursively. It sends an event on
// the returned channel whenever a file under any of them changes. Events are
// coalesced: a burst of changes produces at least one event, not one each.
func Watch(roots []string) (chan struct{}, error) {
	var paths []string
	for _, root := range roots {
		subpaths, err := collectDirs(root)
		if err != nil {
			return nil, errors.WithContext(err, "get paths")
		}
		paths = append(paths, subpaths...)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	for _, path := range paths {
		if err := watcher.Add(path); err != nil {
			// Close the watcher so that we release the file handles for the
			// previously added paths.
			if err := watcher.Close(); err != nil {
				log.WithError(err).Warn("Failed to close file watcher")
			}
			return nil, errors.WithContext(err, fmt.Sprintf("watch %q", path))
		}
	}
	return combineUpdates(watcher.Events), nil
}

func combineUpdates(updates <-chan fsnotify.Event) chan struct{} {
	combined := make(chan struct{}, 1)
	go func() {
		for range updates {
			select {
			case combined <- struct{}{}:
			default:
			}
		}
	}()
	return combined
}

// collectDirs returns root and all of its subdirectories. fsnotify doesn't
// watch recursively, so every directory has to be added individually.
func collectDirs(root string) (paths []string, err error) {
	fi, err := fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound{Path: root}
		}
		return nil, errors.WithContext(err, "stat")
	}
	if !fi.IsDir() {
		return []string{root}, nil
	}

	err = afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WithContext(err, "walk")
	}
	return paths, nil
}
