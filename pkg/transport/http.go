package transport

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/modpack-run/modsync/pkg/errors"
	"github.com/modpack-run/modsync/pkg/manifest"
	"github.com/modpack-run/modsync/pkg/version"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// copyChunkSize is how much is read between progress callbacks.
const copyChunkSize = 32 * 1024

// partialSuffix marks an in-flight download. A file with this suffix is
// never a live artifact and is safe to delete.
const partialSuffix = ".partial"

type httpFetcher struct {
	client *http.Client
}

// NewHTTP returns a Fetcher backed by the given HTTP client. A nil client
// uses http.DefaultClient.
func NewHTTP(client *http.Client) Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpFetcher{client: client}
}

func (f *httpFetcher) FetchManifest(url string) (manifest.Manifest, error) {
	resp, err := f.get(url)
	if err != nil {
		return manifest.Manifest{}, err
	}
	defer resp.Body.Close()

	contents, err := io.ReadAll(resp.Body)
	if err != nil {
		return manifest.Manifest{}, errors.NetworkError{URL: url, Cause: err}
	}

	return manifest.Parse(contents)
}

func (f *httpFetcher) FetchFile(locator, dest string, onProgress Progress) error {
	resp, err := f.get(locator)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.WithContext(err, "create destination dir")
	}

	partial := dest + partialSuffix
	if err := f.download(resp, partial, onProgress); err != nil {
		if removeErr := fs.Remove(partial); removeErr != nil {
			log.WithError(removeErr).WithField("path", partial).
				Debug("Failed to remove partial download")
		}
		return err
	}

	if err := fs.Rename(partial, dest); err != nil {
		return errors.WithContext(err, "place downloaded file")
	}
	return nil
}

// download streams the response body into path, reporting progress once per
// chunk.
func (f *httpFetcher) download(resp *http.Response, path string, onProgress Progress) error {
	out, err := fs.Create(path)
	if err != nil {
		return errors.WithContext(err, "create temp file")
	}
	defer out.Close()

	total := resp.ContentLength
	if total < 0 {
		total = UnknownTotal
	}

	var done int64
	buf := make([]byte, copyChunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return errors.WithContext(err, "write")
			}
			done += int64(n)
			if onProgress != nil {
				onProgress(done, total)
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return errors.NetworkError{URL: resp.Request.URL.String(), Cause: readErr}
		}
	}

	if total != UnknownTotal && done != total {
		return errors.NetworkError{
			URL:   resp.Request.URL.String(),
			Cause: fmt.Errorf("short body: got %d of %d bytes", done, total),
		}
	}

	if err := out.Sync(); err != nil {
		return errors.WithContext(err, "sync")
	}
	return nil
}

func (f *httpFetcher) get(url string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, errors.NetworkError{URL: url, Cause: err}
	}

	// Stable client identification; some mod hosts refuse the Go default.
	req.Header.Set("User-Agent", "modsync/"+version.Version)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.NetworkError{URL: url, Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.NetworkError{
			URL:   url,
			Cause: fmt.Errorf("server responded with %s", resp.Status),
		}
	}
	return resp, nil
}
