package transport

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modpack-run/modsync/pkg/errors"
)

func TestFetchFile(t *testing.T) {
	fs = afero.NewMemMapFs()

	contents := strings.Repeat("modpack bytes ", 10*1024)
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			gotUserAgent = r.Header.Get("User-Agent")
			w.Header().Set("Content-Length", strconv.Itoa(len(contents)))
			_, _ = w.Write([]byte(contents))
		}))
	defer server.Close()

	var calls []int64
	fetcher := NewHTTP(server.Client())
	err := fetcher.FetchFile(server.URL+"/foo.jar", "/target/mods/foo.jar",
		func(done, total int64) {
			assert.Equal(t, int64(len(contents)), total)
			calls = append(calls, done)
		})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gotUserAgent, "modsync/"))

	got, err := afero.ReadFile(fs, "/target/mods/foo.jar")
	require.NoError(t, err)
	assert.Equal(t, contents, string(got))

	// No partial file left behind, and progress never went backwards.
	exists, err := afero.Exists(fs, "/target/mods/foo.jar.partial")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NotEmpty(t, calls)
	for i := 1; i < len(calls); i++ {
		assert.True(t, calls[i] >= calls[i-1])
	}
	assert.Equal(t, int64(len(contents)), calls[len(calls)-1])
}

func TestFetchFileServerError(t *testing.T) {
	fs = afero.NewMemMapFs()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
	defer server.Close()

	fetcher := NewHTTP(server.Client())
	err := fetcher.FetchFile(server.URL+"/foo.jar", "/target/mods/foo.jar", nil)
	require.Error(t, err)

	_, ok := errors.RootCause(err).(errors.NetworkError)
	assert.True(t, ok, "expected NetworkError, got %v", err)

	exists, err := afero.Exists(fs, "/target/mods/foo.jar")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFetchFileTruncatedBody(t *testing.T) {
	fs = afero.NewMemMapFs()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Length", "1000")
			_, _ = w.Write([]byte("only a little"))
		}))
	defer server.Close()

	fetcher := NewHTTP(server.Client())
	err := fetcher.FetchFile(server.URL+"/foo.jar", "/target/mods/foo.jar", nil)
	require.Error(t, err)

	// Neither a live file nor a partial may exist after a failed download.
	for _, path := range []string{"/target/mods/foo.jar", "/target/mods/foo.jar.partial"} {
		exists, err := afero.Exists(fs, path)
		require.NoError(t, err)
		assert.False(t, exists, path)
	}
}

func TestFetchManifest(t *testing.T) {
	doc := `{"modpack": {"name": "pack", "version": "1.0.0", "mods": [
		{"file": "a.jar", "sha256": "` + strings.Repeat("a", 64) + `"}
	]}}`
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(doc))
		}))
	defer server.Close()

	fetcher := NewHTTP(server.Client())
	m, err := fetcher.FetchManifest(server.URL + "/manifest.json")
	require.NoError(t, err)
	assert.Equal(t, "pack", m.Name)
	assert.Equal(t, 1, m.EntryCount())
}

func TestFetchManifestMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>not a manifest</html>"))
		}))
	defer server.Close()

	fetcher := NewHTTP(server.Client())
	_, err := fetcher.FetchManifest(server.URL + "/manifest.json")
	require.Error(t, err)

	_, ok := errors.RootCause(err).(errors.ParseError)
	assert.True(t, ok, "expected ParseError, got %v", err)
}

func TestFetchManifestConnectionRefused(t *testing.T) {
	fetcher := NewHTTP(nil)
	_, err := fetcher.FetchManifest("http://127.0.0.1:1/manifest.json")
	require.Error(t, err)

	_, ok := errors.RootCause(err).(errors.NetworkError)
	assert.True(t, ok, "expected NetworkError, got %v", err)
}
