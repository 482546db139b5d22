package errors

import (
	"fmt"
)

// ErrEmptyManifest is returned when a fetched manifest contains no entries.
// An empty manifest is treated as a degenerate document rather than an
// instruction to delete everything, so planning fails before any cleanup is
// considered.
var ErrEmptyManifest = New("manifest contains no entries")

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// DirectoryNotFound represents a configured directory root that doesn't
// exist on disk.
type DirectoryNotFound struct {
	Path string
}

func (err DirectoryNotFound) Error() string {
	return fmt.Sprintf("directory %q does not exist", err.Path)
}

// NetworkError represents a failed network operation, such as a connection
// error or an unexpected HTTP response.
type NetworkError struct {
	URL   string
	Cause error
}

func (err NetworkError) Error() string {
	return fmt.Sprintf("fetch %q: %s", err.URL, err.Cause)
}

// ParseError represents a malformed manifest document.
type ParseError struct {
	Cause error
}

func (err ParseError) Error() string {
	return fmt.Sprintf("malformed manifest: %s", err.Cause)
}

// HashMismatchError represents a downloaded file whose contents don't match
// the digest the manifest promised.
type HashMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (err HashMismatchError) Error() string {
	return fmt.Sprintf("hash mismatch for %q: expected %s, got %s",
		err.Path, err.Expected, err.Actual)
}
