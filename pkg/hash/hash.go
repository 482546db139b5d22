// Package hash computes the content digests that identify files in a
// manifest. The same algorithm and encoding is used when generating a
// manifest and when checking downloaded files, so a digest computed on the
// publishing side can be compared byte-for-byte with one computed locally.
package hash

import (
	"io"

	digest "github.com/opencontainers/go-digest"
	"github.com/spf13/afero"

	"github.com/modpack-run/modsync/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// chunkSize bounds how much of the input is held in memory while hashing.
const chunkSize = 8 * 1024

// Stream returns the sha256 digest of everything readable from r. The input
// is consumed in fixed-size chunks so that arbitrarily large files never get
// loaded into memory at once.
func Stream(r io.Reader) (digest.Digest, error) {
	digester := digest.SHA256.Digester()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(digester.Hash(), r, buf); err != nil {
		return "", errors.WithContext(err, "read")
	}
	return digester.Digest(), nil
}

// File returns the sha256 digest of the file at the given path.
func File(path string) (digest.Digest, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", errors.WithContext(err, "open")
	}
	defer f.Close()

	return Stream(f)
}

// Parse converts the bare lowercase hex encoding used in manifest documents
// into a digest. It rejects strings that aren't a full sha256 encoding.
func Parse(encoded string) (digest.Digest, error) {
	d := digest.NewDigestFromEncoded(digest.SHA256, encoded)
	if err := d.Validate(); err != nil {
		return "", errors.WithContext(err, "validate digest")
	}
	return d, nil
}
