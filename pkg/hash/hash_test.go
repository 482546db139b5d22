package hash

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloWorldSHA256 = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

func TestStream(t *testing.T) {
	d, err := Stream(strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, helloWorldSHA256, d.Encoded())

	// The empty input has a well-known digest too.
	d, err = Stream(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		d.Encoded())
}

func TestStreamLargeInput(t *testing.T) {
	// Larger than the chunk size, to exercise the buffered copy.
	input := strings.Repeat("a", chunkSize*3+17)
	d, err := Stream(strings.NewReader(input))
	require.NoError(t, err)

	d2, err := Stream(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, d, d2)
}

func TestFile(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/mods/foo.jar", []byte("hello world"), 0644))

	d, err := File("/mods/foo.jar")
	require.NoError(t, err)
	assert.Equal(t, helloWorldSHA256, d.Encoded())

	_, err = File("/mods/missing.jar")
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	d, err := Parse(helloWorldSHA256)
	require.NoError(t, err)
	assert.Equal(t, helloWorldSHA256, d.Encoded())

	_, err = Parse("not-a-digest")
	assert.Error(t, err)

	_, err = Parse(helloWorldSHA256[:32])
	assert.Error(t, err)
}
