package hashid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHashRoundTrip(t *testing.T) {
	h, err := HashFile(strings.NewReader("hello world"))
	require.NoError(t, err)

	s := h.String()
	assert.True(t, strings.HasPrefix(s, "blake3:"))
	assert.Len(t, s, len("blake3:")+64)

	parsed, err := ParseFileHash(s)
	require.NoError(t, err)
	assert.Equal(t, h.digest, parsed.digest)
}

func TestFileHashBlobRoundTrip(t *testing.T) {
	h, err := HashFile(strings.NewReader("hello world"))
	require.NoError(t, err)

	blob := h.Blob()
	assert.Len(t, blob, 2+32)
	assert.Equal(t, byte(0x30), blob[0])
	assert.Equal(t, byte(0x31), blob[1])

	parsed, err := ParseFileHashBlob(blob)
	require.NoError(t, err)
	assert.Equal(t, h.digest, parsed.digest)
}

func TestFileHashDeterministic(t *testing.T) {
	a, err := HashFile(strings.NewReader("same content"))
	require.NoError(t, err)
	b, err := HashFile(strings.NewReader("same content"))
	require.NoError(t, err)
	assert.Equal(t, a.String(), b.String())
}

func TestFileHashDifferentContent(t *testing.T) {
	a, err := HashFile(strings.NewReader("content a"))
	require.NoError(t, err)
	b, err := HashFile(strings.NewReader("content b"))
	require.NoError(t, err)
	assert.NotEqual(t, a.String(), b.String())
}

func TestParseFileHashRejectsMissingPrefix(t *testing.T) {
	_, err := ParseFileHash(strings.Repeat("a", 64))
	assert.Error(t, err)
}

func TestParseFileHashBlobRejectsUnknownTag(t *testing.T) {
	blob := make([]byte, 34)
	blob[0], blob[1] = 0x39, 0x39
	_, err := ParseFileHashBlob(blob)
	assert.Error(t, err)
}
