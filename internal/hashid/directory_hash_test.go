package hashid

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryHashRoundTrip(t *testing.T) {
	h, err := NewDirectoryHash("cargo", "ripgrep", "sem:13.0.0", nil)
	require.NoError(t, err)

	s := h.String()
	assert.Len(t, s, directoryHashWidth)

	parsed, err := ParseDirectoryHash(s)
	require.NoError(t, err)
	assert.Equal(t, h.Uint64(), parsed.Uint64())
}

func TestDirectoryHashDistinguishesFieldBoundaries(t *testing.T) {
	a, err := NewDirectoryHash("ab", "c", "sem:1.0.0", nil)
	require.NoError(t, err)
	b, err := NewDirectoryHash("a", "bc", "sem:1.0.0", nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.Uint64(), b.Uint64(), "length-prefixed framing must prevent field-boundary collisions")
}

func TestDirectoryHashStableAcrossMetadataKeyOrder(t *testing.T) {
	m1 := json.RawMessage(`{"a":1,"b":2}`)
	m2 := json.RawMessage(`{"b":2,"a":1}`)

	h1, err := NewDirectoryHash("cargo", "ripgrep", "sem:13.0.0", m1)
	require.NoError(t, err)
	h2, err := NewDirectoryHash("cargo", "ripgrep", "sem:13.0.0", m2)
	require.NoError(t, err)

	assert.Equal(t, h1.Uint64(), h2.Uint64())
}

func TestDirectoryHashDiffersOnMetadata(t *testing.T) {
	h1, err := NewDirectoryHash("cargo", "ripgrep", "sem:13.0.0", json.RawMessage(`{"default_features":true}`))
	require.NoError(t, err)
	h2, err := NewDirectoryHash("cargo", "ripgrep", "sem:13.0.0", json.RawMessage(`{"default_features":false}`))
	require.NoError(t, err)

	assert.NotEqual(t, h1.Uint64(), h2.Uint64())
}

func TestParseDirectoryHashRejectsWrongLength(t *testing.T) {
	_, err := ParseDirectoryHash("abcd")
	assert.Error(t, err)
}

func TestParseDirectoryHashRejectsUppercase(t *testing.T) {
	_, err := ParseDirectoryHash("ABCDEF0123456789")
	assert.Error(t, err)
}

func TestDirectoryHashJSONRoundTrip(t *testing.T) {
	h, err := NewDirectoryHash("cargo", "ripgrep", "sem:13.0.0", nil)
	require.NoError(t, err)

	data, err := json.Marshal(h)
	require.NoError(t, err)

	var out DirectoryHash
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, h.Uint64(), out.Uint64())
}
