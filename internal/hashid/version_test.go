package hashid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemanticVersionRoundTrip(t *testing.T) {
	v, err := NewSemanticVersion("13.0.0")
	require.NoError(t, err)
	assert.Equal(t, "sem:13.0.0", v.String())

	parsed, err := ParseDirectoryVersion("sem:13.0.0")
	require.NoError(t, err)
	assert.Equal(t, v, parsed)
}

func TestLiteralVersionRoundTrip(t *testing.T) {
	v := NewLiteralVersion("deadbeef")
	assert.Equal(t, "lit:deadbeef", v.String())

	parsed, err := ParseDirectoryVersion("lit:deadbeef")
	require.NoError(t, err)
	assert.Equal(t, v, parsed)
}

func TestParseDirectoryVersionRejectsMissingPrefix(t *testing.T) {
	_, err := ParseDirectoryVersion("13.0.0")
	assert.Error(t, err)
}

func TestDirectoryVersionLess(t *testing.T) {
	v1, err := NewSemanticVersion("1.0.0")
	require.NoError(t, err)
	v2, err := NewSemanticVersion("2.0.0")
	require.NoError(t, err)

	assert.True(t, v1.Less(v2))
	assert.False(t, v2.Less(v1))
}

func TestDirectoryVersionLessPrefersSemanticOverLiteral(t *testing.T) {
	sem, err := NewSemanticVersion("1.0.0")
	require.NoError(t, err)
	lit := NewLiteralVersion("snapshot")

	assert.True(t, lit.Less(sem))
	assert.False(t, sem.Less(lit))
}

func TestVersionReqMatchesExact(t *testing.T) {
	req := ParseVersionReq("13.0.0")
	v, err := NewSemanticVersion("13.0.0")
	require.NoError(t, err)
	assert.True(t, req.Matches(v))

	other, err := NewSemanticVersion("13.0.1")
	require.NoError(t, err)
	assert.False(t, req.Matches(other))
}

func TestVersionReqEmptyMatchesAnything(t *testing.T) {
	req := ParseVersionReq("")
	v, err := NewSemanticVersion("1.2.3")
	require.NoError(t, err)
	assert.True(t, req.Matches(v))
}

func TestSplitVersionSpec(t *testing.T) {
	name, req, err := SplitVersionSpec("ripgrep@13.0.0")
	require.NoError(t, err)
	assert.Equal(t, "ripgrep", name)
	assert.Equal(t, "13.0.0", req.String())

	name, req, err = SplitVersionSpec("ripgrep")
	require.NoError(t, err)
	assert.Equal(t, "ripgrep", name)
	assert.True(t, req.IsEmpty())
}

func TestSplitVersionSpecRejectsEmptyParts(t *testing.T) {
	_, _, err := SplitVersionSpec("@1.0.0")
	assert.Error(t, err)

	_, _, err = SplitVersionSpec("ripgrep@")
	assert.Error(t, err)
}
