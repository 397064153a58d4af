package hashid

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalJSONSortsKeys(t *testing.T) {
	a, err := canonicalJSON(json.RawMessage(`{"b":1,"a":2}`))
	require.NoError(t, err)
	b, err := canonicalJSON(json.RawMessage(`{"a":2,"b":1}`))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, `{"a":2,"b":1}`, string(a))
}

func TestCanonicalJSONEmptyInputIsEmptyObject(t *testing.T) {
	out, err := canonicalJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(out))
}

func TestCanonicalJSONRejectsNull(t *testing.T) {
	_, err := canonicalJSON(json.RawMessage(`null`))
	assert.Error(t, err)
}

func TestCanonicalJSONRejectsNonIntegerNumbers(t *testing.T) {
	_, err := canonicalJSON(json.RawMessage(`{"x":1.5}`))
	assert.Error(t, err)
}

func TestCanonicalJSONIntegersRoundTripWithoutDecimal(t *testing.T) {
	out, err := canonicalJSON(json.RawMessage(`{"x":3}`))
	require.NoError(t, err)
	assert.Equal(t, `{"x":3}`, string(out))
}

func TestCanonicalJSONNormalizesUnicodeToNFC(t *testing.T) {
	// "e" + combining acute accent vs precomposed "é" should canonicalize identically.
	decomposed, err := canonicalJSON(json.RawMessage(`{"name":"café"}`))
	require.NoError(t, err)
	precomposed, err := canonicalJSON(json.RawMessage(`{"name":"café"}`))
	require.NoError(t, err)
	assert.Equal(t, precomposed, decomposed)
}

func TestCanonicalJSONArraysPreserveOrder(t *testing.T) {
	out, err := canonicalJSON(json.RawMessage(`{"tags":["b","a"]}`))
	require.NoError(t, err)
	assert.Equal(t, `{"tags":["b","a"]}`, string(out))
}
