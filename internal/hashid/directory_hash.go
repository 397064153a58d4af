// Package hashid implements the two identifier hashes hasp uses: the
// 64-bit non-cryptographic DirectoryHash that keys the on-disk install
// tree, and the blake3 FileHash that identifies an installed file's
// content. It also carries DirectoryVersion, the sem:/lit: version tag.
package hashid

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// directoryHashWidth is the length in hex characters of a DirectoryHash's
// textual form: 16 lowercase hex digits for a 64-bit value.
const directoryHashWidth = 16

// DirectoryHash identifies a resolved package directory independent of
// whether it is installed. It is not a content hash and is explicitly not
// guaranteed stable across hasp versions (spec §9): changing the byte
// framing below changes every future DirectoryHash, silently orphaning
// existing install trees (which is accepted, not treated as a bug).
type DirectoryHash struct {
	numeric uint64
}

// NewDirectoryHash computes the DirectoryHash for a (namespace, name,
// version, metadata) tuple. Each field is length-prefixed (an 8-byte
// big-endian length followed by the bytes) before being folded into the
// hasher, so that ("ab", "c") and ("a", "bc") never collide. metadata is
// first canonicalized (see canonicalJSON) so that semantically identical
// metadata always hashes the same regardless of key order.
func NewDirectoryHash(namespace, name, version string, metadata json.RawMessage) (DirectoryHash, error) {
	canon, err := canonicalJSON(metadata)
	if err != nil {
		return DirectoryHash{}, fmt.Errorf("directory hash: %w", err)
	}

	h := xxhash.New()
	hashBytes(h, []byte(namespace))
	hashBytes(h, []byte(name))
	hashBytes(h, []byte(version))
	hashBytes(h, canon)
	return DirectoryHash{numeric: h.Sum64()}, nil
}

// hashBytes writes an 8-byte big-endian length prefix followed by b into
// h, giving every field written to the hasher an unambiguous boundary.
func hashBytes(h *xxhash.Digest, b []byte) {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(b)))
	h.Write(lenBuf[:])
	h.Write(b)
}

// DirectoryHashFromUint64 wraps a raw numeric value, used when
// reconstructing a DirectoryHash read back from the catalog's blob column.
func DirectoryHashFromUint64(v uint64) DirectoryHash { return DirectoryHash{numeric: v} }

// Uint64 returns the raw numeric value, for catalog storage as an 8-byte
// big-endian blob.
func (d DirectoryHash) Uint64() uint64 { return d.numeric }

// String renders the hash as 16 lowercase hex characters, big-endian.
func (d DirectoryHash) String() string {
	return fmt.Sprintf("%016x", d.numeric)
}

// ParseDirectoryHash parses the 16-lowercase-hex-character textual form.
func ParseDirectoryHash(s string) (DirectoryHash, error) {
	if len(s) != directoryHashWidth {
		return DirectoryHash{}, fmt.Errorf("directory hash: want %d hex chars, got %d", directoryHashWidth, len(s))
	}
	if strings.ToLower(s) != s {
		return DirectoryHash{}, fmt.Errorf("directory hash: must be lowercase hex: %q", s)
	}
	var numeric uint64
	if _, err := fmt.Sscanf(s, "%016x", &numeric); err != nil {
		return DirectoryHash{}, fmt.Errorf("directory hash: invalid hex %q: %w", s, err)
	}
	return DirectoryHash{numeric: numeric}, nil
}

// MarshalJSON serializes the hash as its textual form.
func (d DirectoryHash) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON parses the hash from its textual form.
func (d *DirectoryHash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDirectoryHash(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
