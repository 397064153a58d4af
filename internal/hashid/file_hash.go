package hashid

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"lukechampine.com/blake3"
)

// fileHashAlgoTag is the 2-byte algorithm tag stored ahead of the 32 raw
// hash bytes in the catalog's BLOB column. "01" spells out the algorithm
// slot reserved for blake3; a future algorithm gets its own tag so old
// rows remain distinguishable without a schema migration.
var fileHashAlgoTag = [2]byte{0x30, 0x31} // ASCII "01"

const blake3DigestSize = 32

// FileHash identifies an installed file's content via blake3.
type FileHash struct {
	digest [blake3DigestSize]byte
}

// HashFile streams r through blake3 and returns its FileHash. Reads in
// fixed-size chunks rather than loading the whole file, since installed
// files may be large binaries.
func HashFile(r io.Reader) (FileHash, error) {
	h := blake3.New(blake3DigestSize, nil)
	buf := make([]byte, 64*1024)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return FileHash{}, fmt.Errorf("hash file: %w", err)
	}
	var out FileHash
	copy(out.digest[:], h.Sum(nil))
	return out, nil
}

// String renders the hash as "blake3:<64 lowercase hex characters>".
func (f FileHash) String() string {
	return "blake3:" + hex.EncodeToString(f.digest[:])
}

// ParseFileHash parses the "blake3:<hex>" textual form.
func ParseFileHash(s string) (FileHash, error) {
	const prefix = "blake3:"
	if !strings.HasPrefix(s, prefix) {
		return FileHash{}, fmt.Errorf("file hash: missing %q prefix: %q", prefix, s)
	}
	hexPart := s[len(prefix):]
	if len(hexPart) != blake3DigestSize*2 {
		return FileHash{}, fmt.Errorf("file hash: want %d hex chars, got %d", blake3DigestSize*2, len(hexPart))
	}
	raw, err := hex.DecodeString(hexPart)
	if err != nil {
		return FileHash{}, fmt.Errorf("file hash: invalid hex: %w", err)
	}
	var out FileHash
	copy(out.digest[:], raw)
	return out, nil
}

// Blob renders the on-disk storage form: a 2-byte algorithm tag followed
// by the 32 raw digest bytes.
func (f FileHash) Blob() []byte {
	out := make([]byte, 0, len(fileHashAlgoTag)+blake3DigestSize)
	out = append(out, fileHashAlgoTag[:]...)
	out = append(out, f.digest[:]...)
	return out
}

// ParseFileHashBlob parses the storage form written by Blob.
func ParseFileHashBlob(b []byte) (FileHash, error) {
	if len(b) != len(fileHashAlgoTag)+blake3DigestSize {
		return FileHash{}, fmt.Errorf("file hash blob: want %d bytes, got %d", len(fileHashAlgoTag)+blake3DigestSize, len(b))
	}
	if b[0] != fileHashAlgoTag[0] || b[1] != fileHashAlgoTag[1] {
		return FileHash{}, fmt.Errorf("file hash blob: unknown algorithm tag %x%x", b[0], b[1])
	}
	var out FileHash
	copy(out.digest[:], b[2:])
	return out, nil
}

// MarshalJSON serializes the hash as its textual form.
func (f FileHash) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON parses the hash from its textual form.
func (f *FileHash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseFileHash(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
