package hashid

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

const (
	semPrefix = "sem:"
	litPrefix = "lit:"
)

// VersionKind discriminates the two DirectoryVersion forms.
type VersionKind int

const (
	// Semantic versions follow semver and are ordered for matching
	// ("best installed match" in the Matcher stage).
	Semantic VersionKind = iota
	// Literal versions are opaque strings, compared only for equality.
	Literal
)

// DirectoryVersion is a package directory's version, either a parsed
// semantic version or an opaque literal string. Namespaces that have no
// natural version ordering (e.g. a vendored snapshot identified only by
// a commit hash) use Literal.
type DirectoryVersion struct {
	Kind  VersionKind
	Value string // canonical semver form (with leading "v") for Semantic, raw string for Literal
}

// NewSemanticVersion validates and wraps a semver string. The input may
// or may not have a leading "v"; the stored form always does, matching
// golang.org/x/mod/semver's canonical form.
func NewSemanticVersion(v string) (DirectoryVersion, error) {
	canon := v
	if !strings.HasPrefix(canon, "v") {
		canon = "v" + canon
	}
	if !semver.IsValid(canon) {
		return DirectoryVersion{}, fmt.Errorf("invalid semantic version: %q", v)
	}
	return DirectoryVersion{Kind: Semantic, Value: canon}, nil
}

// NewLiteralVersion wraps an opaque version string.
func NewLiteralVersion(v string) DirectoryVersion {
	return DirectoryVersion{Kind: Literal, Value: v}
}

// String renders the "sem:"/"lit:" prefixed textual form stored in the
// catalog's directories.version column.
func (v DirectoryVersion) String() string {
	switch v.Kind {
	case Semantic:
		return semPrefix + strings.TrimPrefix(v.Value, "v")
	default:
		return litPrefix + v.Value
	}
}

// ParseDirectoryVersion parses the "sem:"/"lit:" prefixed textual form.
func ParseDirectoryVersion(s string) (DirectoryVersion, error) {
	switch {
	case strings.HasPrefix(s, semPrefix):
		return NewSemanticVersion(strings.TrimPrefix(s, semPrefix))
	case strings.HasPrefix(s, litPrefix):
		return NewLiteralVersion(strings.TrimPrefix(s, litPrefix)), nil
	default:
		return DirectoryVersion{}, fmt.Errorf("directory version: missing sem:/lit: prefix: %q", s)
	}
}

// Less reports whether v sorts before other. Semantic versions compare
// by semver precedence; a Literal version sorts before every Semantic
// version (and ties with every other Literal), so the Matcher's "best
// installed match" search always prefers a Semantic hit over a Literal
// one when both match a version requirement.
func (v DirectoryVersion) Less(other DirectoryVersion) bool {
	if v.Kind == Semantic && other.Kind == Semantic {
		return semver.Compare(v.Value, other.Value) < 0
	}
	return v.Kind != Semantic && other.Kind == Semantic
}

func (v DirectoryVersion) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v *DirectoryVersion) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDirectoryVersion(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
