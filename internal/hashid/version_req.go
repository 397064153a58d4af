package hashid

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// VersionReq is a version requirement as written on the CLI, e.g.
// "1.2.3", "^1.2", or "" (no constraint, meaning "latest"). It is kept as
// the raw string plus a lazily-validated parsed form, mirroring the
// original's OnceCell-memoized parse (Go has no stdlib OnceCell; a plain
// pointer field filled in on first use serves the same purpose without
// needing a mutex, since VersionReq values are not shared across
// goroutines once constructed).
type VersionReq struct {
	raw    string
	parsed *string // canonical semver constraint form, nil if unparsed/unparseable
}

// ParseVersionReq wraps a requirement string without eagerly validating
// it as semver: a Literal-versioned namespace can pass any opaque string
// through unchanged.
func ParseVersionReq(raw string) VersionReq {
	return VersionReq{raw: raw}
}

// String returns the original requirement text.
func (r VersionReq) String() string { return r.raw }

// IsEmpty reports whether no constraint was given (match any version).
func (r VersionReq) IsEmpty() bool { return r.raw == "" }

// AsSemver attempts to interpret the requirement as an exact semantic
// version (only "exact" requirements are supported, matching
// exact_version_req's narrower original scope: hasp does not implement
// general semver range matching, only exact-version or latest).
func (r *VersionReq) AsSemver() (string, bool) {
	if r.parsed != nil {
		return *r.parsed, *r.parsed != ""
	}
	canon := r.raw
	if !strings.HasPrefix(canon, "v") {
		canon = "v" + canon
	}
	if !semver.IsValid(canon) {
		empty := ""
		r.parsed = &empty
		return "", false
	}
	r.parsed = &canon
	return canon, true
}

// Matches reports whether a DirectoryVersion satisfies this requirement.
// An empty requirement matches anything. A Semantic requirement matches
// only the exact same semantic version. A non-semver (Literal-style)
// requirement matches only an identical Literal version string.
func (r *VersionReq) Matches(v DirectoryVersion) bool {
	if r.IsEmpty() {
		return true
	}
	if exact, ok := r.AsSemver(); ok {
		return v.Kind == Semantic && v.Value == exact
	}
	return v.Kind == Literal && v.Value == r.raw
}

// SplitVersionSpec splits a CLI package spec of the form "name@req" into
// its name and requirement, matching the original's '@'-delimited syntax.
// A spec with no '@' has no requirement (installs latest).
func SplitVersionSpec(spec string) (name string, req VersionReq, err error) {
	idx := strings.IndexByte(spec, '@')
	if idx < 0 {
		return spec, VersionReq{}, nil
	}
	if idx == 0 || idx == len(spec)-1 {
		return "", VersionReq{}, fmt.Errorf("invalid package spec %q: name and version must both be non-empty", spec)
	}
	return spec[:idx], ParseVersionReq(spec[idx+1:]), nil
}
