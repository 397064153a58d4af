package registry

import (
	"encoding/json"
	"io"

	"github.com/corvid-labs/hasp/internal/hashid"
)

func decodeIndex(r io.Reader) ([]indexEntry, error) {
	var entries []indexEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// pickBest selects the entry satisfying req with the greatest semantic
// version; if req names an exact Literal, the single matching entry (if
// any) wins. An empty req picks the greatest semantic version overall.
func pickBest(entries []indexEntry, req hashid.VersionReq) (Resolved, bool) {
	var best Resolved
	found := false

	for _, e := range entries {
		v, err := hashid.ParseDirectoryVersion(normalizeVersion(e.Version))
		if err != nil {
			continue
		}
		if !req.Matches(v) {
			continue
		}
		if !found || best.Version.Less(v) {
			best = Resolved{Version: v, TarballURL: e.TarballURL}
			found = true
		}
	}
	return best, found
}

// normalizeVersion assumes a bare index entry version string is semantic
// unless it fails to parse as one, in which case it is treated as
// Literal. The index never writes hasp's own "sem:"/"lit:" tagging.
func normalizeVersion(v string) string {
	if _, err := hashid.NewSemanticVersion(v); err == nil {
		return "sem:" + v
	}
	return "lit:" + v
}
