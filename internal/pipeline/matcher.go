package pipeline

import (
	"context"
	"fmt"

	"github.com/corvid-labs/hasp/internal/build"
	"github.com/corvid-labs/hasp/internal/catalog"
	"github.com/corvid-labs/hasp/internal/hashid"
	"github.com/corvid-labs/hasp/internal/home"
	"github.com/corvid-labs/hasp/internal/journal"
	"github.com/corvid-labs/hasp/internal/registry"
)

// Matcher is the pipeline's entry stage: given a Target, it first checks
// whether an already-installed Directory satisfies the request (the
// AlreadyInstalled fast path, skipping Resolver/Fetcher/Installer
// entirely) before handing off to the Resolver to find a new version.
type Matcher struct {
	cat    *catalog.Catalog
	home   *home.Home
	events *journal.Logger
	reg    registry.Client
	bld    build.Tool
	target Target
}

// NewMatcher constructs the pipeline's starting stage.
func NewMatcher(cat *catalog.Catalog, h *home.Home, events *journal.Logger, reg registry.Client, bld build.Tool, target Target) *Matcher {
	return &Matcher{cat: cat, home: h, events: events, reg: reg, bld: bld, target: target}
}

// BestInstalledMatch returns the best already-installed Directory
// satisfying the target's requirement, if any. A Semantic match prefers
// the highest version (see hashid.DirectoryVersion.Less); ties are
// broken by whichever row the catalog returns first.
func (m *Matcher) BestInstalledMatch(ctx context.Context) (*catalog.Directory, error) {
	candidates, err := m.cat.MatchDirectories(ctx, m.target.Namespace, m.target.Name)
	if err != nil {
		return nil, fmt.Errorf("match installed: %w", err)
	}

	var best *catalog.Directory
	var bestVersion hashid.DirectoryVersion
	for _, d := range candidates {
		if !d.Installed {
			continue
		}
		v, err := hashid.ParseDirectoryVersion(d.Version)
		if err != nil {
			continue
		}
		req := m.target.Req
		if !req.Matches(v) {
			continue
		}
		if best == nil || bestVersion.Less(v) {
			best = d
			bestVersion = v
		}
	}
	return best, nil
}

// MakeResolver advances the pipeline to the Resolver stage. Once called,
// this Matcher should not be used again (methods on later stages own the
// lookup that follows).
func (m *Matcher) MakeResolver() *Resolver {
	return &Resolver{
		cat:    m.cat,
		home:   m.home,
		events: m.events,
		reg:    m.reg,
		bld:    m.bld,
		target: m.target,
	}
}
