package pipeline

import (
	"context"
	"fmt"

	"github.com/corvid-labs/hasp/internal/build"
	"github.com/corvid-labs/hasp/internal/catalog"
	"github.com/corvid-labs/hasp/internal/home"
	"github.com/corvid-labs/hasp/internal/journal"
	"github.com/corvid-labs/hasp/internal/registry"
)

// Resolver queries the registry for the concrete version that satisfies
// the target's requirement, independent of anything already on disk.
type Resolver struct {
	cat    *catalog.Catalog
	home   *home.Home
	events *journal.Logger
	reg    registry.Client
	bld    build.Tool
	target Target
}

// Resolve asks the registry client to pick a concrete version, then
// advances to the Fetcher stage.
func (r *Resolver) Resolve(ctx context.Context) (*Fetcher, error) {
	resolved, err := r.reg.Resolve(ctx, r.target.Name, r.target.Req)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", r.target, err)
	}
	return &Fetcher{
		cat:      r.cat,
		home:     r.home,
		events:   r.events,
		reg:      r.reg,
		bld:      r.bld,
		target:   r.target,
		resolved: resolved,
	}, nil
}
