package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/corvid-labs/hasp/internal/build"
	"github.com/corvid-labs/hasp/internal/catalog"
	"github.com/corvid-labs/hasp/internal/home"
	"github.com/corvid-labs/hasp/internal/journal"
	"github.com/corvid-labs/hasp/internal/registry"
	"github.com/google/uuid"
)

// Fetcher downloads the resolved version's source into a scratch
// directory under the cache, ready for the Installer stage's build step.
type Fetcher struct {
	cat      *catalog.Catalog
	home     *home.Home
	events   *journal.Logger
	reg      registry.Client
	bld      build.Tool
	target   Target
	resolved registry.Resolved
}

// Fetch creates a fresh, UUIDv7-named temp parent under the cache (the
// name is just a collision-free scratch token, not meaningful identity),
// downloads and extracts the source tarball into its fetch/
// subdirectory, then advances to the Installer stage. The temp parent is
// owned by the returned Installer and is removed, with everything the
// rest of the pipeline staged under it, once the Installer stage
// finishes or rolls back.
func (f *Fetcher) Fetch(ctx context.Context) (*Installer, error) {
	token := uuid.Must(uuid.NewV7()).String()
	stagingDir := filepath.Join(f.home.CacheDir, "install-"+token)
	fetchDir, _, _ := stagingLayout(stagingDir)
	if err := os.MkdirAll(fetchDir, 0o755); err != nil {
		return nil, fmt.Errorf("create fetch dir: %w", err)
	}

	if err := f.reg.Fetch(ctx, f.resolved, fetchDir); err != nil {
		os.RemoveAll(stagingDir)
		return nil, fmt.Errorf("fetch %s: %w", f.target, err)
	}

	return &Installer{
		cat:        f.cat,
		home:       f.home,
		events:     f.events,
		bld:        f.bld,
		target:     f.target,
		resolved:   f.resolved,
		stagingDir: stagingDir,
		fetchDir:   fetchDir,
	}, nil
}
