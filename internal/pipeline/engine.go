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

// BuildToolFor resolves which build.Tool handles a given namespace. The
// CLI wires this from configuration (internal/config); the pipeline
// itself has no namespace-specific knowledge.
type BuildToolFor func(namespace string) (build.Tool, error)

// RegistryFor resolves which registry.Client serves a given namespace.
type RegistryFor func(namespace string) (registry.Client, error)

// Engine drives a single install attempt end to end: the
// Matcher -> Resolver -> Fetcher -> Installer chain, plus the
// already-installed fast path. It holds no state between calls and is
// safe to reuse across multiple Target installs, though the spec's
// Non-goal on parallel installs of the same directory means callers must
// not run two Install calls for the same Target concurrently.
type Engine struct {
	Catalog  *catalog.Catalog
	Home     *home.Home
	Events   *journal.Logger
	Registry RegistryFor
	Build    BuildToolFor
}

// Install runs one target through the full pipeline. force reinstalls
// even when the catalog already has a matching installed Directory.
func (e *Engine) Install(ctx context.Context, target Target, force bool) (Outcome, error) {
	reg, err := e.Registry(target.Namespace)
	if err != nil {
		return Outcome{Target: target}, fmt.Errorf("no registry for namespace %q: %w", target.Namespace, err)
	}
	bld, err := e.Build(target.Namespace)
	if err != nil {
		return Outcome{Target: target}, fmt.Errorf("no build tool for namespace %q: %w", target.Namespace, err)
	}

	matcher := NewMatcher(e.Catalog, e.Home, e.Events, reg, bld, target)

	if !force {
		if best, err := matcher.BestInstalledMatch(ctx); err != nil {
			return Outcome{Target: target}, err
		} else if best != nil {
			return Outcome{
				Target:    target,
				Status:    StatusAlreadyInstalled,
				Directory: installedDirectoryInfo(best),
			}, nil
		}
	}

	resolver := matcher.MakeResolver()
	fetcher, err := resolver.Resolve(ctx)
	if err != nil {
		return Outcome{Target: target}, err
	}
	installer, err := fetcher.Fetch(ctx)
	if err != nil {
		return Outcome{Target: target}, err
	}
	return installer.Install(ctx, force)
}

func installedDirectoryInfo(d *catalog.Directory) *DirectoryInfo {
	return &DirectoryInfo{
		ID:        d.ID,
		Namespace: d.Namespace,
		Name:      d.Name,
		Version:   d.Version,
		Hash:      hashid.DirectoryHashFromUint64(d.Hash),
	}
}
