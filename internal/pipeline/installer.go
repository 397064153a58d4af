package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/corvid-labs/hasp/internal/build"
	"github.com/corvid-labs/hasp/internal/catalog"
	"github.com/corvid-labs/hasp/internal/hashid"
	"github.com/corvid-labs/hasp/internal/home"
	"github.com/corvid-labs/hasp/internal/journal"
	"github.com/corvid-labs/hasp/internal/lock"
	"github.com/corvid-labs/hasp/internal/registry"
)

// Installer is the pipeline's commit stage: it owns the fetched source
// tree and drives the external build tool, the atomic install-tree swap,
// and the catalog transaction that together make up a commit (spec
// §4.4) or, on failure, a rollback (spec §4.5).
type Installer struct {
	cat        *catalog.Catalog
	home       *home.Home
	events     *journal.Logger
	bld        build.Tool
	target     Target
	resolved   registry.Resolved
	stagingDir string
	fetchDir   string
}

func (i *Installer) versionString() string {
	return i.resolved.Version.String()
}

// Install runs the remainder of the pipeline to completion: computing
// the directory hash, locking the install path, the directory
// lookup-or-insert under that lock, the already-installed check, the
// build, and the commit-or-rollback decision. force, when true,
// reinstalls even if the Directory is already marked installed.
//
// The Directory row is looked up or inserted only after the install
// path's lock is held (spec §4.3's "creates a Directory row under an
// exclusive lock on the yet-to-exist install path"): the hash that
// determines the install path is computed up front from pure inputs
// (namespace, name, version, metadata), so the lock can be acquired
// before anything touches the catalog.
func (i *Installer) Install(ctx context.Context, force bool) (Outcome, error) {
	defer os.RemoveAll(i.stagingDir)

	outcome := Outcome{Target: i.target}

	version := i.versionString()
	metadata := json.RawMessage("{}")
	hash, err := hashid.NewDirectoryHash(i.target.Namespace, i.target.Name, version, metadata)
	if err != nil {
		return outcome, fmt.Errorf("compute directory hash: %w", err)
	}

	installPath, err := i.home.InstallPath(i.target.Namespace, i.target.Name, hash.String())
	if err != nil {
		return outcome, fmt.Errorf("resolve install path: %w", err)
	}

	handle := lock.New(installPath)
	if err := handle.Lock(ctx); err != nil {
		return outcome, fmt.Errorf("lock %s: %w", installPath, err)
	}
	defer handle.Unlock()

	row, err := i.lookupOrInsertDirectory(ctx, version, hash, metadata)
	if err != nil {
		return outcome, err
	}
	if row.Installed && !force {
		outcome.Status = StatusAlreadyInstalled
		outcome.Directory = directoryInfo(row, nil)
		return outcome, nil
	}

	guard := newInstallGuard(i.cat, i.events, i.target, version, installPath, i.stagingDir, row)
	defer guard.rollbackIfUnfinished()

	guard.logStarted()

	res, err := i.bld.Build(ctx, i.fetchDir, guard.newDir)
	if err != nil {
		guard.rollback(FailureReason{Kind: Aborted, Metadata: err.Error()})
		outcome.Status = StatusFailed
		outcome.Reason = guard.reason
		return outcome, nil
	}
	if ctx.Err() != nil {
		guard.rollback(abortedTransactionDropped())
		outcome.Status = StatusFailed
		outcome.Reason = guard.reason
		return outcome, nil
	}
	if res.ExitCode != 0 {
		guard.rollback(FailureReason{Kind: ProcessFailed, Metadata: res.Stderr})
		outcome.Status = StatusFailed
		outcome.Reason = guard.reason
		return outcome, nil
	}

	binaries, err := guard.finish(ctx)
	if err != nil {
		guard.rollback(FailureReason{Kind: Aborted, Metadata: err.Error()})
		outcome.Status = StatusFailed
		outcome.Reason = guard.reason
		return outcome, nil
	}

	outcome.Status = StatusSuccess
	outcome.Directory = directoryInfo(row, binaries)
	return outcome, nil
}

// lookupOrInsertDirectory finds the Directory row for the given
// (namespace, name, hash), or inserts one if this is the first time this
// exact (version, metadata) combination has been seen. Install calls
// this only once it holds the exclusive lock on the install path that
// hash determines, so unlike a bare lookup-then-insert there is no
// cross-process race left to lose: any other hasp process computing the
// same hash would block on the same lock first.
func (i *Installer) lookupOrInsertDirectory(ctx context.Context, version string, hash hashid.DirectoryHash, metadata json.RawMessage) (*catalog.Directory, error) {
	existing, err := i.cat.FindDirectory(ctx, i.target.Namespace, i.target.Name, hash.Uint64())
	if err == nil {
		return existing, nil
	}

	inserted, err := i.cat.InsertDirectory(ctx, catalog.Directory{
		Namespace: i.target.Namespace,
		Name:      i.target.Name,
		Version:   version,
		Hash:      hash.Uint64(),
		Metadata:  metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("insert directory: %w", err)
	}
	return inserted, nil
}

func directoryInfo(d *catalog.Directory, binaries []string) *DirectoryInfo {
	return &DirectoryInfo{
		ID:        d.ID,
		Namespace: d.Namespace,
		Name:      d.Name,
		Version:   d.Version,
		Hash:      hashid.DirectoryHashFromUint64(d.Hash),
		Binaries:  binaries,
	}
}
