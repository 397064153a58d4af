package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/corvid-labs/hasp/internal/catalog"
	"github.com/corvid-labs/hasp/internal/hashid"
	"github.com/corvid-labs/hasp/internal/journal"
)

// installGuard owns the staging directories and commit/rollback
// transition for one install attempt. It is constructed once the target
// Directory row and its install path are known, and exactly one of
// finish or rollback must run before it goes out of scope; the deferred
// rollbackIfUnfinished call in Installer.Install is the guard-on-drop
// substitute Go's lack of destructors requires (spec §9's
// "guard-on-drop rollback" note).
type installGuard struct {
	cat         *catalog.Catalog
	events      *journal.Logger
	target      Target
	version     string
	installPath string
	stagingDir  string
	newDir      string
	oldDir      string
	directory   *catalog.Directory
	finished    bool
	reason      *FailureReason
}

func newInstallGuard(cat *catalog.Catalog, events *journal.Logger, target Target, version, installPath, stagingDir string, directory *catalog.Directory) *installGuard {
	_, newDir, oldDir := stagingLayout(stagingDir)
	return &installGuard{
		cat:         cat,
		events:      events,
		target:      target,
		version:     version,
		installPath: installPath,
		stagingDir:  stagingDir,
		newDir:      newDir,
		oldDir:      oldDir,
		directory:   directory,
	}
}

func (g *installGuard) logStarted() {
	if g.events == nil {
		return
	}
	g.events.Log(journal.EventInstallStarted, journal.InstallStartedData{
		Namespace: g.target.Namespace,
		Name:      g.target.Name,
		Version:   g.version,
	})
}

// finish runs the ten-step commit sequence (spec §4.4): rename the build
// tool's output into place via the old/new swap, open the catalog
// transaction, insert the Install row, hash and record every installed
// file, flip installed=true, and commit. Binary names under bin/ are
// recorded with is_binary=true.
func (g *installGuard) finish(ctx context.Context) ([]string, error) {
	// Steps 1-2: vacate the install path (tolerating first install),
	// then swap the freshly built tree into place. Both renames are
	// within the same filesystem as installPath, since newDir/oldDir
	// live under stagingDir inside home.CacheDir alongside
	// home.InstallsDir, so each is atomic. A crash between them leaves
	// oldDir or newDir behind under stagingDir, but Install's deferred
	// os.RemoveAll(stagingDir) is what ultimately reclaims it, not a
	// later install attempt (spec §9).
	if err := renameNonRacy(g.installPath, g.oldDir); err != nil {
		return nil, fmt.Errorf("vacate install path: %w", err)
	}
	if err := os.Rename(g.newDir, g.installPath); err != nil {
		return nil, fmt.Errorf("swap in new install tree: %w", err)
	}

	// From this point, the install path holds the new tree regardless
	// of whether the catalog transaction below succeeds: a crash here
	// is the "crash-orphaned tree between swap and catalog commit"
	// case spec §9 calls out, silently re-installed on next run.
	tx, err := g.cat.BeginPackagesTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin commit transaction: %w", err)
	}
	defer tx.Rollback()

	installTime := time.Now().Unix()
	installID, err := catalog.InsertInstall(ctx, tx, g.directory.ID, installTime, json.RawMessage("{}"))
	if err != nil {
		return nil, err
	}

	binaries, err := listBinaries(filepath.Join(g.installPath, "bin"))
	if err != nil {
		return nil, err
	}
	binarySet := make(map[string]bool, len(binaries))
	for _, b := range binaries {
		binarySet[b] = true
	}

	err = walkInstalledFiles(g.installPath, func(relPath, absPath string) error {
		hash, err := hashFileAt(absPath)
		if err != nil {
			return fmt.Errorf("hash %s: %w", relPath, err)
		}
		isBinary := binarySet[filepath.Base(relPath)] && filepath.Dir(relPath) == "bin"
		return catalog.InsertInstalledFile(ctx, tx, installID, relPath, hash.Blob(), json.RawMessage("{}"), isBinary)
	})
	if err != nil {
		return nil, err
	}

	if err := g.cat.SetInstalled(ctx, tx, g.directory.ID, true); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit install transaction: %w", err)
	}

	g.finished = true
	if g.events != nil {
		g.events.Log(journal.EventInstallSuccess, journal.InstallSuccessData{
			Namespace: g.target.Namespace,
			Name:      g.target.Name,
			Version:   g.version,
			Binaries:  binaries,
		})
	}
	return binaries, nil
}

func hashFileAt(path string) (hashid.FileHash, error) {
	r, closeFn, err := openBuffered(path)
	if err != nil {
		return hashid.FileHash{}, err
	}
	defer closeFn()
	return hashid.HashFile(r)
}

// rollback marks the guard finished (before doing anything else, so a
// concurrent or re-entrant rollback call never double-runs) and logs
// the failure. It does not touch newDir/oldDir itself: Install's
// deferred os.RemoveAll(stagingDir) is the single place that reclaims
// staging, on every outcome, so rollback only needs to record why. It
// does not touch the install path either: when finish failed after the
// swap, the new tree stays there while the catalog keeps its pre-commit
// state.
func (g *installGuard) rollback(reason FailureReason) {
	if g.finished {
		return
	}
	g.finished = true
	g.reason = &reason

	if g.events != nil {
		g.events.Log(journal.EventInstallFailed, journal.InstallFailedData{
			Namespace: g.target.Namespace,
			Name:      g.target.Name,
			Version:   g.version,
			Reason:    reason.Metadata,
		})
	}
}

// rollbackIfUnfinished is the deferred guard-on-drop substitute: if
// neither finish nor an explicit rollback ran (a panic unwound through
// Install), it rolls back with the static TransactionDropped reason.
func (g *installGuard) rollbackIfUnfinished() {
	if g.finished {
		return
	}
	reason := abortedTransactionDropped()
	g.rollback(reason)
}
