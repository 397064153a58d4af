// Package lock implements hasp's advisory, cross-process file locking:
// every install path P has a sibling lockfile P.lock (same directory,
// extension replaced) that serializes concurrent hasp processes touching
// the same Directory. The pipeline's Installer takes Exclusive mode
// before it creates or mutates a Directory's catalog row or install tree;
// Shared mode is available through RLock, but the read-only Matcher
// stage takes no lock.
package lock

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// Handle is a lock guard over one install path's lockfile. Go has no
// move-only types, so unlike the original's UnlockedRoot / SharedRoot /
// ExclusiveRoot typestate, locking an already-locked Handle is a runtime
// error rather than a compile error. Unlocking an unlocked Handle is a
// no-op, and a Handle may be locked again after Unlock.
type Handle struct {
	path   string
	fl     *flock.Flock
	locked bool
	shared bool
}

// PathFor returns the lockfile path for an install path: the install
// path with its final extension replaced by ".lock". Install paths have
// no extension in normal operation, so this is almost always
// installPath + ".lock"; filepath.Ext is still applied for parity with
// the original's extension-swap logic.
func PathFor(installPath string) string {
	ext := filepath.Ext(installPath)
	base := strings.TrimSuffix(installPath, ext)
	return base + ".lock"
}

// New constructs a Handle for installPath's lockfile without acquiring
// it. The lockfile's parent directory must already exist.
func New(installPath string) *Handle {
	p := PathFor(installPath)
	return &Handle{path: p, fl: flock.New(p)}
}

// Lock acquires the lockfile in exclusive mode via flock(2), blocking in
// the kernel until it is free. This is not a poll loop: ctx is accepted
// for callers' cancellation plumbing but is otherwise unused, since
// gofrs/flock's blocking Lock has no way to race it against ctx.Done
// short of polling, which the blocking OS call is specifically here to
// avoid.
func (h *Handle) Lock(ctx context.Context) error {
	if h.locked {
		return fmt.Errorf("lock: handle for %s already locked", h.path)
	}
	if err := h.fl.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", h.path, err)
	}
	h.locked = true
	h.shared = false
	return nil
}

// RLock acquires the lockfile in shared mode via flock(2): any number of
// readers may hold it concurrently, but it excludes any exclusive
// holder. Like Lock, this blocks in the kernel rather than polling.
func (h *Handle) RLock(ctx context.Context) error {
	if h.locked {
		return fmt.Errorf("lock: handle for %s already locked", h.path)
	}
	if err := h.fl.RLock(); err != nil {
		return fmt.Errorf("rlock %s: %w", h.path, err)
	}
	h.locked = true
	h.shared = true
	return nil
}

// Unlock releases the lock. Safe to call on an already-unlocked Handle
// (a no-op), so callers can unconditionally defer it.
func (h *Handle) Unlock() error {
	if !h.locked {
		return nil
	}
	h.locked = false
	return h.fl.Unlock()
}

// Shared reports whether the currently-held lock is shared (false once
// unlocked or before locking).
func (h *Handle) Shared() bool { return h.locked && h.shared }
