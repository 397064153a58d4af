// Package pipeline implements the install-transaction engine: the
// Matcher -> Resolver -> Fetcher -> Installer -> Committer state machine
// that takes a requested (namespace, name, version requirement) and
// either lands a new Directory on disk and in the catalog, reports it
// was already installed, or rolls back cleanly.
package pipeline

import (
	"fmt"

	"github.com/corvid-labs/hasp/internal/hashid"
)

// Target is what the caller asks to install: a namespace-qualified
// package name and an optional version requirement.
type Target struct {
	Namespace string
	Name      string
	Req       hashid.VersionReq
}

func (t Target) String() string {
	if t.Req.IsEmpty() {
		return fmt.Sprintf("%s:%s", t.Namespace, t.Name)
	}
	return fmt.Sprintf("%s:%s@%s", t.Namespace, t.Name, t.Req.String())
}

// Status classifies a completed install attempt, driving the CLI's exit
// code per spec §6.
type Status int

const (
	StatusSuccess Status = iota
	StatusAlreadyInstalled
	StatusFailed
)

// FailureKind discriminates why an install attempt failed.
type FailureKind int

const (
	// ProcessFailed means the external build tool ran and reported
	// failure (a non-zero exit).
	ProcessFailed FailureKind = iota
	// Aborted means the build tool could not be run, the commit step
	// failed, or the attempt was interrupted before finishing
	// (cancellation, panic, signal).
	Aborted
)

// FailureReason is the discriminated-union failure payload, mirroring
// the original's ProcessFailed{metadata}/Aborted{metadata} enum.
type FailureReason struct {
	Kind     FailureKind
	Metadata string
}

// TransactionDropped is the static reason used when a guard's deferred
// rollback runs without an explicit reason having been set first (the
// pipeline goroutine panicked before reaching a normal finish or an
// explicit rollback call), and when the install's context is canceled
// while the build runs.
const TransactionDropped = "transaction dropped, likely due to a panic or cancellation"

func abortedTransactionDropped() FailureReason {
	return FailureReason{Kind: Aborted, Metadata: TransactionDropped}
}

// Outcome is the result of one install attempt.
type Outcome struct {
	Target    Target
	Status    Status
	Directory *DirectoryInfo // set on Success and AlreadyInstalled
	Reason    *FailureReason // set on Failed
}

// DirectoryInfo is the minimal catalog.Directory projection the pipeline
// hands back to callers, avoiding a dependency from callers on the full
// catalog.Directory row shape.
type DirectoryInfo struct {
	ID        int64
	Namespace string
	Name      string
	Version   string
	Hash      hashid.DirectoryHash
	Binaries  []string
}
