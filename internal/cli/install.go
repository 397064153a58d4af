package cli

import (
	"fmt"
	"strings"
	"sync"

	"github.com/corvid-labs/hasp/internal/hashid"
	"github.com/corvid-labs/hasp/internal/pipeline"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentInstalls bounds how many targets install simultaneously:
// unbounded fan-out would let a long argument list open that many
// concurrent registry fetches and build-tool subprocesses at once.
const maxConcurrentInstalls = 4

// NewInstallCommand builds `hasp install <spec>...`.
func NewInstallCommand(opts *RootOptions) *cobra.Command {
	var keepGoing bool
	var force bool

	cmd := &cobra.Command{
		Use:   "install <spec>...",
		Short: "install one or more packages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, opts, args, keepGoing, force)
		},
	}
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "continue installing remaining packages after a failure")
	cmd.Flags().BoolVar(&force, "force", false, "reinstall even if already installed")
	return cmd
}

func runInstall(cmd *cobra.Command, opts *RootOptions, specs []string, keepGoing, force bool) error {
	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	defer sess.close()

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	targets, err := parseSpecs(specs)
	if err != nil {
		return NewExitError(ExitFailure, err.Error())
	}

	// Each target runs in its own goroutine under an errgroup: resolving,
	// fetching, and building are each independent per target and gain
	// nothing from running one at a time. keepGoing=false relies on the
	// errgroup's shared context: once one goroutine reports failure, the
	// context is canceled and any goroutine still waiting its turn to
	// start (the g.SetLimit semaphore) or checking ctx mid-install sees
	// it and stops early; goroutines already past that point still run
	// to completion.
	results := make([]installResult, len(targets))
	var logMu sync.Mutex
	g, gctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(maxConcurrentInstalls)
	for i, target := range targets {
		g.Go(func() error {
			if !keepGoing && gctx.Err() != nil {
				return nil
			}
			logMu.Lock()
			formatter.VerboseLog("installing %s", target.String())
			logMu.Unlock()
			outcome, err := sess.Engine.Install(gctx, target, force)
			results[i] = installResult{target: target, outcome: outcome, err: err, ran: true}
			if !keepGoing && (err != nil || outcome.Status == pipeline.StatusFailed) {
				return fmt.Errorf("install %s failed", target.String())
			}
			return nil
		})
	}
	_ = g.Wait()

	var outcomes []pipeline.Outcome
	anyFailed := false
	anyAlreadyInstalled := false
	for _, r := range results {
		if !r.ran {
			continue
		}
		if r.err != nil {
			anyFailed = true
			formatter.Error("E_INSTALL", fmt.Sprintf("install %s failed", r.target.String()), r.err.Error())
			continue
		}
		outcomes = append(outcomes, r.outcome)
		switch r.outcome.Status {
		case pipeline.StatusFailed:
			anyFailed = true
			if !keepGoing {
				formatter.Error("E_INSTALL", fmt.Sprintf("install %s failed", r.target.String()), reasonString(r.outcome.Reason))
			}
		case pipeline.StatusAlreadyInstalled:
			anyAlreadyInstalled = true
		}
	}

	if err := formatter.Success(renderOutcomes(outcomes)); err != nil {
		return err
	}

	switch {
	case anyFailed:
		return NewExitError(ExitFailure, "one or more packages failed to install")
	case anyAlreadyInstalled:
		return NewExitError(ExitAlreadyInstalled, "one or more packages were already installed")
	default:
		return nil
	}
}

// installResult carries one target's outcome out of its errgroup
// goroutine. ran is false when keepGoing=false and the group's context
// was already canceled before this target's turn came up, in which case
// outcome and err are zero values and the target is simply omitted from
// the rendered results.
type installResult struct {
	target  pipeline.Target
	outcome pipeline.Outcome
	err     error
	ran     bool
}

func reasonString(r *pipeline.FailureReason) string {
	if r == nil {
		return ""
	}
	return r.Metadata
}

type installSummary struct {
	Target    string   `json:"target"`
	Status    string   `json:"status"`
	Version   string   `json:"version,omitempty"`
	Hash      string   `json:"hash,omitempty"`
	Binaries  []string `json:"binaries,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

func renderOutcomes(outcomes []pipeline.Outcome) []installSummary {
	out := make([]installSummary, 0, len(outcomes))
	for _, o := range outcomes {
		s := installSummary{Target: o.Target.String()}
		switch o.Status {
		case pipeline.StatusSuccess:
			s.Status = "installed"
		case pipeline.StatusAlreadyInstalled:
			s.Status = "already_installed"
		case pipeline.StatusFailed:
			s.Status = "failed"
			s.Reason = reasonString(o.Reason)
		}
		if o.Directory != nil {
			s.Version = o.Directory.Version
			s.Hash = o.Directory.Hash.String()
			s.Binaries = o.Directory.Binaries
		}
		out = append(out, s)
	}
	return out
}

// parseSpecs turns "namespace:name[@req]" CLI arguments into pipeline
// Targets. A spec with no namespace prefix defaults to "cargo", matching
// the reference backend's namespace.
func parseSpecs(specs []string) ([]pipeline.Target, error) {
	targets := make([]pipeline.Target, 0, len(specs))
	for _, spec := range specs {
		namespace := "cargo"
		rest := spec
		if idx := strings.IndexByte(spec, ':'); idx >= 0 {
			namespace = spec[:idx]
			rest = spec[idx+1:]
		}
		name, req, err := hashid.SplitVersionSpec(rest)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, fmt.Errorf("invalid package spec %q: empty name", spec)
		}
		targets = append(targets, pipeline.Target{Namespace: namespace, Name: name, Req: req})
	}
	return targets, nil
}
