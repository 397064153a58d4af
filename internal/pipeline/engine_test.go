package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/corvid-labs/hasp/internal/build"
	"github.com/corvid-labs/hasp/internal/catalog"
	"github.com/corvid-labs/hasp/internal/hashid"
	"github.com/corvid-labs/hasp/internal/home"
	"github.com/corvid-labs/hasp/internal/journal"
	"github.com/corvid-labs/hasp/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRegistry always resolves to a fixed version and "fetches" by
// writing a marker file, standing in for the real HTTP+tar client.
type fakeRegistry struct {
	version string
}

func (f fakeRegistry) Resolve(ctx context.Context, name string, req hashid.VersionReq) (registry.Resolved, error) {
	v, err := hashid.NewSemanticVersion(f.version)
	if err != nil {
		return registry.Resolved{}, err
	}
	return registry.Resolved{Version: v, TarballURL: "fake://" + name}, nil
}

func (f fakeRegistry) Fetch(ctx context.Context, r registry.Resolved, destDir string) error {
	return os.WriteFile(filepath.Join(destDir, "source-marker"), []byte("src"), 0o644)
}

// fakeBuildTool lets tests script the build outcome.
type fakeBuildTool struct {
	writeBinary bool
	exitCode    int
	err         error
}

func (f fakeBuildTool) Build(ctx context.Context, srcDir, destDir string) (build.Result, error) {
	if f.err != nil {
		return build.Result{}, f.err
	}
	if f.writeBinary {
		if err := os.MkdirAll(filepath.Join(destDir, "bin"), 0o755); err != nil {
			return build.Result{}, err
		}
		if err := os.WriteFile(filepath.Join(destDir, "bin", "rg"), []byte("binary"), 0o755); err != nil {
			return build.Result{}, err
		}
	}
	return build.Result{ExitCode: f.exitCode}, nil
}

func newTestEngine(t *testing.T, reg registry.Client, bld build.Tool) *Engine {
	t.Helper()
	dir := t.TempDir()

	t.Setenv("HASP_HOME", dir)
	h, err := home.Discover()
	require.NoError(t, err)

	events, err := journal.Open(h.EventsDBPath())
	require.NoError(t, err)
	t.Cleanup(func() { events.Close() })

	cat, err := catalog.Open(h.MainDBPath(), h.PackagesDBPath(), events)
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	return &Engine{
		Catalog:  cat,
		Home:     h,
		Events:   events,
		Registry: func(string) (registry.Client, error) { return reg, nil },
		Build:    func(string) (build.Tool, error) { return bld, nil },
	}
}

func TestEngineInstallSuccessRecordsCatalogAndFiles(t *testing.T) {
	engine := newTestEngine(t, fakeRegistry{version: "13.0.0"}, fakeBuildTool{writeBinary: true, exitCode: 0})
	target := Target{Namespace: "cargo", Name: "ripgrep"}

	outcome, err := engine.Install(context.Background(), target, false)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, outcome.Status)
	require.NotNil(t, outcome.Directory)
	assert.Equal(t, []string{"rg"}, outcome.Directory.Binaries)

	installPath, err := engine.Home.InstallPath("cargo", "ripgrep", outcome.Directory.Hash.String())
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(installPath, "bin", "rg"))
}

func TestEngineInstallAlreadyInstalledSkipsSecondBuild(t *testing.T) {
	bld := &countingBuildTool{fakeBuildTool: fakeBuildTool{writeBinary: true, exitCode: 0}}
	engine := newTestEngine(t, fakeRegistry{version: "13.0.0"}, bld)
	target := Target{Namespace: "cargo", Name: "ripgrep"}

	_, err := engine.Install(context.Background(), target, false)
	require.NoError(t, err)

	outcome, err := engine.Install(context.Background(), target, false)
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyInstalled, outcome.Status)
	assert.Equal(t, 1, bld.calls, "already-installed path must not invoke the build tool again")
}

func TestEngineInstallBuildFailureRollsBack(t *testing.T) {
	engine := newTestEngine(t, fakeRegistry{version: "13.0.0"}, fakeBuildTool{exitCode: 1})
	target := Target{Namespace: "cargo", Name: "ripgrep"}

	outcome, err := engine.Install(context.Background(), target, false)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, outcome.Status)
	require.NotNil(t, outcome.Reason)
	assert.Equal(t, ProcessFailed, outcome.Reason.Kind)

	dirs, err := engine.Catalog.ListInstalled(context.Background(), "cargo", "ripgrep")
	require.NoError(t, err)
	assert.Empty(t, dirs, "a rolled-back install must not appear as installed")
}

func TestEngineInstallAbortedBuildRollsBack(t *testing.T) {
	engine := newTestEngine(t, fakeRegistry{version: "13.0.0"}, fakeBuildTool{err: assertError{}})
	target := Target{Namespace: "cargo", Name: "ripgrep"}

	outcome, err := engine.Install(context.Background(), target, false)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, outcome.Status)
	require.NotNil(t, outcome.Reason)
	assert.Equal(t, Aborted, outcome.Reason.Kind)
}

type countingBuildTool struct {
	fakeBuildTool
	calls int
}

func (c *countingBuildTool) Build(ctx context.Context, srcDir, destDir string) (build.Result, error) {
	c.calls++
	return c.fakeBuildTool.Build(ctx, srcDir, destDir)
}

type assertError struct{}

func (assertError) Error() string { return "build tool could not be started" }
