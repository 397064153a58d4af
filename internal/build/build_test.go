package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandToolSubstitutesSrcAndDestTokens(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	tool := CommandTool{
		Name: "sh",
		Args: []string{"-c", `echo "$0" > "$1/out.txt"`, "{src}", "{dest}"},
	}
	// The shell receives the substituted paths as $0 and $1 and writes
	// the first into a file under the second.
	res, err := tool.Build(context.Background(), src, dest)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)

	data, err := os.ReadFile(filepath.Join(dest, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, src+"\n", string(data))
}

func TestCommandToolReportsNonZeroExitWithoutGoError(t *testing.T) {
	tool := CommandTool{Name: "sh", Args: []string{"-c", "exit 3"}}
	res, err := tool.Build(context.Background(), t.TempDir(), t.TempDir())
	require.NoError(t, err, "a tool that ran and failed is not a Go error")
	assert.Equal(t, 3, res.ExitCode)
}

func TestCommandToolReturnsErrorWhenToolCannotRun(t *testing.T) {
	tool := CommandTool{Name: filepath.Join(t.TempDir(), "does-not-exist")}
	_, err := tool.Build(context.Background(), t.TempDir(), t.TempDir())
	assert.Error(t, err)
}

func TestCommandToolCapturesStdoutAndStderr(t *testing.T) {
	tool := CommandTool{Name: "sh", Args: []string{"-c", "echo out; echo err >&2"}}
	res, err := tool.Build(context.Background(), t.TempDir(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
}

func TestCommandToolWritesIntoDestDir(t *testing.T) {
	dest := t.TempDir()
	tool := CommandTool{Name: "sh", Args: []string{"-c", "touch {dest}/marker"}}
	_, err := tool.Build(context.Background(), t.TempDir(), dest)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dest, "marker"))
	require.NoError(t, err)
}
