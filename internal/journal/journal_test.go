package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogWritesEventAndClosesCleanly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.sqlite")
	l, err := Open(path)
	require.NoError(t, err)

	l.Log(EventInstallStarted, InstallStartedData{Namespace: "cargo", Name: "ripgrep", Version: "sem:13.0.0"})
	require.NoError(t, l.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM journal WHERE event_name = ?`, EventInstallStarted).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestLogDoesNotBlockOnFullBacklog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.sqlite")
	l, err := Open(path)
	require.NoError(t, err)
	defer l.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			l.Log(EventInstallStarted, InstallStartedData{Namespace: "cargo", Name: "pkg"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Log blocked instead of dropping on a full backlog")
	}
}

func TestCloseIsSafeWithNoEventsLogged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.sqlite")
	l, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, l.Close())
}
