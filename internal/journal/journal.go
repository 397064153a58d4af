// Package journal implements the event journal: a third, separate
// SQLite database recording the lifecycle events its callers log
// (install started, succeeded, failed; migration rolled back) on a
// best-effort basis. EventMigrationApplied is defined but no caller
// logs it. The journal is never read back by hasp itself;
// it exists purely for post-hoc diagnosis, so a write failure here must
// never fail or block the operation that triggered it.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// Event is one row of the journal table.
type Event struct {
	Name string
	Time time.Time
	Data json.RawMessage
}

const journalSchema = `
CREATE TABLE IF NOT EXISTS journal (
	event_id    INTEGER PRIMARY KEY AUTOINCREMENT,
	event_name  TEXT NOT NULL,
	event_time  INTEGER NOT NULL,
	data        TEXT NOT NULL
);
`

// Logger owns the background writer goroutine that drains queued events
// into the journal database. The zero value is not usable; construct
// with Open.
type Logger struct {
	db     *sql.DB
	events chan namedEvent
	done   chan struct{}
}

type namedEvent struct {
	name string
	data json.RawMessage
}

// Open creates or opens the events database at path and starts the
// single dedicated writer goroutine. The returned Logger must be closed
// with Close to let the writer goroutine drain and exit cleanly.
func Open(path string) (*Logger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal pragma: %w", err)
	}
	if _, err := db.Exec(journalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	l := &Logger{
		db:     db,
		events: make(chan namedEvent, 4096), // unbounded in spirit: generously buffered, enqueue never blocks in practice
		done:   make(chan struct{}),
	}
	go l.run()
	return l, nil
}

// Log enqueues an event for the background writer. It never blocks the
// caller on a full channel or a database error: on either, the event is
// silently discarded, matching the original's best-effort semantics
// (data is JSON-serialized here; serialization failure is also
// discarded rather than propagated).
func (l *Logger) Log(name string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Warn().Err(err).Str("event", name).Msg("journal: failed to serialize event data, dropping")
		return
	}
	select {
	case l.events <- namedEvent{name: name, data: raw}:
	default:
		log.Warn().Str("event", name).Msg("journal: writer backlog full, dropping event")
	}
}

// run is the single dedicated background writer: it drains the events
// channel until it is closed (via Close), inserting each event on a
// best-effort basis. A per-event insert failure is logged and does not
// stop the loop.
func (l *Logger) run() {
	defer close(l.done)
	for ev := range l.events {
		_, err := l.db.Exec(
			`INSERT INTO journal (event_name, event_time, data) VALUES (?, ?, ?)`,
			ev.name, time.Now().Unix(), string(ev.data),
		)
		if err != nil {
			log.Warn().Err(err).Str("event", ev.name).Msg("journal: insert failed, dropping event")
		}
	}
}

// Close stops accepting new events, waits for the writer goroutine to
// drain the channel, and closes the underlying database handle.
func (l *Logger) Close() error {
	close(l.events)
	<-l.done
	return l.db.Close()
}
