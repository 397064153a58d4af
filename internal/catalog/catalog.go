// Package catalog implements the durable, crash-safe package catalog: two
// SQLite databases (the main db and the packages db) recording every
// Directory hasp has ever matched, the Install row for whichever one of
// each Directory's hashes is currently on disk, and the per-file
// InstalledFile rows produced by the most recent commit.
package catalog

import (
	"database/sql"
	_ "embed"
	"encoding/binary"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// applicationID is written to both databases' application_id pragma so a
// foreign tool opening db.sqlite or packages.sqlite can identify them.
// 0x68617370 spells "hasp" in ASCII, big-endian.
const applicationID = 0x68617370

const busyTimeoutMS = 5000

// Catalog owns the two SQLite handles that make up the package catalog.
// Each handle is capped at one open connection: SQLite allows only one
// writer, and a single connection lets WAL-mode readers and the one
// writer share a process-wide serialization point without contending on
// OS-level file locks for every statement.
type Catalog struct {
	main     *sql.DB // db.sqlite: migration_status
	packages *sql.DB // packages.sqlite: directories, installed, installed_files
}

// eventLogger is the subset of journal.Logger's surface the catalog
// needs, kept local so this package does not import internal/journal.
type eventLogger interface {
	Log(name string, data any)
}

// Open opens (creating if absent) the main database at mainPath and the
// packages database at packagesPath, applies pragmas, and runs any
// outstanding migrations. Open is idempotent and safe to call from
// multiple processes concurrently; the busy_timeout pragma serializes
// concurrent schema initialization instead of failing it. events may be
// nil; if set, a failed migration run is logged to it before the error
// is returned.
func Open(mainPath, packagesPath string, events eventLogger) (*Catalog, error) {
	main, err := openOne(mainPath, false)
	if err != nil {
		return nil, fmt.Errorf("open main catalog: %w", err)
	}
	packages, err := openOne(packagesPath, true)
	if err != nil {
		main.Close()
		return nil, fmt.Errorf("open packages catalog: %w", err)
	}

	c := &Catalog{main: main, packages: packages}
	if err := c.initialize(events); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// openOne opens the SQLite file at path and applies the pragmas common to
// both handles, plus foreign_keys when foreignKeys is set. db.sqlite
// (the main handle) holds only migration_status, a single table with no
// foreign keys, so it is opened with foreignKeys false; packages.sqlite
// holds directories/installed/installed_files, which reference each
// other, so it is opened with foreignKeys true.
func openOne(path string, foreignKeys bool) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := applyPragmas(db, foreignKeys); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func applyPragmas(db *sql.DB, foreignKeys bool) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMS),
	}
	if foreignKeys {
		pragmas = append(pragmas, "PRAGMA foreign_keys = ON")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("exec %q: %w", p, err)
		}
	}
	return nil
}

// initialize writes the application_id header (first open only), applies
// the base schema, and runs migrations against both databases.
func (c *Catalog) initialize(events eventLogger) error {
	if err := initApplicationID(c.main); err != nil {
		return fmt.Errorf("main application_id: %w", err)
	}
	if err := initApplicationID(c.packages); err != nil {
		return fmt.Errorf("packages application_id: %w", err)
	}
	if _, err := c.main.Exec(schemaMainSQL); err != nil {
		return fmt.Errorf("apply main schema: %w", err)
	}
	if _, err := c.packages.Exec(schemaPackagesSQL); err != nil {
		return fmt.Errorf("apply packages schema: %w", err)
	}
	if err := runMigrations(c.main, events); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// initApplicationID sets the application_id pragma if it is still at the
// SQLite default of 0. It is never validated against on re-open; a future
// version may enforce it via readApplicationID.
func initApplicationID(db *sql.DB) error {
	id, err := readApplicationID(db)
	if err != nil {
		return err
	}
	if id != 0 {
		return nil
	}
	_, err = db.Exec(fmt.Sprintf("PRAGMA application_id = %d", int32(applicationID)))
	return err
}

func readApplicationID(db *sql.DB) (uint32, error) {
	var id int64
	if err := db.QueryRow("PRAGMA application_id").Scan(&id); err != nil {
		return 0, fmt.Errorf("read application_id: %w", err)
	}
	return uint32(id), nil
}

// Close closes both underlying database handles.
func (c *Catalog) Close() error {
	var firstErr error
	if c.packages != nil {
		if err := c.packages.Close(); err != nil {
			firstErr = err
		}
	}
	if c.main != nil {
		if err := c.main.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// directoryHashToBlob and directoryHashFromBlob convert an 8-byte
// big-endian blob column to/from the numeric form hashid.DirectoryHash
// carries, without importing hashid; callers pass the numeric value
// directly.
func directoryHashToBlob(numeric uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, numeric)
	return b
}

func directoryHashFromBlob(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("directory hash blob: want 8 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

func warnClose(what string, err error) {
	if err != nil {
		log.Warn().Err(err).Str("resource", what).Msg("close failed")
	}
}
