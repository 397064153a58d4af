package catalog

import (
	"database/sql"
	"fmt"
	"sort"
	"time"
)

// migration is one named, ordered schema change. Names sort lexically and
// must therefore be chosen to sort in application order (e.g. a date or
// zero-padded sequence prefix).
type migration struct {
	name string
	sql  string
}

// knownMigrations lists every migration this build of hasp knows how to
// apply, in an order that must match lexical sort of their names. New
// migrations are appended here. runMigrations applies every one not yet
// recorded in migration_status, so a brand-new catalog runs all of them
// after the base schema in schema_main.sql and schema_packages.sql.
var knownMigrations = []migration{
	{
		name: "0001_installed_files_is_binary_index",
		sql:  `CREATE INDEX IF NOT EXISTS idx_installed_files_is_binary ON installed_files(install_id, is_binary)`,
	},
}

// runMigrations applies any migration in knownMigrations not yet recorded
// in migration_status, in order, inside a single transaction covering the
// whole run: either every outstanding migration commits together or none
// of them do. The base schema that initialize applies beforehand is not
// part of this transaction. If the highest-recorded
// migration name sorts after the last known migration, the catalog was
// written by a newer hasp version and this build must not touch it.
func runMigrations(db *sql.DB, events eventLogger) error {
	sorted := append([]migration(nil), knownMigrations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })

	applied, latest, err := appliedMigrations(db)
	if err != nil {
		return err
	}

	if latest != "" && !knownMigrationExists(sorted, latest) && isNewerThanAll(latest, sorted) {
		return fmt.Errorf("catalog has applied migration %q, unknown to this build (hint: upgrade hasp)", latest)
	}

	var pending []migration
	for _, m := range sorted {
		if !applied[m.name] {
			pending = append(pending, m)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration run: %w", err)
	}
	defer tx.Rollback()

	var appliedThisRun []string
	for _, m := range pending {
		if err := applyOne(tx, m); err != nil {
			logMigrationRollback(appliedThisRun, err, events)
			return err
		}
		appliedThisRun = append(appliedThisRun, m.name)
	}

	if err := tx.Commit(); err != nil {
		logMigrationRollback(appliedThisRun, err, events)
		return fmt.Errorf("commit migration run: %w", err)
	}
	return nil
}

func appliedMigrations(db *sql.DB) (map[string]bool, string, error) {
	rows, err := db.Query(`SELECT name FROM migration_status WHERE state = 'applied' ORDER BY name`)
	if err != nil {
		return nil, "", fmt.Errorf("query migration_status: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	var latest string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, "", err
		}
		applied[name] = true
		latest = name
	}
	return applied, latest, rows.Err()
}

func knownMigrationExists(known []migration, name string) bool {
	for _, m := range known {
		if m.name == name {
			return true
		}
	}
	return false
}

func isNewerThanAll(name string, known []migration) bool {
	for _, m := range known {
		if name <= m.name {
			return false
		}
	}
	return true
}

func applyOne(tx *sql.Tx, m migration) error {
	if _, err := tx.Exec(m.sql); err != nil {
		return fmt.Errorf("apply migration %s: %w", m.name, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO migration_status (name, state, apply_time) VALUES (?, 'applied', ?)`,
		m.name, time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("record migration %s: %w", m.name, err)
	}
	return nil
}

// logMigrationRollback logs a migration_rollback journal event when a
// migration run fails partway through. It records no state in
// migration_status: the deferred tx.Rollback in runMigrations performs
// the real SQL rollback, so every migration named here (including the
// one that triggered cause) ends this run unapplied, exactly as if the
// run had never started. state in migration_status is always 'applied'
// when present; there is no separate failure state to record.
func logMigrationRollback(appliedThisRun []string, cause error, events eventLogger) {
	if events == nil {
		return
	}
	events.Log("migration_rollback", map[string]any{
		"applied_this_run": appliedThisRun,
		"error":            cause.Error(),
	})
}
