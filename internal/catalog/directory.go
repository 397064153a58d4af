package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Directory is one row of the packages.directories table: a unique
// (namespace, name, hash) triple identifying a specific resolved package
// directory, independent of whether it is currently installed.
type Directory struct {
	ID        int64
	Namespace string
	Name      string
	Version   string // textual DirectoryVersion form, "sem:..." or "lit:..."
	Hash      uint64 // numeric DirectoryHash
	Metadata  json.RawMessage
	Installed bool
}

// FindDirectory looks up a Directory by its unique (namespace, name, hash)
// key. Returns sql.ErrNoRows wrapped if absent.
func (c *Catalog) FindDirectory(ctx context.Context, namespace, name string, hash uint64) (*Directory, error) {
	row := c.packages.QueryRowContext(ctx,
		`SELECT directory_id, namespace, name, version, hash, metadata, installed
		 FROM directories WHERE namespace = ? AND name = ? AND hash = ?`,
		namespace, name, directoryHashToBlob(hash),
	)
	return scanDirectory(row)
}

// MatchDirectories returns every Directory row matching (namespace, name),
// regardless of version, for the Matcher stage to tie-break over.
func (c *Catalog) MatchDirectories(ctx context.Context, namespace, name string) ([]*Directory, error) {
	rows, err := c.packages.QueryContext(ctx,
		`SELECT directory_id, namespace, name, version, hash, metadata, installed
		 FROM directories WHERE namespace = ? AND name = ?`,
		namespace, name,
	)
	if err != nil {
		return nil, fmt.Errorf("match directories: %w", err)
	}
	defer rows.Close()

	var out []*Directory
	for rows.Next() {
		d, err := scanDirectoryRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListInstalled returns every installed Directory row, optionally
// filtered by namespace and/or name (either may be empty to mean "any").
func (c *Catalog) ListInstalled(ctx context.Context, namespace, name string) ([]*Directory, error) {
	rows, err := c.packages.QueryContext(ctx,
		`SELECT directory_id, namespace, name, version, hash, metadata, installed
		 FROM directories
		 WHERE installed = 1
		   AND (? = '' OR namespace = ?)
		   AND (? = '' OR name = ?)
		 ORDER BY namespace, name, version`,
		namespace, namespace, name, name,
	)
	if err != nil {
		return nil, fmt.Errorf("list installed: %w", err)
	}
	defer rows.Close()

	var out []*Directory
	for rows.Next() {
		d, err := scanDirectoryRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// InsertDirectory inserts a new Directory row and returns it with its
// assigned ID. Callers must hold an exclusive lock on the directory's
// install path before calling this, to avoid a lookup-then-insert race
// across processes (see lock.Handle).
func (c *Catalog) InsertDirectory(ctx context.Context, d Directory) (*Directory, error) {
	metadata := d.Metadata
	if metadata == nil {
		metadata = json.RawMessage("{}")
	}
	res, err := c.packages.ExecContext(ctx,
		`INSERT INTO directories (namespace, name, version, hash, metadata, installed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.Namespace, d.Name, d.Version, directoryHashToBlob(d.Hash), string(metadata), d.Installed,
	)
	if err != nil {
		return nil, fmt.Errorf("insert directory: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	d.ID = id
	d.Metadata = metadata
	return &d, nil
}

// SetInstalled flips the installed flag on a Directory row. The
// Committer calls it at the very end of commit (installed=true); rollback
// does not call it, so a failed attempt leaves the flag unchanged.
func (c *Catalog) SetInstalled(ctx context.Context, tx *sql.Tx, directoryID int64, installed bool) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE directories SET installed = ? WHERE directory_id = ?`, installed, directoryID)
	if err != nil {
		return fmt.Errorf("set installed: %w", err)
	}
	return nil
}

// BeginPackagesTx starts a transaction against the packages database, for
// callers (the Committer) that need the insert-Install/insert-files/flip
// steps to be atomic together.
func (c *Catalog) BeginPackagesTx(ctx context.Context) (*sql.Tx, error) {
	return c.packages.BeginTx(ctx, nil)
}

func scanDirectory(row *sql.Row) (*Directory, error) {
	var d Directory
	var hashBlob []byte
	var metadata string
	err := row.Scan(&d.ID, &d.Namespace, &d.Name, &d.Version, &hashBlob, &metadata, &d.Installed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan directory: %w", err)
	}
	hash, err := directoryHashFromBlob(hashBlob)
	if err != nil {
		return nil, err
	}
	d.Hash = hash
	d.Metadata = json.RawMessage(metadata)
	return &d, nil
}

func scanDirectoryRows(rows *sql.Rows) (*Directory, error) {
	var d Directory
	var hashBlob []byte
	var metadata string
	if err := rows.Scan(&d.ID, &d.Namespace, &d.Name, &d.Version, &hashBlob, &metadata, &d.Installed); err != nil {
		return nil, fmt.Errorf("scan directory: %w", err)
	}
	hash, err := directoryHashFromBlob(hashBlob)
	if err != nil {
		return nil, err
	}
	d.Hash = hash
	d.Metadata = json.RawMessage(metadata)
	return &d, nil
}
