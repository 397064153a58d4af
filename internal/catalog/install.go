package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Install is the single row recording that a Directory is (or, at the
// instant of rollback, was about to be) on disk. At most one Install row
// exists per Directory, enforced by the UNIQUE constraint on
// installed.directory_id.
type Install struct {
	ID          int64
	DirectoryID int64
	InstallTime int64 // unix seconds
	Metadata    json.RawMessage
}

// InstalledFile is one file placed into the install tree by the most
// recent commit for an Install.
type InstalledFile struct {
	ID       int64
	InstallID int64
	Name     string
	Hash     [34]byte // 2-byte tag + 32 raw blake3 bytes, see hashid.FileHash
	Metadata json.RawMessage
	IsBinary bool
}

// InsertInstall records the Install row within an in-flight transaction.
// Part of the Committer's atomic commit sequence (spec §4.4 step 7).
func InsertInstall(ctx context.Context, tx *sql.Tx, directoryID int64, installTime int64, metadata json.RawMessage) (int64, error) {
	if metadata == nil {
		metadata = json.RawMessage("{}")
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO installed (directory_id, install_time, metadata) VALUES (?, ?, ?)`,
		directoryID, installTime, string(metadata),
	)
	if err != nil {
		return 0, fmt.Errorf("insert install: %w", err)
	}
	return res.LastInsertId()
}

// DeleteInstall removes the Install row for a Directory within tx. No
// pipeline stage calls it (rollback leaves the catalog untouched); it is
// safe to call even when no row exists.
func DeleteInstall(ctx context.Context, tx *sql.Tx, directoryID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM installed WHERE directory_id = ?`, directoryID)
	if err != nil {
		return fmt.Errorf("delete install: %w", err)
	}
	return nil
}

// InsertInstalledFile records one InstalledFile row within the commit
// transaction (spec §4.4 step 7, per file).
func InsertInstalledFile(ctx context.Context, tx *sql.Tx, installID int64, name string, hash []byte, metadata json.RawMessage, isBinary bool) error {
	if metadata == nil {
		metadata = json.RawMessage("{}")
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO installed_files (install_id, name, hash, metadata, is_binary) VALUES (?, ?, ?, ?, ?)`,
		installID, name, hash, string(metadata), isBinary,
	)
	if err != nil {
		return fmt.Errorf("insert installed file %q: %w", name, err)
	}
	return nil
}

// InstalledFiles lists every InstalledFile for an Install, ordered by
// name.
func (c *Catalog) InstalledFiles(ctx context.Context, installID int64) ([]*InstalledFile, error) {
	rows, err := c.packages.QueryContext(ctx,
		`SELECT installed_file_id, install_id, name, hash, metadata, is_binary
		 FROM installed_files WHERE install_id = ? ORDER BY name`,
		installID,
	)
	if err != nil {
		return nil, fmt.Errorf("list installed files: %w", err)
	}
	defer rows.Close()

	var out []*InstalledFile
	for rows.Next() {
		var f InstalledFile
		var hash []byte
		var metadata string
		if err := rows.Scan(&f.ID, &f.InstallID, &f.Name, &hash, &metadata, &f.IsBinary); err != nil {
			return nil, fmt.Errorf("scan installed file: %w", err)
		}
		copy(f.Hash[:], hash)
		f.Metadata = json.RawMessage(metadata)
		out = append(out, &f)
	}
	return out, rows.Err()
}

// InstallForDirectory fetches the Install row for a Directory, if any.
func (c *Catalog) InstallForDirectory(ctx context.Context, directoryID int64) (*Install, error) {
	row := c.packages.QueryRowContext(ctx,
		`SELECT install_id, directory_id, install_time, metadata FROM installed WHERE directory_id = ?`,
		directoryID,
	)
	var i Install
	var metadata string
	if err := row.Scan(&i.ID, &i.DirectoryID, &i.InstallTime, &metadata); err != nil {
		return nil, err
	}
	i.Metadata = json.RawMessage(metadata)
	return &i, nil
}
