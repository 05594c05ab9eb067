package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Catalog indexes archived runs in SQLite so they can be queried without
// reading every metadata file.
type Catalog struct {
	db *sql.DB
}

// CatalogEntry is one indexed run.
type CatalogEntry struct {
	ID        string
	Model     string
	Method    string
	Status    string
	Steps     int
	FinalTime float64
	Timestamp time.Time
}

// OpenCatalog opens or creates the database at path. The parent directory
// is created through fss (the OS filesystem by default); the database file
// itself is always opened by the driver on the OS filesystem.
func OpenCatalog(path string, fss ...vfs.FileSystem) (*Catalog, error) {
	fs := vfs.FileSystem(osfs.OsFs)
	if len(fss) > 0 && fss[0] != nil {
		fs = fss[0]
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, vfs.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		method TEXT NOT NULL,
		status TEXT NOT NULL,
		steps INTEGER NOT NULL,
		final_time REAL NOT NULL,
		created_at INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &Catalog{db: db}, nil
}

func (c *Catalog) Close() error { return c.db.Close() }

// Record inserts or replaces the entry of a run.
func (c *Catalog) Record(ctx context.Context, meta RunMetadata) error {
	_, err := c.db.ExecContext(ctx, `INSERT OR REPLACE INTO runs
		(id, model, method, status, steps, final_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Model, meta.Method, meta.Status, meta.Steps, meta.FinalTime, meta.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("record run %s: %w", meta.ID, err)
	}
	return nil
}

// Runs lists the indexed runs, newest first, optionally for one model.
func (c *Catalog) Runs(ctx context.Context, model string) ([]CatalogEntry, error) {
	query := `SELECT id, model, method, status, steps, final_time, created_at FROM runs`
	var args []any
	if model != "" {
		query += ` WHERE model = ?`
		args = append(args, model)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []CatalogEntry
	for rows.Next() {
		var e CatalogEntry
		var created int64
		if err := rows.Scan(&e.ID, &e.Model, &e.Method, &e.Status, &e.Steps, &e.FinalTime, &created); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		e.Timestamp = time.Unix(0, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Forget drops a run from the index.
func (c *Catalog) Forget(ctx context.Context, runID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	return err
}

// CountByStatus returns how many runs ended in each status.
func (c *Catalog) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}
