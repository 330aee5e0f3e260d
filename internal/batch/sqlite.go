package batch

import (
	"context"
	"database/sql"
	"fmt"

	"sheetbridge/internal/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteSource reads the batch set from a local staging database. The
// staging table is created on open so an empty database is a valid,
// zero-batch source.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLiteSource opens (creating if needed) the staging database at path.
func OpenSQLiteSource(path string) (*SQLiteSource, error) {
	if path == "" {
		path = "batches.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open batch sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS batches (
		sheet_name TEXT NOT NULL,
		material_master TEXT NOT NULL DEFAULT '',
		qty INTEGER NOT NULL DEFAULT 0,
		weight REAL NOT NULL DEFAULT 0,
		heat TEXT NOT NULL DEFAULT '',
		po TEXT NOT NULL DEFAULT ''
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create batches table: %w", err)
	}
	return &SQLiteSource{db: db}, nil
}

// DB exposes the underlying handle for seeding in tests.
func (s *SQLiteSource) DB() *sql.DB { return s.db }

// Close releases the staging database handle.
func (s *SQLiteSource) Close() error { return s.db.Close() }

func (s *SQLiteSource) Batches(ctx context.Context) ([]domain.Batch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sheet_name, material_master, qty, weight, heat, po FROM batches ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("select batches: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var batches []domain.Batch
	for rows.Next() {
		var b domain.Batch
		if err := rows.Scan(&b.SheetName, &b.MaterialMaster, &b.Qty, &b.Weight, &b.Heat, &b.PO); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batches: %w", err)
	}
	return batches, nil
}
