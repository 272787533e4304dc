// Package sqlite provides a SQLite-backed flare registry.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/couchcryptid/flare-attribution-engine/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS flares (
	flare_id INTEGER NOT NULL,
	lats     REAL    NOT NULL,
	lons     REAL    NOT NULL,
	dt_start INTEGER NOT NULL,
	dt_stop  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS flares_flare_id ON flares (flare_id);
`

// Store persists registry observations. It implements registry.Source.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens or creates a registry database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Flares returns every observation row.
func (s *Store) Flares(ctx context.Context) ([]domain.Flare, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT flare_id, lats, lons, dt_start, dt_stop FROM flares ORDER BY flare_id, dt_start`)
	if err != nil {
		return nil, fmt.Errorf("query flares: %w", err)
	}
	defer rows.Close()

	var out []domain.Flare
	for rows.Next() {
		var (
			f           domain.Flare
			start, stop int64
		)
		if err := rows.Scan(&f.ID, &f.Lat, &f.Lon, &start, &stop); err != nil {
			return nil, fmt.Errorf("scan flare: %w", err)
		}
		f.Start, f.Stop = fromMillis(start), fromMillis(stop)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flares: %w", err)
	}
	return out, nil
}

// InsertFlares appends observation rows in one transaction.
func (s *Store) InsertFlares(ctx context.Context, flares []domain.Flare) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO flares (flare_id, lats, lons, dt_start, dt_stop) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range flares {
		if _, err := stmt.ExecContext(ctx, f.ID, f.Lat, f.Lon, toMillis(f.Start), toMillis(f.Stop)); err != nil {
			return fmt.Errorf("insert flare %d: %w", f.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
