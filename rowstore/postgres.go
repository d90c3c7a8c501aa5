package rowstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'
)

// PostgresStore implements Store on a single generic table, preserving the
// spreadsheet contract (append-only rows, in-place cell updates, full-scan
// reads). It exists so deployments can swap the external spreadsheet for a
// database they control without touching the feature code.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and applies the idempotent schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres store: dsn empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sheet_rows (
			id SERIAL PRIMARY KEY,
			tab TEXT NOT NULL,
			cells TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sheet_rows_tab ON sheet_rows(tab, id)`,
	}
	for i, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("postgres migrate step %d failed: %w", i, err)
		}
	}
	return nil
}

// ListRows returns all rows of a table in insertion order.
func (s *PostgresStore) ListRows(ctx context.Context, table string) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT cells FROM sheet_rows WHERE tab=$1 ORDER BY id`, table)
	if err != nil {
		return nil, fmt.Errorf("postgres list %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()
	var out [][]string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("postgres scan %s: %w", table, err)
		}
		var cells []string
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return nil, fmt.Errorf("postgres decode %s: %w", table, err)
		}
		out = append(out, cells)
	}
	return out, rows.Err()
}

// AppendRow inserts a new row at the end of the table.
func (s *PostgresStore) AppendRow(ctx context.Context, table string, values []string) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("postgres encode %s: %w", table, err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO sheet_rows(tab, cells) VALUES($1,$2)`, table, string(raw)); err != nil {
		return fmt.Errorf("postgres append %s: %w", table, err)
	}
	return nil
}

// UpdateCell rewrites the addressed row with one cell replaced. The row is
// located by position, so this is a read-modify-write just like the
// spreadsheet backend; callers serialize per user.
func (s *PostgresStore) UpdateCell(ctx context.Context, table string, row, col int, value string) error {
	if row < 2 || col < 1 {
		return ErrRowOutOfRange
	}
	var id int64
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, cells FROM sheet_rows WHERE tab=$1 ORDER BY id OFFSET $2 LIMIT 1`,
		table, row-2).Scan(&id, &raw)
	if err == sql.ErrNoRows {
		return ErrRowOutOfRange
	}
	if err != nil {
		return fmt.Errorf("postgres locate %s row %d: %w", table, row, err)
	}
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return fmt.Errorf("postgres decode %s: %w", table, err)
	}
	for len(cells) < col {
		cells = append(cells, "")
	}
	cells[col-1] = value
	updated, err := json.Marshal(cells)
	if err != nil {
		return fmt.Errorf("postgres encode %s: %w", table, err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE sheet_rows SET cells=$1 WHERE id=$2`, string(updated), id); err != nil {
		return fmt.Errorf("postgres update %s row %d: %w", table, row, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error { return s.db.Close() }
