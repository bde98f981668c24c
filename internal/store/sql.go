package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

// sqlColumns are the table columns backing Columns, in the same order.
var sqlColumns = []string{
	"x1", "y1", "x2", "y2", "label", "fluid_type", "area", "installation_type",
	"machine_id", "severity", "category", "flow_rate_range", "annual_cost", "state", "zone_key",
}

type dialect struct {
	name    string
	seqType string
	// placeholder returns the n-th (1-based) bind parameter.
	placeholder func(n int) string
}

var (
	sqliteDialect = dialect{
		name:        "sqlite",
		seqType:     "INTEGER PRIMARY KEY AUTOINCREMENT",
		placeholder: func(int) string { return "?" },
	}
	postgresDialect = dialect{
		name:        "postgres",
		seqType:     "BIGSERIAL PRIMARY KEY",
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	}
)

// SQLBackend stores zones in a single "zones" table, one row per zone, every
// cell as TEXT. Row order is the insertion order of the seq column.
type SQLBackend struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQLite opens (creating if needed) a SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLBackend, error) {
	if path == "" {
		path = "leakzones.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Row offsets are only meaningful within one connection's view.
	db.SetMaxOpenConns(1)
	return newSQLBackend(ctx, db, sqliteDialect)
}

// OpenPostgres connects to Postgres through the pgx driver.
func OpenPostgres(ctx context.Context, dsn string) (*SQLBackend, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return newSQLBackend(ctx, db, postgresDialect)
}

func newSQLBackend(ctx context.Context, db *sql.DB, d dialect) (*SQLBackend, error) {
	cols := make([]string, len(sqlColumns))
	for i, c := range sqlColumns {
		cols[i] = c + " TEXT NOT NULL DEFAULT ''"
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS zones (\n\tseq %s,\n\t%s\n)", d.seqType, strings.Join(cols, ",\n\t"))
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create zones table: %w", err)
	}
	return &SQLBackend{db: db, dialect: d}, nil
}

// DB exposes the underlying handle for tests.
func (b *SQLBackend) DB() *sql.DB { return b.db }

// Values implements Backend.
func (b *SQLBackend) Values(ctx context.Context) ([][]string, error) {
	q := fmt.Sprintf("SELECT %s FROM zones ORDER BY seq", strings.Join(sqlColumns, ", "))
	rows, err := b.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select zones: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := [][]string{append([]string(nil), Columns...)}
	for rows.Next() {
		cells := make([]string, len(sqlColumns))
		dest := make([]any, len(cells))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		out = append(out, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zones: %w", err)
	}
	return out, nil
}

// AppendRow implements Backend.
func (b *SQLBackend) AppendRow(ctx context.Context, values []string) error {
	args := make([]any, len(sqlColumns))
	ph := make([]string, len(sqlColumns))
	for i := range sqlColumns {
		if i < len(values) {
			args[i] = values[i]
		} else {
			args[i] = ""
		}
		ph[i] = b.dialect.placeholder(i + 1)
	}
	q := fmt.Sprintf("INSERT INTO zones (%s) VALUES (%s)", strings.Join(sqlColumns, ", "), strings.Join(ph, ", "))
	if _, err := b.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert zone: %w", err)
	}
	return nil
}

// UpdateCells implements Backend.
func (b *SQLBackend) UpdateCells(ctx context.Context, row int, cells map[string]string) error {
	seq, err := b.seqAt(ctx, row)
	if err != nil {
		return err
	}
	sets := make([]string, 0, len(cells))
	args := make([]any, 0, len(cells)+1)
	// Iterate Columns for a stable statement shape.
	for i, name := range Columns {
		v, ok := cells[name]
		if !ok {
			continue
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = %s", sqlColumns[i], b.dialect.placeholder(len(args))))
	}
	if len(sets) != len(cells) {
		return fmt.Errorf("%w in update", ErrUnknownColumn)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, seq)
	q := fmt.Sprintf("UPDATE zones SET %s WHERE seq = %s", strings.Join(sets, ", "), b.dialect.placeholder(len(args)))
	if _, err := b.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("update zone: %w", err)
	}
	return nil
}

// DeleteRow implements Backend.
func (b *SQLBackend) DeleteRow(ctx context.Context, row int) error {
	seq, err := b.seqAt(ctx, row)
	if err != nil {
		return err
	}
	q := fmt.Sprintf("DELETE FROM zones WHERE seq = %s", b.dialect.placeholder(1))
	if _, err := b.db.ExecContext(ctx, q, seq); err != nil {
		return fmt.Errorf("delete zone: %w", err)
	}
	return nil
}

// Close implements Backend.
func (b *SQLBackend) Close() error { return b.db.Close() }

// seqAt resolves a 1-based contract row to its seq value.
func (b *SQLBackend) seqAt(ctx context.Context, row int) (int64, error) {
	offset := row - HeaderRow - 1
	if offset < 0 {
		return 0, fmt.Errorf("%w: row %d", ErrNotFound, row)
	}
	q := fmt.Sprintf("SELECT seq FROM zones ORDER BY seq LIMIT 1 OFFSET %s", b.dialect.placeholder(1))
	var seq int64
	err := b.db.QueryRowContext(ctx, q, offset).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: row %d", ErrNotFound, row)
	}
	if err != nil {
		return 0, fmt.Errorf("locate row %d: %w", row, err)
	}
	return seq, nil
}
