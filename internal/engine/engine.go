// Package engine hosts the embedded analytical store that materialized
// tables land in. It runs in-process on SQLite via the pure-Go driver,
// so an ingested file is queryable without any external service.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/Origin-Inc/tableflow/internal/tabular"
)

// Engine wraps one SQLite database holding materialized tables.
type Engine struct {
	db *sql.DB
}

// New opens an engine at path. An empty path yields an in-memory
// database that lives for the engine's lifetime.
func New(path string) (*Engine, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// Appends for one session are sequential by design; a single
	// connection also keeps the in-memory database stable across calls.
	db.SetMaxOpenConns(1)

	return &Engine{db: db}, nil
}

// Close releases the underlying database.
func (e *Engine) Close() error {
	return e.db.Close()
}

// CreateTableFromRows creates table with the given schema and inserts
// the initial rows. The table must not already exist; a session creates
// its destination exactly once.
func (e *Engine) CreateTableFromRows(ctx context.Context, table string, schema []tabular.Column, rows [][]string) error {
	columns := make([]string, 0, len(schema))
	for _, col := range schema {
		columns = append(columns, fmt.Sprintf("%s %s", quoteIdent(col.Name), sqliteType(col.Type)))
	}

	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(columns, ", "))
	if _, err := e.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	return e.AppendRows(ctx, table, schema, rows)
}

// AppendRows inserts rows into an existing table inside one transaction
// using a prepared statement.
func (e *Engine) AppendRows(ctx context.Context, table string, schema []tabular.Column, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(schema)), ", ")
	query := fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(table), placeholders)

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if len(row) != len(schema) {
			_ = tx.Rollback()
			return fmt.Errorf("row has %d values, schema has %d columns", len(row), len(schema))
		}

		values := make([]any, len(row))
		for i, cell := range row {
			values[i] = bindValue(cell)
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert row into %s: %w", table, err)
		}
	}

	return tx.Commit()
}

// DropTable removes a table if it exists. Used to discard partially
// loaded tables when a session ends in error.
func (e *Engine) DropTable(ctx context.Context, table string) error {
	_, err := e.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(table)))
	return err
}

// TableRowCount reports the current row count of a table.
func (e *Engine) TableRowCount(ctx context.Context, table string) (int64, error) {
	var count int64
	err := e.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(table))).Scan(&count)
	return count, err
}

// HasTable reports whether a table with the given name exists.
func (e *Engine) HasTable(ctx context.Context, table string) (bool, error) {
	var count int
	err := e.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
	).Scan(&count)
	return count > 0, err
}

// Query runs an arbitrary read query against the materialized tables.
func (e *Engine) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return e.db.QueryContext(ctx, query, args...)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqliteType(t tabular.ColumnType) string {
	switch t {
	case tabular.TypeInteger, tabular.TypeBoolean:
		return "INTEGER"
	case tabular.TypeReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// bindValue maps a CSV cell to a driver value, keeping empty cells NULL
// so numeric columns stay aggregatable.
func bindValue(cell string) any {
	if cell == "" {
		return nil
	}
	return cell
}
