package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/tools/sqldatabase"
)

const maxEngineRows = 100

type Column struct {
	Name     string
	DataType string
}

// ListTables returns the table names of the warehouse schema in name order.
func (w *Warehouse) ListTables(ctx context.Context) ([]string, error) {
	rows, err := w.db.QueryContext(ctx, `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = $1
ORDER BY table_name`, w.schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return tables, nil
}

// Columns lists the columns of table in ordinal order. An unknown table
// yields sqldatabase.ErrTableNotFound.
func (w *Warehouse) Columns(ctx context.Context, table string) ([]Column, error) {
	table = w.unqualified(table)
	rows, err := w.db.QueryContext(ctx, `
SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`, w.schema, table)
	if err != nil {
		return nil, fmt.Errorf("list columns for %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []Column
	for rows.Next() {
		var column Column
		if err := rows.Scan(&column.Name, &column.DataType); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s.%s", sqldatabase.ErrTableNotFound, w.schema, table)
	}
	return columns, nil
}

// Engine exposes the warehouse schema to langchaingo's SQL database tools.
// Every statement runs on a connection whose search path is the warehouse
// schema, so unqualified table names resolve there.
type Engine struct {
	wh      *Warehouse
	dialect string
}

var _ sqldatabase.Engine = (*Engine)(nil)

func (w *Warehouse) Engine(dialect string) *Engine {
	return &Engine{wh: w, dialect: dialect}
}

func (e *Engine) Dialect() string {
	return e.dialect
}

// Query returns at most 100 rows rendered as strings. NULL becomes "".
func (e *Engine) Query(ctx context.Context, query string, args ...any) ([]string, [][]string, error) {
	var (
		columns []string
		results [][]string
	)
	err := withSchema(ctx, e.wh.db, e.wh.schema, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		columns, err = rows.Columns()
		if err != nil {
			return err
		}
		for len(results) < maxEngineRows && rows.Next() {
			values := make([]any, len(columns))
			dest := make([]any, len(values))
			for i := range values {
				dest[i] = &values[i]
			}
			if err := rows.Scan(dest...); err != nil {
				return fmt.Errorf("scan row: %w", err)
			}
			row := make([]string, len(values))
			for i, value := range normalizeValues(values) {
				if value != nil {
					row[i] = fmt.Sprint(value)
				}
			}
			results = append(results, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, err
	}
	return columns, results, nil
}

func (e *Engine) TableNames(ctx context.Context) ([]string, error) {
	return e.wh.ListTables(ctx)
}

// TableInfo renders a CREATE TABLE statement for table.
func (e *Engine) TableInfo(ctx context.Context, table string) (string, error) {
	columns, err := e.wh.Columns(ctx, table)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s.%s (\n", e.wh.schema, e.wh.unqualified(table))
	for i, column := range columns {
		fmt.Fprintf(&b, "\t%s %s", column.Name, strings.ToUpper(column.DataType))
		if i < len(columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String(), nil
}

// Close is a no-op; the Warehouse owns the handles.
func (e *Engine) Close() error {
	return nil
}

func (w *Warehouse) unqualified(table string) string {
	table = strings.TrimSpace(table)
	table = strings.TrimPrefix(table, w.schema+".")
	return strings.Trim(table, `"`)
}
