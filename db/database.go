// Package db provides the database backend the assistant's tools drive:
// query execution, DDL/DML execution, and schema introspection. Results
// are plain JSON-compatible values so the agent layer can treat them as
// opaque payloads.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// MaxQueryRows caps result sets fed back to the model. Larger results
// blow past context windows without improving answers.
const MaxQueryRows = 200

// Database wraps a SQL connection with the operations the tool set needs.
type Database struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) a SQLite database at path. Use ":memory:" for
// an ephemeral database.
func Open(path string) (*Database, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{conn: conn, path: path}, nil
}

// Close releases the underlying connection.
func (d *Database) Close() error {
	return d.conn.Close()
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.path
}

// QueryResult is the shape returned for row-producing statements.
type QueryResult struct {
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated,omitempty"`
}

// ExecResult is the shape returned for statements executed without a
// result set.
type ExecResult struct {
	RowsAffected int64 `json:"rows_affected"`
}

// Query runs a row-producing statement and materializes up to
// MaxQueryRows rows as column→value maps.
func (d *Database) Query(ctx context.Context, query string) (*QueryResult, error) {
	rows, err := d.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := &QueryResult{Columns: columns, Rows: []map[string]any{}}

	for rows.Next() {
		if len(result.Rows) >= MaxQueryRows {
			result.Truncated = true
			break
		}

		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}

		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			// SQLite hands back []byte for TEXT under some drivers;
			// normalize so JSON marshaling produces strings.
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

// Execute runs a DDL or DML statement and reports rows affected.
func (d *Database) Execute(ctx context.Context, statement string) (*ExecResult, error) {
	res, err := d.conn.ExecContext(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("execute failed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		// Not all statements report affected rows; treat as zero.
		affected = 0
	}

	return &ExecResult{RowsAffected: affected}, nil
}

// TableInfo describes one table for ListTables.
type TableInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ListTables returns user tables and views, excluding SQLite internals.
func (d *Database) ListTables(ctx context.Context) ([]TableInfo, error) {
	const q = `SELECT name, type FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		ORDER BY name`

	rows, err := d.conn.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	tables := []TableInfo{}
	for rows.Next() {
		var t TableInfo
		if err := rows.Scan(&t.Name, &t.Type); err != nil {
			return nil, fmt.Errorf("failed to scan table info: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// ColumnInfo describes one column for DescribeTable.
type ColumnInfo struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	NotNull       bool   `json:"not_null"`
	DefaultValue  any    `json:"default_value,omitempty"`
	IsPrimaryKey  bool   `json:"is_primary_key"`
	OrdinalNumber int    `json:"ordinal"`
}

// DescribeTable returns column metadata via PRAGMA table_info. An unknown
// table yields an error rather than an empty result so the model gets a
// usable signal.
func (d *Database) DescribeTable(ctx context.Context, table string) ([]ColumnInfo, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT cid, name, type, "notnull", dflt_value, pk FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to describe table %q: %w", table, err)
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var (
			c       ColumnInfo
			notNull int
			pk      int
			dflt    sql.NullString
		)
		if err := rows.Scan(&c.OrdinalNumber, &c.Name, &c.Type, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}
		c.NotNull = notNull != 0
		c.IsPrimaryKey = pk != 0
		if dflt.Valid {
			c.DefaultValue = dflt.String
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table %q does not exist", table)
	}
	return columns, nil
}
