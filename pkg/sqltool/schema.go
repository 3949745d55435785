package sqltool

import (
	"context"
	"fmt"
)

// TableInfo mirrors one row of SQLite's PRAGMA table_info output.
type TableInfo struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	PK       bool   `json:"primary_key"`
}

// DescribeSchema introspects every table in knownTables via
// PRAGMA table_info, the capability required by spec §6.3.
func DescribeSchema(ctx context.Context, pool *Pool, knownTables []string) ([]TableInfo, error) {
	out := make([]TableInfo, 0, len(knownTables))
	for _, table := range knownTables {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}

		rows, err := conn.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
		if err != nil {
			pool.Release(conn, false)
			return nil, fmt.Errorf("sqltool: describing table %q: %w", table, err)
		}

		var cols []ColumnInfo
		for rows.Next() {
			var (
				cid       int
				name      string
				colType   string
				notNull   int
				dfltValue any
				pk        int
			)
			if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
				rows.Close()
				pool.Release(conn, false)
				return nil, err
			}
			cols = append(cols, ColumnInfo{Name: name, Type: colType, Nullable: notNull == 0, PK: pk != 0})
		}
		rows.Close()
		pool.Release(conn, true)

		out = append(out, TableInfo{Name: table, Columns: cols})
	}
	return out, nil
}
