package main

import (
	"context"
	"fmt"
	"strings"
)

// fetchRows reads the whole source table into memory. No ORDER BY is
// imposed; rows arrive in whatever order the source returns them.
func fetchRows(ctx context.Context, src SourceDB, q catalogQuerier, table string) (*RowSet, error) {
	rows, err := q.QueryContext(ctx, "SELECT * FROM "+src.QualifiedTable(table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result columns: %w", err)
	}

	textual := make([]bool, len(cols))
	if types, err := rows.ColumnTypes(); err == nil && len(types) == len(cols) {
		for i, ct := range types {
			textual[i] = isTextualSourceType(ct.DatabaseTypeName())
		}
	}

	rs := &RowSet{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(rs.Rows)+1, err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok && textual[i] {
				values[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

// binarySourceTypes are driver type names whose []byte values are real
// binary payloads and must reach the target as bytea.
var binarySourceTypes = map[string]bool{
	"BLOB": true, "TINYBLOB": true, "MEDIUMBLOB": true, "LONGBLOB": true,
	"BINARY": true, "VARBINARY": true, "BIT": true, "GEOMETRY": true,
	"RAW": true, "LONG RAW": true, "LONGRAW": true, "BFILE": true, "BYTEA": true,
}

// isTextualSourceType reports whether []byte values of a column hold text.
// The MySQL text protocol returns DECIMAL, VARCHAR and friends as []byte;
// pgx only encodes []byte as bytea, so those are handed over as strings,
// which pgx sends in text format for any parameter type. Unknown (empty)
// type names are left alone.
func isTextualSourceType(name string) bool {
	name = typeKey(name)
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	return name != "" && !binarySourceTypes[name]
}

// insertStatementName is the name the per-table insert is prepared under.
func insertStatementName(table string) string {
	return "tableferry_insert_" + targetName(table)
}

// copyRows inserts every row of rs through one prepared statement built from
// rs.Columns. Values are bound positionally and passed to the driver as
// fetched. The first failing row stops the copy; rows already inserted stay.
// It returns the number of rows inserted.
func copyRows(ctx context.Context, target targetConn, b statementBuilder, table string, rs *RowSet) (int, error) {
	query, err := b.insert(table, rs.Columns)
	if err != nil {
		return 0, newMigrationError(KindPrecondition, table, "copy data", err)
	}

	name := insertStatementName(table)
	if _, err := target.Prepare(ctx, name, query); err != nil {
		return 0, newMigrationError(KindDataCopy, table, "copy data",
			fmt.Errorf("prepare insert: %w\nSQL: %s", err, query))
	}
	defer target.Deallocate(context.WithoutCancel(ctx), name)

	for i, row := range rs.Rows {
		if len(row) != len(rs.Columns) {
			return i, newMigrationError(KindDataCopy, table, "copy data",
				fmt.Errorf("row %d has %d values for %d columns", i+1, len(row), len(rs.Columns)))
		}
		if _, err := target.Exec(ctx, name, row...); err != nil {
			return i, newMigrationError(KindDataCopy, table, "copy data",
				fmt.Errorf("insert row %d: %w", i+1, err))
		}
	}
	return len(rs.Rows), nil
}
