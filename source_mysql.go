package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// mysqlSourceDB reads from the database named in the DSN; every catalog
// query is scoped with TABLE_SCHEMA = DATABASE().
type mysqlSourceDB struct{}

func (m *mysqlSourceDB) Name() string { return "MySQL" }

func (m *mysqlSourceDB) OpenDB(dsn string) (*sql.DB, error) {
	readDSN, err := mysqlDSNWithReadOptions(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", readDSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return db, nil
}

func (m *mysqlSourceDB) CatalogName(table string) string { return table }

func (m *mysqlSourceDB) QualifiedTable(table string) string {
	return m.quoteIdentifier(table)
}

func (m *mysqlSourceDB) quoteIdentifier(name string) string {
	return fmt.Sprintf("`%s`", strings.ReplaceAll(name, "`", "``"))
}

func (m *mysqlSourceDB) TypeMapper() typeMapper { return mysqlTypeMapper() }

func (m *mysqlSourceDB) IntrospectColumns(ctx context.Context, q catalogQuerier, table string) ([]Column, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE, ORDINAL_POSITION
		 FROM INFORMATION_SCHEMA.COLUMNS
		 WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		 ORDER BY ORDINAL_POSITION`,
		table,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		var nullable string
		if err := rows.Scan(&c.Name, &c.Type, &nullable, &c.OrdinalPos); err != nil {
			return nil, err
		}
		c.Nullable = nullable == "YES"
		c.Type = strings.ToLower(c.Type)
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (m *mysqlSourceDB) IntrospectPrimaryKey(ctx context.Context, q catalogQuerier, table string) ([]string, error) {
	return collectStringRows(ctx, q,
		`SELECT COLUMN_NAME
		 FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		 WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		   AND CONSTRAINT_NAME = 'PRIMARY'
		 ORDER BY ORDINAL_POSITION`,
		table,
	)
}

func (m *mysqlSourceDB) IntrospectForeignKeys(ctx context.Context, q catalogQuerier, table string) ([]ForeignKey, error) {
	type keyColumn struct {
		name, column, refSchema, refTable, refColumn string
	}

	rows, err := q.QueryContext(ctx,
		`SELECT CONSTRAINT_NAME, COLUMN_NAME,
		        REFERENCED_TABLE_SCHEMA, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
		 FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		 WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		   AND REFERENCED_TABLE_NAME IS NOT NULL
		 ORDER BY CONSTRAINT_NAME, ORDINAL_POSITION`,
		table,
	)
	if err != nil {
		return nil, err
	}
	var keyCols []keyColumn
	for rows.Next() {
		var kc keyColumn
		if err := rows.Scan(&kc.name, &kc.column, &kc.refSchema, &kc.refTable, &kc.refColumn); err != nil {
			rows.Close()
			return nil, err
		}
		keyCols = append(keyCols, kc)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	var fks []ForeignKey
	index := make(map[string]int)
	for _, kc := range keyCols {
		var refType string
		err := q.QueryRowContext(ctx,
			`SELECT DATA_TYPE FROM INFORMATION_SCHEMA.COLUMNS
			 WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND COLUMN_NAME = ?`,
			kc.refSchema, kc.refTable, kc.refColumn,
		).Scan(&refType)
		if err != nil {
			return nil, fmt.Errorf("referenced column %s.%s: %w", kc.refTable, kc.refColumn, err)
		}

		i, ok := index[kc.name]
		if !ok {
			i = len(fks)
			index[kc.name] = i
			fks = append(fks, ForeignKey{Name: kc.name, RefTable: kc.refTable})
		}
		fks[i].Columns = append(fks[i].Columns, kc.column)
		fks[i].RefColumns = append(fks[i].RefColumns, kc.refColumn)
		fks[i].RefTypes = append(fks[i].RefTypes, strings.ToLower(refType))
	}
	return fks, nil
}
