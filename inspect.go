package main

import (
	"context"
	"errors"
	"fmt"
)

var errTableNotFound = errors.New("table not found in source catalog")

// inspectTable reads the source table's columns, primary key and foreign
// keys from the catalog. It either returns a complete descriptor or a
// SchemaIntrospectionError; partial descriptors are never returned.
func inspectTable(ctx context.Context, src SourceDB, q catalogQuerier, table string) (*Table, error) {
	fail := func(what string, err error) error {
		return newMigrationError(KindSchemaIntrospection, table, "introspect "+what, err)
	}

	cols, err := src.IntrospectColumns(ctx, q, table)
	if err != nil {
		return nil, fail("columns", err)
	}
	cols = dedupColumns(cols)
	if len(cols) == 0 {
		return nil, fail("columns", errTableNotFound)
	}

	pk, err := src.IntrospectPrimaryKey(ctx, q, table)
	if err != nil {
		return nil, fail("primary key", err)
	}

	fks, err := src.IntrospectForeignKeys(ctx, q, table)
	if err != nil {
		return nil, fail("foreign keys", err)
	}

	t := &Table{
		Name:        src.CatalogName(table),
		Columns:     cols,
		PrimaryKey:  pk,
		ForeignKeys: fks,
	}
	if err := validateTable(t); err != nil {
		return nil, fail("descriptor", err)
	}
	return t, nil
}

// dedupColumns keeps the first occurrence of each column name. Some catalogs
// report the same column more than once (synonyms, multiple owners).
func dedupColumns(cols []Column) []Column {
	seen := make(map[string]bool, len(cols))
	out := cols[:0]
	for _, c := range cols {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		out = append(out, c)
	}
	return out
}

// validateTable checks that every key column is one of the table's columns.
func validateTable(t *Table) error {
	for _, c := range t.PrimaryKey {
		if !t.hasColumn(c) {
			return fmt.Errorf("primary key column %q is not a column of %s", c, t.Name)
		}
	}
	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) != len(fk.RefColumns) || len(fk.Columns) != len(fk.RefTypes) {
			return fmt.Errorf("foreign key %q has mismatched column lists", fk.Name)
		}
		for _, c := range fk.Columns {
			if !t.hasColumn(c) {
				return fmt.Errorf("foreign key %q column %q is not a column of %s", fk.Name, c, t.Name)
			}
		}
	}
	return nil
}
