package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/sijms/go-ora/v2" // registers the "oracle" driver
)

// oracleOwnerClause resolves an empty owner to the session's current schema.
// Oracle binds an empty string as NULL, so NVL falls through.
const oracleOwnerClause = "NVL(:1, SYS_CONTEXT('USERENV', 'CURRENT_SCHEMA'))"

type oracleSourceDB struct {
	owner string // catalog owner; empty means the connected user's current schema
}

func (o *oracleSourceDB) Name() string { return "Oracle" }

func (o *oracleSourceDB) OpenDB(dsn string) (*sql.DB, error) {
	if !strings.HasPrefix(dsn, "oracle://") {
		return nil, fmt.Errorf("oracle dsn must start with oracle://")
	}
	db, err := sql.Open("oracle", dsn)
	if err != nil {
		return nil, fmt.Errorf("open oracle: %w", err)
	}
	return db, nil
}

// CatalogName upper-cases the table name, the case Oracle stores unquoted names in.
func (o *oracleSourceDB) CatalogName(table string) string {
	return strings.ToUpper(table)
}

func (o *oracleSourceDB) QualifiedTable(table string) string {
	name := o.quoteIdentifier(o.CatalogName(table))
	if o.owner == "" {
		return name
	}
	return o.quoteIdentifier(strings.ToUpper(o.owner)) + "." + name
}

func (o *oracleSourceDB) quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (o *oracleSourceDB) ownerArg() string {
	return strings.ToUpper(o.owner)
}

func (o *oracleSourceDB) TypeMapper() typeMapper { return oracleTypeMapper() }

func (o *oracleSourceDB) IntrospectColumns(ctx context.Context, q catalogQuerier, table string) ([]Column, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT COLUMN_NAME, DATA_TYPE, NULLABLE, COLUMN_ID
		 FROM ALL_TAB_COLUMNS
		 WHERE OWNER = `+oracleOwnerClause+` AND TABLE_NAME = :2
		 ORDER BY COLUMN_ID`,
		o.ownerArg(), o.CatalogName(table),
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
		c.Nullable = nullable == "Y"
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (o *oracleSourceDB) IntrospectPrimaryKey(ctx context.Context, q catalogQuerier, table string) ([]string, error) {
	return collectStringRows(ctx, q,
		`SELECT cc.COLUMN_NAME
		 FROM ALL_CONSTRAINTS c
		 JOIN ALL_CONS_COLUMNS cc
		   ON cc.OWNER = c.OWNER AND cc.CONSTRAINT_NAME = c.CONSTRAINT_NAME
		 WHERE c.CONSTRAINT_TYPE = 'P'
		   AND c.OWNER = `+oracleOwnerClause+` AND c.TABLE_NAME = :2
		 ORDER BY cc.POSITION`,
		o.ownerArg(), o.CatalogName(table),
	)
}

func (o *oracleSourceDB) IntrospectForeignKeys(ctx context.Context, q catalogQuerier, table string) ([]ForeignKey, error) {
	type keyColumn struct {
		name, column, refOwner, refTable, refColumn string
	}

	rows, err := q.QueryContext(ctx,
		`SELECT c.CONSTRAINT_NAME, cc.COLUMN_NAME, r.OWNER, r.TABLE_NAME, rcc.COLUMN_NAME
		 FROM ALL_CONSTRAINTS c
		 JOIN ALL_CONS_COLUMNS cc
		   ON cc.OWNER = c.OWNER AND cc.CONSTRAINT_NAME = c.CONSTRAINT_NAME
		 JOIN ALL_CONSTRAINTS r
		   ON r.OWNER = c.R_OWNER AND r.CONSTRAINT_NAME = c.R_CONSTRAINT_NAME
		 JOIN ALL_CONS_COLUMNS rcc
		   ON rcc.OWNER = r.OWNER AND rcc.CONSTRAINT_NAME = r.CONSTRAINT_NAME
		  AND rcc.POSITION = cc.POSITION
		 WHERE c.CONSTRAINT_TYPE = 'R'
		   AND c.OWNER = `+oracleOwnerClause+` AND c.TABLE_NAME = :2
		 ORDER BY c.CONSTRAINT_NAME, cc.POSITION`,
		o.ownerArg(), o.CatalogName(table),
	)
	if err != nil {
		return nil, err
	}
	var keyCols []keyColumn
	for rows.Next() {
		var kc keyColumn
		if err := rows.Scan(&kc.name, &kc.column, &kc.refOwner, &kc.refTable, &kc.refColumn); err != nil {
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
			`SELECT DATA_TYPE FROM ALL_TAB_COLUMNS
			 WHERE OWNER = :1 AND TABLE_NAME = :2 AND COLUMN_NAME = :3`,
			kc.refOwner, kc.refTable, kc.refColumn,
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
		fks[i].RefTypes = append(fks[i].RefTypes, refType)
	}
	return fks, nil
}
