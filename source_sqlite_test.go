package main

import (
	"context"
	"strings"
	"testing"
)

func TestSQLiteReadOnlyURI(t *testing.T) {
	tests := []struct {
		dsn     string
		want    string
		wantErr bool
	}{
		{dsn: "/data/app.db", want: "file:/data/app.db?mode=ro"},
		{dsn: "file:/data/app.db", want: "file:/data/app.db?mode=ro"},
		{dsn: "file:/data/app.db?mode=rw&cache=shared", want: "file:/data/app.db?cache=shared&mode=ro"},
		{dsn: ":memory:", wantErr: true},
		{dsn: "file::memory:?cache=shared", wantErr: true},
		{dsn: "file:x.db?mode=memory", wantErr: true},
	}
	for _, tt := range tests {
		got, err := sqliteReadOnlyURI(tt.dsn)
		if tt.wantErr {
			if err == nil {
				t.Errorf("sqliteReadOnlyURI(%q) expected error", tt.dsn)
			}
			continue
		}
		if err != nil {
			t.Errorf("sqliteReadOnlyURI(%q) error: %v", tt.dsn, err)
			continue
		}
		if got != tt.want {
			t.Errorf("sqliteReadOnlyURI(%q) = %q, want %q", tt.dsn, got, tt.want)
		}
	}
}

func TestSQLiteIntrospect(t *testing.T) {
	db := newSQLiteSource(t,
		`CREATE TABLE warehouses (code TEXT, site INTEGER, name TEXT NOT NULL, PRIMARY KEY (site, code))`,
		`CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE shipments (
			id INTEGER NOT NULL,
			customer INTEGER REFERENCES customers,
			wh_site INTEGER,
			wh_code TEXT,
			note VARCHAR(200),
			PRIMARY KEY (id),
			FOREIGN KEY (wh_site, wh_code) REFERENCES warehouses (site, code)
		)`,
	)
	src := &sqliteSourceDB{}
	ctx := context.Background()

	cols, err := src.IntrospectColumns(ctx, db, "shipments")
	if err != nil {
		t.Fatalf("IntrospectColumns() error: %v", err)
	}
	wantCols := []Column{
		{Name: "id", Type: "INTEGER", Nullable: false, OrdinalPos: 1},
		{Name: "customer", Type: "INTEGER", Nullable: true, OrdinalPos: 2},
		{Name: "wh_site", Type: "INTEGER", Nullable: true, OrdinalPos: 3},
		{Name: "wh_code", Type: "TEXT", Nullable: true, OrdinalPos: 4},
		{Name: "note", Type: "VARCHAR(200)", Nullable: true, OrdinalPos: 5},
	}
	if len(cols) != len(wantCols) {
		t.Fatalf("IntrospectColumns() = %+v", cols)
	}
	for i, want := range wantCols {
		if cols[i] != want {
			t.Errorf("column %d = %+v, want %+v", i, cols[i], want)
		}
	}

	pk, err := src.IntrospectPrimaryKey(ctx, db, "warehouses")
	if err != nil {
		t.Fatalf("IntrospectPrimaryKey() error: %v", err)
	}
	if strings.Join(pk, ",") != "site,code" {
		t.Errorf("warehouses primary key = %v, want [site code] in key order", pk)
	}

	fks, err := src.IntrospectForeignKeys(ctx, db, "shipments")
	if err != nil {
		t.Fatalf("IntrospectForeignKeys() error: %v", err)
	}
	if len(fks) != 2 {
		t.Fatalf("IntrospectForeignKeys() = %+v, want 2 keys", fks)
	}
	byTable := make(map[string]ForeignKey)
	for _, fk := range fks {
		byTable[fk.RefTable] = fk
	}

	cust := byTable["customers"]
	if strings.Join(cust.Columns, ",") != "customer" || strings.Join(cust.RefColumns, ",") != "id" ||
		strings.Join(cust.RefTypes, ",") != "INTEGER" {
		t.Errorf("implicit customers key = %+v", cust)
	}
	wh := byTable["warehouses"]
	if strings.Join(wh.Columns, ",") != "wh_site,wh_code" || strings.Join(wh.RefColumns, ",") != "site,code" ||
		strings.Join(wh.RefTypes, ",") != "INTEGER,TEXT" {
		t.Errorf("composite warehouses key = %+v", wh)
	}
	if !strings.HasPrefix(cust.Name, "fk_shipments_") || cust.Name == wh.Name {
		t.Errorf("foreign key names = %q, %q", cust.Name, wh.Name)
	}
}

func TestSQLiteIntrospect_MissingTable(t *testing.T) {
	db := newSQLiteSource(t, `CREATE TABLE t (id INTEGER)`)
	cols, err := (&sqliteSourceDB{}).IntrospectColumns(context.Background(), db, "nope")
	if err != nil {
		t.Fatalf("IntrospectColumns() error: %v", err)
	}
	if len(cols) != 0 {
		t.Errorf("IntrospectColumns() = %+v, want none", cols)
	}
}

func TestSQLiteOpenDB_IsReadOnly(t *testing.T) {
	db := newSQLiteSource(t, `CREATE TABLE t (id INTEGER)`)
	if _, err := db.Exec(`INSERT INTO t VALUES (1)`); err == nil {
		t.Fatal("write through the source handle succeeded, want read-only")
	}
}
