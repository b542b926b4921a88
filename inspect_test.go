package main

import (
	"context"
	"errors"
	"testing"
)

// stubSource serves a fixed catalog; only the introspection methods matter.
type stubSource struct {
	sqliteSourceDB
	cols   []Column
	pk     []string
	fks    []ForeignKey
	colErr error
	fkErr  error
}

func (s *stubSource) IntrospectColumns(context.Context, catalogQuerier, string) ([]Column, error) {
	return append([]Column(nil), s.cols...), s.colErr
}

func (s *stubSource) IntrospectPrimaryKey(context.Context, catalogQuerier, string) ([]string, error) {
	return s.pk, nil
}

func (s *stubSource) IntrospectForeignKeys(context.Context, catalogQuerier, string) ([]ForeignKey, error) {
	return s.fks, s.fkErr
}

func TestInspectTable(t *testing.T) {
	src := &stubSource{
		cols: []Column{
			{Name: "ID", Type: "NUMBER", OrdinalPos: 1},
			{Name: "NAME", Type: "VARCHAR2", Nullable: true, OrdinalPos: 2},
			{Name: "ID", Type: "NUMBER", OrdinalPos: 1},
		},
		pk: []string{"ID"},
	}
	tbl, err := inspectTable(context.Background(), src, nil, "people")
	if err != nil {
		t.Fatalf("inspectTable() error: %v", err)
	}
	if len(tbl.Columns) != 2 || tbl.Columns[0].Name != "ID" || tbl.Columns[1].Name != "NAME" {
		t.Errorf("columns = %+v, want ID, NAME once each", tbl.Columns)
	}
	if tbl.Name != "people" {
		t.Errorf("Name = %q", tbl.Name)
	}
}

func TestInspectTable_Errors(t *testing.T) {
	boom := errors.New("ORA-00942: table or view does not exist")
	tests := []struct {
		name string
		src  *stubSource
		want error
	}{
		{"no columns", &stubSource{}, errTableNotFound},
		{"column query fails", &stubSource{colErr: boom}, boom},
		{"foreign key query fails", &stubSource{cols: []Column{{Name: "A"}}, fkErr: boom}, boom},
		{"primary key column missing", &stubSource{cols: []Column{{Name: "A"}}, pk: []string{"B"}}, nil},
		{"foreign key column missing", &stubSource{
			cols: []Column{{Name: "A"}},
			fks:  []ForeignKey{{Name: "FK", Columns: []string{"B"}, RefColumns: []string{"X"}, RefTypes: []string{"NUMBER"}}},
		}, nil},
		{"foreign key lists mismatched", &stubSource{
			cols: []Column{{Name: "A"}},
			fks:  []ForeignKey{{Name: "FK", Columns: []string{"A"}, RefColumns: []string{"X", "Y"}}},
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := inspectTable(context.Background(), tt.src, nil, "T")
			if tbl != nil {
				t.Errorf("inspectTable() returned a descriptor alongside error %v", err)
			}
			requireKind(t, err, KindSchemaIntrospection)
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v in chain", err, tt.want)
			}
		})
	}
}

func TestReferencedType(t *testing.T) {
	tbl := ordersTable()
	if typ, ok := tbl.referencedType("CUSTOMER_ID"); !ok || typ != "NUMBER" {
		t.Errorf("referencedType(CUSTOMER_ID) = %q, %v", typ, ok)
	}
	if _, ok := tbl.referencedType("STATUS"); ok {
		t.Error("referencedType(STATUS) reported a foreign key")
	}
}
