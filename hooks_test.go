package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{"single statement", "SELECT 1", []string{"SELECT 1"}},
		{"trailing semicolons and blanks", "SELECT 1;; ;SELECT 2;  ", []string{"SELECT 1", "SELECT 2"}},
		{"empty input", "   \n\t  ", nil},
		{
			"semicolon inside literal with escaped quote",
			"UPDATE t SET note = 'it''s; fine'; SELECT 2",
			[]string{"UPDATE t SET note = 'it''s; fine'", "SELECT 2"},
		},
		{
			"line comment kept with its statement",
			"-- rebuild stats; quickly\nANALYZE orders; SELECT 1",
			[]string{"-- rebuild stats; quickly\nANALYZE orders", "SELECT 1"},
		},
		{
			"dollar-quoted body",
			"CREATE FUNCTION f() RETURNS void AS $$ BEGIN PERFORM 1; END; $$ LANGUAGE plpgsql; SELECT 1;",
			[]string{"CREATE FUNCTION f() RETURNS void AS $$ BEGIN PERFORM 1; END; $$ LANGUAGE plpgsql", "SELECT 1"},
		},
		{
			"tagged dollar-quoted body",
			"DO $fn$ BEGIN RAISE NOTICE 'x;y'; END; $fn$; SELECT 2;",
			[]string{"DO $fn$ BEGIN RAISE NOTICE 'x;y'; END; $fn$", "SELECT 2"},
		},
		{
			"positional parameter is not a dollar tag",
			"PREPARE p AS SELECT $1; EXECUTE p(1)",
			[]string{"PREPARE p AS SELECT $1", "EXECUTE p(1)"},
		},
		{
			"nested block comment",
			"/* outer; /* inner; */ done; */ SELECT 1; SELECT 2;",
			[]string{"/* outer; /* inner; */ done; */ SELECT 1", "SELECT 2"},
		},
		{
			"quoted identifier",
			`SELECT "a;b" FROM t; SELECT 2;`,
			[]string{`SELECT "a;b" FROM t`, "SELECT 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitStatements(tt.sql)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitStatements(%q) =\n  %q\nwant:\n  %q", tt.sql, got, tt.want)
			}
		})
	}
}

func TestHookRunner(t *testing.T) {
	dir := t.TempDir()
	writeFile := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	writeFile("grants.sql", "GRANT SELECT ON {{schema}}.{{table}} TO reporting;\nANALYZE {{schema}}.{{table}};\n")
	writeFile("bad.sql", "SELECT 1; SELEC 2;")

	h := hookRunner{
		hooks: HooksConfig{
			AfterAll: []string{"grants.sql"},
			BeforeFk: []string{"bad.sql"},
		},
		resolve: func(p string) string { return filepath.Join(dir, p) },
		schema:  "sales",
	}
	ctx := context.Background()

	dst := &fakeTarget{}
	if err := h.run(ctx, dst, zerolog.Nop(), "after_all", "ORDERS"); err != nil {
		t.Fatalf("run(after_all) error: %v", err)
	}
	want := []string{"GRANT SELECT ON sales.orders TO reporting", "ANALYZE sales.orders"}
	if !reflect.DeepEqual(dst.stmts, want) {
		t.Errorf("executed %q, want %q", dst.stmts, want)
	}

	dst = &fakeTarget{}
	if err := h.run(ctx, dst, zerolog.Nop(), "before_data", "ORDERS"); err != nil || len(dst.stmts) != 0 {
		t.Errorf("phase without hooks: err=%v stmts=%q", err, dst.stmts)
	}

	dst = &fakeTarget{failOn: func(sql string, _ []any) error {
		if strings.HasPrefix(sql, "SELEC ") {
			return errors.New(`syntax error at or near "SELEC"`)
		}
		return nil
	}}
	err := h.run(ctx, dst, zerolog.Nop(), "before_fk", "ORDERS")
	me := requireKind(t, err, KindDDLExecution)
	if me.Step != "hooks before_fk" || !strings.Contains(err.Error(), "statement 2") {
		t.Errorf("error = %v", err)
	}
}
