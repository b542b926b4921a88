package main

import (
	"context"
	"testing"
)

func TestIsTextualSourceType(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"DECIMAL", true},
		{"decimal", true},
		{"VARCHAR", true},
		{"NUMBER", true},
		{"VARCHAR(20)", true},
		{"BLOB", false},
		{"varbinary", false},
		{"VARBINARY(16)", false},
		{"RAW", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isTextualSourceType(tt.name); got != tt.want {
			t.Errorf("isTextualSourceType(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFetchRows_TextualBytesBecomeStrings(t *testing.T) {
	db := newSQLiteSource(t,
		`CREATE TABLE prices (amount DECIMAL(10,2), payload BLOB)`,
		`INSERT INTO prices VALUES (CAST('12.50' AS BLOB), X'00FF')`,
	)

	rs, err := fetchRows(context.Background(), &sqliteSourceDB{}, db, "prices")
	if err != nil {
		t.Fatalf("fetchRows() error: %v", err)
	}
	if rs.Len() != 1 {
		t.Fatalf("rows = %d, want 1", rs.Len())
	}
	if got, ok := rs.Rows[0][0].(string); !ok || got != "12.50" {
		t.Errorf("amount = %#v, want string 12.50", rs.Rows[0][0])
	}
	if got, ok := rs.Rows[0][1].([]byte); !ok || len(got) != 2 || got[1] != 0xFF {
		t.Errorf("payload = %#v, want raw bytes", rs.Rows[0][1])
	}
}
