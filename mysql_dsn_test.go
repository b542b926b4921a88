package main

import (
	"strings"
	"testing"
)

func TestMySQLDSNWithReadOptions(t *testing.T) {
	got, err := mysqlDSNWithReadOptions("root:root@tcp(127.0.0.1:3306)/sales")
	if err != nil {
		t.Fatalf("mysqlDSNWithReadOptions() error: %v", err)
	}
	for _, want := range []string{"/sales", "parseTime=true", "interpolateParams=true"} {
		if !strings.Contains(got, want) {
			t.Errorf("dsn %q missing %q", got, want)
		}
	}
}

func TestMySQLDSNWithReadOptions_RequiresDatabase(t *testing.T) {
	for _, dsn := range []string{"user:pass@tcp(host:3306)/", "://bad-dsn"} {
		if _, err := mysqlDSNWithReadOptions(dsn); err == nil {
			t.Errorf("mysqlDSNWithReadOptions(%q) expected error", dsn)
		}
	}
}

func TestMySQLSourceOpenDB_InvalidDSN(t *testing.T) {
	src := &mysqlSourceDB{}
	if _, err := src.OpenDB("://bad-dsn"); err == nil {
		t.Fatal("expected error for invalid DSN")
	}
}

func TestMySQLSourceQualifiedTable(t *testing.T) {
	src := &mysqlSourceDB{}
	got := src.QualifiedTable("my`table")
	want := "`my``table`"
	if got != want {
		t.Errorf("QualifiedTable() = %q, want %q", got, want)
	}
	if src.CatalogName("Orders") != "Orders" {
		t.Error("CatalogName should keep MySQL table names as given")
	}
}
