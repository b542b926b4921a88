package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

type sqliteSourceDB struct{}

func (s *sqliteSourceDB) Name() string { return "SQLite" }

func (s *sqliteSourceDB) OpenDB(dsn string) (*sql.DB, error) {
	uri, err := sqliteReadOnlyURI(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", uri)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// CatalogName returns table unchanged; SQLite matches names case-insensitively.
func (s *sqliteSourceDB) CatalogName(table string) string { return table }

func (s *sqliteSourceDB) QualifiedTable(table string) string {
	return s.quoteIdentifier(table)
}

func (s *sqliteSourceDB) quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *sqliteSourceDB) TypeMapper() typeMapper { return sqliteTypeMapper() }

// sqliteReadOnlyURI turns a path or file: URI into a read-only file URI.
// In-memory databases are rejected because every connection would see an
// empty database of its own.
func sqliteReadOnlyURI(dsn string) (string, error) {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file::memory:") || strings.Contains(dsn, "mode=memory") {
		return "", fmt.Errorf("in-memory SQLite databases cannot be used as a source")
	}
	if !strings.HasPrefix(dsn, "file:") {
		return "file:" + dsn + "?mode=ro", nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse sqlite URI: %w", err)
	}
	q := u.Query()
	q.Set("mode", "ro")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type sqliteColumnInfo struct {
	cid     int
	name    string
	typ     string
	notNull bool
	pk      int // 1-based position in the primary key, 0 if not a key column
}

func (s *sqliteSourceDB) tableInfo(ctx context.Context, q catalogQuerier, table string) ([]sqliteColumnInfo, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", s.quoteIdentifier(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []sqliteColumnInfo
	for rows.Next() {
		var ci sqliteColumnInfo
		var notNull int
		var dflt sql.NullString
		if err := rows.Scan(&ci.cid, &ci.name, &ci.typ, &notNull, &dflt, &ci.pk); err != nil {
			return nil, err
		}
		ci.notNull = notNull != 0
		infos = append(infos, ci)
	}
	return infos, rows.Err()
}

func (s *sqliteSourceDB) IntrospectColumns(ctx context.Context, q catalogQuerier, table string) ([]Column, error) {
	infos, err := s.tableInfo(ctx, q, table)
	if err != nil {
		return nil, err
	}
	cols := make([]Column, 0, len(infos))
	for _, ci := range infos {
		cols = append(cols, Column{
			Name:       ci.name,
			Type:       ci.typ,
			Nullable:   !ci.notNull,
			OrdinalPos: ci.cid + 1,
		})
	}
	return cols, nil
}

func (s *sqliteSourceDB) IntrospectPrimaryKey(ctx context.Context, q catalogQuerier, table string) ([]string, error) {
	infos, err := s.tableInfo(ctx, q, table)
	if err != nil {
		return nil, err
	}
	return sqlitePrimaryKey(infos), nil
}

func sqlitePrimaryKey(infos []sqliteColumnInfo) []string {
	var keyCols []sqliteColumnInfo
	for _, ci := range infos {
		if ci.pk > 0 {
			keyCols = append(keyCols, ci)
		}
	}
	sort.Slice(keyCols, func(i, j int) bool { return keyCols[i].pk < keyCols[j].pk })

	var pk []string
	for _, ci := range keyCols {
		pk = append(pk, ci.name)
	}
	return pk
}

func (s *sqliteSourceDB) IntrospectForeignKeys(ctx context.Context, q catalogQuerier, table string) ([]ForeignKey, error) {
	type keyColumn struct {
		id, seq  int
		refTable string
		from     string
		to       sql.NullString // NULL when the key references the parent's primary key implicitly
	}

	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", s.quoteIdentifier(table)))
	if err != nil {
		return nil, err
	}
	var keyCols []keyColumn
	for rows.Next() {
		var kc keyColumn
		var onUpdate, onDelete, match string
		if err := rows.Scan(&kc.id, &kc.seq, &kc.refTable, &kc.from, &kc.to, &onUpdate, &onDelete, &match); err != nil {
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
	sort.SliceStable(keyCols, func(i, j int) bool {
		if keyCols[i].id != keyCols[j].id {
			return keyCols[i].id < keyCols[j].id
		}
		return keyCols[i].seq < keyCols[j].seq
	})

	var fks []ForeignKey
	index := make(map[int]int)
	parents := make(map[string][]sqliteColumnInfo)
	for _, kc := range keyCols {
		parent, ok := parents[kc.refTable]
		if !ok {
			parent, err = s.tableInfo(ctx, q, kc.refTable)
			if err != nil {
				return nil, fmt.Errorf("referenced table %s: %w", kc.refTable, err)
			}
			parents[kc.refTable] = parent
		}

		refColumn := kc.to.String
		if !kc.to.Valid || refColumn == "" {
			parentPK := sqlitePrimaryKey(parent)
			if kc.seq >= len(parentPK) {
				return nil, fmt.Errorf("referenced table %s has no primary key column %d", kc.refTable, kc.seq+1)
			}
			refColumn = parentPK[kc.seq]
		}

		refType, found := "", false
		for _, ci := range parent {
			if strings.EqualFold(ci.name, refColumn) {
				refType, found = ci.typ, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("referenced column %s.%s not found", kc.refTable, refColumn)
		}

		i, ok := index[kc.id]
		if !ok {
			i = len(fks)
			index[kc.id] = i
			fks = append(fks, ForeignKey{
				Name:     fmt.Sprintf("fk_%s_%d", targetName(table), kc.id),
				RefTable: kc.refTable,
			})
		}
		fks[i].Columns = append(fks[i].Columns, kc.from)
		fks[i].RefColumns = append(fks[i].RefColumns, refColumn)
		fks[i].RefTypes = append(fks[i].RefTypes, refType)
	}
	return fks, nil
}
