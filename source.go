package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// catalogQuerier is the source handle the engine reads through. Both
// *sql.DB and a single *sql.Conn satisfy it.
type catalogQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PingContext(ctx context.Context) error
}

// targetExecutor runs one statement on the target.
type targetExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// targetConn is the target handle the engine writes through; *pgx.Conn
// satisfies it.
type targetConn interface {
	targetExecutor
	Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error)
	Deallocate(ctx context.Context, name string) error
	Ping(ctx context.Context) error
}

// SourceDB abstracts source database operations so tableferry can read from
// multiple source engines (Oracle, MySQL, SQLite).
type SourceDB interface {
	// Name returns a human-readable name for the source ("Oracle", "MySQL").
	Name() string

	// OpenDB opens a database connection with driver-specific options.
	OpenDB(dsn string) (*sql.DB, error)

	// CatalogName returns the table name in the case the catalog stores it.
	CatalogName(table string) string

	// QualifiedTable returns the quoted source table reference used by SELECT.
	QualifiedTable(table string) string

	// IntrospectColumns lists the table's columns in ordinal order.
	IntrospectColumns(ctx context.Context, q catalogQuerier, table string) ([]Column, error)

	// IntrospectPrimaryKey lists the primary-key columns in key position order.
	IntrospectPrimaryKey(ctx context.Context, q catalogQuerier, table string) ([]string, error)

	// IntrospectForeignKeys lists imported keys, with the referenced column types resolved.
	IntrospectForeignKeys(ctx context.Context, q catalogQuerier, table string) ([]ForeignKey, error)

	// TypeMapper returns the source dialect's type mapping table.
	TypeMapper() typeMapper
}

// newSourceDB returns a SourceDB implementation for the given source type.
func newSourceDB(cfg SourceConfig) (SourceDB, error) {
	switch cfg.Type {
	case "oracle":
		return &oracleSourceDB{owner: cfg.Owner}, nil
	case "mysql":
		return &mysqlSourceDB{}, nil
	case "sqlite":
		return &sqliteSourceDB{}, nil
	default:
		return nil, fmt.Errorf("unsupported source type %q (must be oracle, mysql or sqlite)", cfg.Type)
	}
}

// collectStringRows is a helper to collect single-column string results.
func collectStringRows(ctx context.Context, q catalogQuerier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
