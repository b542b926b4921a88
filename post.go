package main

import (
	"context"
	"errors"
	"fmt"
)

// execSQL runs a single statement and wraps a failure with the SQL text.
func execSQL(ctx context.Context, target targetExecutor, desc, query string) error {
	if _, err := target.Exec(ctx, query); err != nil {
		return fmt.Errorf("%s: %w\nSQL: %s", desc, err, query)
	}
	return nil
}

// migratePrimaryKey adds the PRIMARY KEY constraint with columns in the
// order the source catalog reported them.
func migratePrimaryKey(ctx context.Context, target targetExecutor, b statementBuilder, t *Table) error {
	q, err := b.addPrimaryKey(t.Name, t.PrimaryKey)
	if err != nil {
		return newMigrationError(KindPrecondition, t.Name, "primary key", err)
	}
	if err := execSQL(ctx, target, t.Name+" PK", q); err != nil {
		return newMigrationError(KindDDLExecution, t.Name, "primary key", err)
	}
	return nil
}

// migrateForeignKeys adds each foreign key with its own statement. Every key
// is attempted even when an earlier one fails; the failures are reported
// together afterwards.
func migrateForeignKeys(ctx context.Context, target targetExecutor, b statementBuilder, t *Table) error {
	var errs []error
	for _, fk := range t.ForeignKeys {
		q, err := b.addForeignKey(t.Name, fk)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := execSQL(ctx, target, fk.Name, q); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return newMigrationError(KindDDLExecution, t.Name, "foreign keys", errors.Join(errs...))
	}
	return nil
}

// syncSequences moves each SERIAL column's sequence past the copied values.
func syncSequences(ctx context.Context, target targetExecutor, b statementBuilder, p *tablePlan) error {
	for _, col := range p.serialColumns() {
		q := b.syncSequence(p.Table.Name, col)
		if err := execSQL(ctx, target, col+" sequence", q); err != nil {
			return newMigrationError(KindDDLExecution, p.Table.Name, "sequences", err)
		}
	}
	return nil
}
