package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	errNoColumns    = errors.New("table descriptor has no columns")
	errNoPrimaryKey = errors.New("source table has no primary key")
)

// tablePlan pairs the source descriptor with the target type of each column.
type tablePlan struct {
	Table *Table
	Types []string // parallel to Table.Columns
}

// planTable resolves the target type of every column. Key columns go
// through typeMapper.KeyType; a foreign-key column uses the type of the
// column it references, never its own declared type.
func planTable(t *Table, types typeMapper) (*tablePlan, error) {
	if len(t.Columns) == 0 {
		return nil, errNoColumns
	}
	p := &tablePlan{Table: t, Types: make([]string, len(t.Columns))}
	for i, col := range t.Columns {
		switch refType, isFK := t.referencedType(col.Name); {
		case isFK:
			p.Types[i] = types.KeyType(refType)
		case t.isPrimaryKey(col.Name):
			p.Types[i] = types.KeyType(col.Type)
		default:
			p.Types[i] = types.Map(col.Type)
		}
	}
	return p, nil
}

// serialColumns returns the source names of the columns given an
// auto-incrementing type.
func (p *tablePlan) serialColumns() []string {
	var cols []string
	for i, typ := range p.Types {
		if isSerialType(typ) {
			cols = append(cols, p.Table.Columns[i].Name)
		}
	}
	return cols
}

// statementBuilder renders every statement run against the target. It owns
// identifier folding and quoting so callers never concatenate raw names.
type statementBuilder struct {
	schema string // target schema; empty means unqualified
}

// table returns the qualified, quoted target name of a source table.
func (b statementBuilder) table(name string) string {
	if b.schema == "" {
		return pgIdent(targetName(name))
	}
	return pgIdent(b.schema) + "." + pgIdent(targetName(name))
}

// createTable produces the CREATE TABLE statement for a plan. No key
// constraints are emitted; those are added after the data is copied.
func (b statementBuilder) createTable(p *tablePlan) (string, error) {
	if p == nil || len(p.Table.Columns) == 0 {
		return "", errNoColumns
	}
	seen := make(map[string]bool, len(p.Table.Columns))

	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE %s (\n", b.table(p.Table.Name))
	for i, col := range p.Table.Columns {
		name := targetName(col.Name)
		if seen[name] {
			return "", fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true

		fmt.Fprintf(&sb, "  %s %s", pgIdent(name), p.Types[i])
		if !col.Nullable && !isSerialType(p.Types[i]) {
			sb.WriteString(" NOT NULL")
		}
		if i < len(p.Table.Columns)-1 {
			sb.WriteByte(',')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(")")
	return sb.String(), nil
}

// insert produces a positional INSERT for cols in exactly the given order.
func (b statementBuilder) insert(table string, cols []string) (string, error) {
	if len(cols) == 0 {
		return "", errNoColumns
	}
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		b.table(table), quotedColumnList(cols), strings.Join(placeholders, ", ")), nil
}

func (b statementBuilder) addPrimaryKey(table string, cols []string) (string, error) {
	if len(cols) == 0 {
		return "", errNoPrimaryKey
	}
	return fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s)", b.table(table), quotedColumnList(cols)), nil
}

func (b statementBuilder) addForeignKey(table string, fk ForeignKey) (string, error) {
	if len(fk.Columns) == 0 || len(fk.Columns) != len(fk.RefColumns) {
		return "", fmt.Errorf("foreign key %q: %d local columns, %d referenced columns",
			fk.Name, len(fk.Columns), len(fk.RefColumns))
	}
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s)",
		b.table(table),
		pgIdent(targetName(fk.Name)),
		quotedColumnList(fk.Columns),
		b.table(fk.RefTable),
		quotedColumnList(fk.RefColumns),
	), nil
}

// syncSequence moves the sequence owned by a SERIAL column past the largest
// copied value so the next generated id does not collide.
func (b statementBuilder) syncSequence(table, col string) string {
	qualified := b.table(table)
	column := pgIdent(targetName(col))
	return fmt.Sprintf("SELECT setval(pg_get_serial_sequence(%s, %s), COALESCE(MAX(%s), 0) + 1, false) FROM %s",
		pgLiteral(qualified), pgLiteral(targetName(col)), column, qualified)
}

// createTable builds and runs the CREATE TABLE statement for the plan.
func createTable(ctx context.Context, target targetExecutor, b statementBuilder, p *tablePlan) error {
	ddl, err := b.createTable(p)
	if err != nil {
		return newMigrationError(KindPrecondition, p.Table.Name, "create table", err)
	}
	if _, err := target.Exec(ctx, ddl); err != nil {
		return newMigrationError(KindDDLExecution, p.Table.Name, "create table",
			fmt.Errorf("%w\nDDL: %s", err, ddl))
	}
	return nil
}
