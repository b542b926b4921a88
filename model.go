package main

// Column represents a single column as reported by the source catalog.
type Column struct {
	Name       string // catalog casing, e.g. "CUSTOMER_ID" on Oracle
	Type       string // source type name, e.g. "NUMBER", "varchar"
	Nullable   bool
	OrdinalPos int
}

// ForeignKey represents one imported-key constraint of the source table.
// Columns, RefColumns and RefTypes are parallel: entry i of each describes
// the same key column.
type ForeignKey struct {
	Name       string
	Columns    []string // local source column names
	RefTable   string   // referenced source table name
	RefColumns []string // referenced source column names
	RefTypes   []string // source type of each referenced column
}

// Table holds the introspected definition of the source table. It is built
// once per migration and not modified afterwards.
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  []string // column names in key position order
	ForeignKeys []ForeignKey
}

// hasColumn reports whether name is one of the table's columns.
func (t *Table) hasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (t *Table) isPrimaryKey(name string) bool {
	for _, c := range t.PrimaryKey {
		if c == name {
			return true
		}
	}
	return false
}

// referencedType returns the referenced column's source type when name is a
// foreign-key source column. The first constraint listing the column wins.
func (t *Table) referencedType(name string) (string, bool) {
	for _, fk := range t.ForeignKeys {
		for i, c := range fk.Columns {
			if c == name && i < len(fk.RefTypes) {
				return fk.RefTypes[i], true
			}
		}
	}
	return "", false
}

// RowSet is the fully materialised content of the source table. Every row
// holds one value per entry of Columns, in the same order.
type RowSet struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of fetched rows.
func (rs *RowSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}
