package main

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a migration stopped.
type ErrorKind string

const (
	KindConnection          ErrorKind = "ConnectionError"
	KindSchemaIntrospection ErrorKind = "SchemaIntrospectionError"
	KindDDLExecution        ErrorKind = "DDLExecutionError"
	KindDataCopy            ErrorKind = "DataCopyError"
	KindPrecondition        ErrorKind = "PreconditionError"
)

// MigrationError is the terminal failure of a migration. It carries the
// table, the pipeline step that failed and the underlying driver error.
type MigrationError struct {
	Kind  ErrorKind
	Table string
	Step  string
	Err   error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migrate %s: %s: %s: %v", e.Table, e.Step, e.Kind, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

func newMigrationError(kind ErrorKind, table, step string, err error) *MigrationError {
	return &MigrationError{Kind: kind, Table: table, Step: step, Err: err}
}

// errorKindOf extracts the kind of a MigrationError anywhere in err's chain.
func errorKindOf(err error) (ErrorKind, bool) {
	var me *MigrationError
	if errors.As(err, &me) {
		return me.Kind, true
	}
	return "", false
}
