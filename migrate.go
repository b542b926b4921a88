package main

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"
)

// State is a point in the migration pipeline.
type State int

const (
	StateStart State = iota
	StateFetched
	StateTableCreated
	StateDataCopied
	StateKeysMigrated
	StateDone
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateFetched:
		return "fetched"
	case StateTableCreated:
		return "table_created"
	case StateDataCopied:
		return "data_copied"
	case StateKeysMigrated:
		return "keys_migrated"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MigrationResult reports how far a migration got. It is returned alongside
// the error when a migration fails part way.
type MigrationResult struct {
	RunID    string
	Table    string
	State    State // last state reached
	Empty    bool  // source had no rows; nothing was created
	Rows     int   // rows inserted on the target
	Duration time.Duration
}

// tableNamePattern accepts plain identifiers, including Oracle's $ and #.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$#]*$`)

func validateTableName(table string) error {
	if !tableNamePattern.MatchString(table) || len(table) > 128 {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

// Engine migrates one table per call from a source handle to a target
// handle. It keeps no state between calls.
type Engine struct {
	source        SourceDB
	types         typeMapper
	stmts         statementBuilder
	hooks         hookRunner
	syncSequences bool
	log           zerolog.Logger
	metrics       *metrics
}

func newEngine(src SourceDB, cfg *MigrationConfig, log zerolog.Logger, m *metrics) *Engine {
	return &Engine{
		source:        src,
		types:         src.TypeMapper().withOverrides(cfg.TypeMapping.Overrides),
		stmts:         statementBuilder{schema: cfg.Schema},
		hooks:         hookRunner{hooks: cfg.Hooks, resolve: cfg.resolvePath, schema: cfg.Schema},
		syncSequences: cfg.SyncSequences,
		log:           log,
		metrics:       m,
	}
}

// Migrate copies table from src to dst: fetch rows, create the target table,
// copy the rows, then add the primary key and foreign keys. A source table
// without rows is a successful no-op that leaves the target untouched. The
// first failing step ends the migration with a *MigrationError; work already
// applied to the target is not undone.
func (e *Engine) Migrate(ctx context.Context, src catalogQuerier, dst targetConn, table string) (*MigrationResult, error) {
	start := time.Now()
	res := &MigrationResult{Table: table, State: StateStart}
	if id, ok := runIDFrom(ctx); ok {
		res.RunID = id
	}
	log := e.log.With().Str("table", table).Str("run_id", res.RunID).Logger()

	err := e.run(ctx, log, src, dst, table, res)
	res.Duration = time.Since(start)
	e.metrics.observe(res, err)

	if err != nil {
		log.Error().Err(err).Str("state", res.State.String()).Msg("migration failed")
		return res, err
	}
	log.Info().Int("rows", res.Rows).Bool("empty", res.Empty).
		Dur("elapsed", res.Duration.Round(time.Millisecond)).Msg("migration completed")
	return res, nil
}

func (e *Engine) run(ctx context.Context, log zerolog.Logger, src catalogQuerier, dst targetConn, table string, res *MigrationResult) error {
	if err := validateTableName(table); err != nil {
		return newMigrationError(KindPrecondition, table, "validate", err)
	}
	if err := src.PingContext(ctx); err != nil {
		return newMigrationError(KindConnection, table, "connect source", err)
	}
	if err := dst.Ping(ctx); err != nil {
		return newMigrationError(KindConnection, table, "connect target", err)
	}

	log.Info().Str("source", e.source.Name()).Msg("fetching rows")
	rs, err := fetchRows(ctx, e.source, src, table)
	if err != nil {
		return e.classifyFetchError(ctx, src, table, err)
	}
	res.State = StateFetched

	if rs.Len() == 0 {
		log.Info().Msg("source table is empty, nothing to migrate")
		res.Empty = true
		res.State = StateDone
		return nil
	}
	log.Info().Int("rows", rs.Len()).Msg("rows fetched")

	t, err := inspectTable(ctx, e.source, src, table)
	if err != nil {
		return err
	}
	log.Info().Int("columns", len(t.Columns)).Int("pk_columns", len(t.PrimaryKey)).
		Int("foreign_keys", len(t.ForeignKeys)).Msg("introspected")

	plan, err := planTable(t, e.types)
	if err != nil {
		return newMigrationError(KindPrecondition, table, "create table", err)
	}
	log.Info().Str("target", e.stmts.table(t.Name)).Msg("creating table")
	if err := createTable(ctx, dst, e.stmts, plan); err != nil {
		return err
	}
	res.State = StateTableCreated

	if err := e.hooks.run(ctx, dst, log, "before_data", t.Name); err != nil {
		return err
	}

	log.Info().Int("rows", rs.Len()).Msg("copying data")
	n, err := copyRows(ctx, dst, e.stmts, t.Name, rs)
	res.Rows = n
	if err != nil {
		return err
	}
	res.State = StateDataCopied

	if err := e.hooks.run(ctx, dst, log, "after_data", t.Name); err != nil {
		return err
	}

	log.Info().Strs("columns", t.PrimaryKey).Msg("adding primary key")
	if err := migratePrimaryKey(ctx, dst, e.stmts, t); err != nil {
		return err
	}

	// Sequences are synced before foreign keys so a table kept after a
	// foreign key failure still hands out ids above the copied ones.
	if e.syncSequences {
		if err := syncSequences(ctx, dst, e.stmts, plan); err != nil {
			return err
		}
	}

	if err := e.hooks.run(ctx, dst, log, "before_fk", t.Name); err != nil {
		return err
	}

	log.Info().Int("count", len(t.ForeignKeys)).Msg("adding foreign keys")
	if err := migrateForeignKeys(ctx, dst, e.stmts, t); err != nil {
		return err
	}
	res.State = StateKeysMigrated

	if err := e.hooks.run(ctx, dst, log, "after_all", t.Name); err != nil {
		return err
	}
	res.State = StateDone
	return nil
}

// classifyFetchError turns a failed row fetch into a MigrationError. A table
// the source catalog does not know is a SchemaIntrospectionError; anything
// else is a DataCopyError.
func (e *Engine) classifyFetchError(ctx context.Context, src catalogQuerier, table string, fetchErr error) error {
	cols, err := e.source.IntrospectColumns(ctx, src, table)
	if err == nil && len(cols) == 0 {
		return newMigrationError(KindSchemaIntrospection, table, "introspect columns",
			fmt.Errorf("%w: %v", errTableNotFound, fetchErr))
	}
	return newMigrationError(KindDataCopy, table, "fetch rows", fetchErr)
}

type runIDKey struct{}

// withRunID tags ctx with the id logged and reported for one migration.
func withRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func runIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok
}

// isPartialFailure reports whether err left a table on the target.
func isPartialFailure(res *MigrationResult, err error) bool {
	var me *MigrationError
	return errors.As(err, &me) && res != nil && res.State >= StateTableCreated
}
