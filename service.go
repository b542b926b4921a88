package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// poolMigrator provisions connections for the engine: each call takes one
// connection from the source pool and one from the target pool, runs a
// single migration on them and gives both back.
type poolMigrator struct {
	engine *Engine
	source *sql.DB
	target *pgxpool.Pool
}

// Migrate runs one migration under a fresh run id.
func (m *poolMigrator) Migrate(ctx context.Context, table string) (*MigrationResult, error) {
	runID := uuid.NewString()
	ctx = withRunID(ctx, runID)

	srcConn, err := m.source.Conn(ctx)
	if err != nil {
		return &MigrationResult{RunID: runID, Table: table},
			newMigrationError(KindConnection, table, "connect source", err)
	}
	defer srcConn.Close()

	tgt, err := m.target.Acquire(ctx)
	if err != nil {
		return &MigrationResult{RunID: runID, Table: table},
			newMigrationError(KindConnection, table, "connect target", err)
	}
	defer tgt.Release()

	return m.engine.Migrate(ctx, srcConn, tgt.Conn(), table)
}

// Ping checks both pools.
func (m *poolMigrator) Ping(ctx context.Context) error {
	if err := m.source.PingContext(ctx); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := m.target.Ping(ctx); err != nil {
		return fmt.Errorf("target: %w", err)
	}
	return nil
}

// openConnections opens and pings the source database and the target pool.
func openConnections(ctx context.Context, src SourceDB, cfg *MigrationConfig, log zerolog.Logger) (*sql.DB, *pgxpool.Pool, error) {
	log.Info().Str("source", src.Name()).Msg("connecting to source")
	db, err := src.OpenDB(cfg.Source.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", src.Name(), err)
	}

	log.Info().Msg("connecting to PostgreSQL")
	poolCfg, err := pgxpool.ParseConfig(cfg.Target.DSN)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("parse target dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.Target.MaxConns
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		db.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, pool, nil
}
