// Curator - Media Catalog Read Accelerator and Access-Control Overlay
// Copyright 2026 Curator Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curator-app/curator

// Package database implements the DuckDB mirror store: entity tables keyed
// by (id, instance), junction tables, sync state, and the per-user overlay
// and exclusion index. All mutation of mirrored entities goes through the
// sync engine; derivation and exclusion packages reach the connection via
// Conn().
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/curator-app/curator/internal/config"
	"github.com/curator-app/curator/internal/logging"
)

// Transaction timeouts per operation class. The exclusion swap and hide
// cascades are short writes; sync batches delete junctions in bulk; clearing
// an instance touches every table.
const (
	SwapTxTimeout     = 30 * time.Second
	BatchTxTimeout    = 60 * time.Second
	ClearDataTimeout  = 120 * time.Second
	schemaOpTimeout   = 60 * time.Second
	checkpointTimeout = 30 * time.Second
)

// DB wraps the DuckDB connection and provides mirror data access.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens the database file, creating parent directories as needed, and
// initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	if dbDir := filepath.Dir(cfg.Path); dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	// Auto-install/auto-load disabled to prevent hangs in restricted
	// network environments.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return db, nil
}

// Conn returns the underlying SQL connection. Used by the derivation,
// exclusion, and query packages for direct read/write access.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping checks if the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), checkpointTimeout)
	defer cancel()
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	return db.conn.Close()
}

// Checkpoint forces a WAL flush into the main database file.
func (db *DB) Checkpoint(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, "CHECKPOINT")
	return err
}

func (db *DB) initialize() error {
	if err := db.createTables(); err != nil {
		return err
	}
	return db.createIndexes()
}

// BeginTx starts a transaction with the given timeout. The returned cancel
// must be deferred by the caller.
func (db *DB) BeginTx(ctx context.Context, timeout time.Duration) (*sql.Tx, context.Context, context.CancelFunc, error) {
	txCtx, cancel := context.WithTimeout(ctx, timeout)
	tx, err := db.conn.BeginTx(txCtx, nil)
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, txCtx, cancel, nil
}

// closeQuietly closes a resource and explicitly ignores any error. For
// cleanup in error paths where Close() errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// closeRows closes a rows handle, logging unexpected errors.
func closeRows(rows *sql.Rows) {
	if rows == nil {
		return
	}
	if err := rows.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close rows")
	}
}

// rollbackQuietly rolls back a transaction, ignoring the error returned when
// the transaction already committed.
func rollbackQuietly(tx *sql.Tx) {
	if tx != nil {
		_ = tx.Rollback()
	}
}
