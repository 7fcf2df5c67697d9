// Package bsqlitestore provides the persistent, SQLite-backed [bstore.Storage]
// used by long-running nodes.
//
// Build with the "purego" tag (or without cgo) to use the pure Go driver;
// cgo builds use mattn/go-sqlite3.
package bsqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/braid-engine/braid/bmodels"
	"github.com/golang/snappy"
)

// Store is the SQLite-backed block storage.
type Store struct {
	// The string "purego" or "cgo" depending on build tags.
	BuildType string

	// sqlite transaction locking interacts poorly with a single shared
	// Go connection pool (see https://www.sqlite.org/lang_transaction.html),
	// so reads and writes run on separate pools.
	ro, rw *sql.DB
}

// NewOnDiskStore opens the database file at dbPath,
// creating an empty file first if none exists.
func NewOnDiskStore(ctx context.Context, dbPath string) (*Store, error) {
	dbPath = filepath.Clean(dbPath)
	if err := ensureDBFile(dbPath); err != nil {
		return nil, err
	}

	// mode=rw, not mode=rwc: creation was handled above.
	// Combined with the single-connection write pool,
	// concurrent writers block on the pool instead of
	// surfacing ephemeral "database is locked" errors.
	rwURI := "file:" + dbPath + "?mode=rw"
	roURI := "file:" + dbPath + "?mode=ro"

	return openStore(ctx, rwURI, roURI, true)
}

// ensureDBFile creates an empty file at dbPath if none exists yet,
// since the startup pragmas fail against a missing database file.
func ensureDBFile(dbPath string) error {
	_, err := os.Stat(dbPath)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat path %q: %w", dbPath, err)
	}

	// O_EXCL rather than os.Create, so racing another process
	// to create the file cannot truncate it.
	f, err := os.OpenFile(dbPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create empty database file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close new empty database file: %w", err)
	}

	return nil
}

var inMemStoreCounter atomic.Uint32

// NewInMemStore opens a new in-memory database,
// isolated from every other in-memory store in the process.
func NewInMemStore(ctx context.Context) (*Store, error) {
	// Naming the "file" lets the two pools address the same
	// in-memory database, which also requires the shared cache;
	// a private cache would give every connection its own database.
	// https://www.sqlite.org/uri.html#recognized_query_parameters
	base := fmt.Sprintf(
		"file:blockdb%d?mode=memory&cache=shared",
		inMemStoreCounter.Add(1),
	)

	// _txlock=immediate (honored by both drivers) takes the write lock
	// at the start of every transaction on the write pool.
	// https://www.sqlite.org/lang_transaction.html#deferred_immediate_and_exclusive_transactions
	//
	// Neither driver can mark an in-memory connection as read-only,
	// so the read pool differs only in omitting the txlock directive.
	return openStore(ctx, base+"&_txlock=immediate", base, false)
}

// openStore opens the write and read pools on the given URIs,
// applies the startup pragmas, runs migrations,
// and assembles the Store.
func openStore(ctx context.Context, rwURI, roURI string, onDisk bool) (*Store, error) {
	// sqliteDriverType comes from the sqlitedriver_*.go file
	// matching the build tags.
	rw, err := sql.Open(sqliteDriverType, rwURI)
	if err != nil {
		return nil, fmt.Errorf("error opening read-write database: %w", err)
	}

	// One write connection at a time.
	// With more, the drivers report "table is locked" errors
	// that the busy timeout handler does not clear.
	rw.SetMaxOpenConns(1)

	if onDisk {
		// journal_mode persists in the database file,
		// unlike the other pragmas, and WAL has no effect in memory.
		if _, err := rw.ExecContext(ctx, `PRAGMA journal_mode = WAL`); err != nil {
			return nil, fmt.Errorf("failed to set journal_mode=WAL: %w", err)
		}
	}

	if err := startupPragmas(ctx, rw, true); err != nil {
		return nil, err
	}

	if err := migrate(ctx, rw); err != nil {
		return nil, err
	}

	ro, err := sql.Open(sqliteDriverType, roURI)
	if err != nil {
		return nil, fmt.Errorf("error opening read-only database: %w", err)
	}
	if err := startupPragmas(ctx, ro, false); err != nil {
		return nil, err
	}

	return &Store{
		BuildType: sqliteBuildType,

		rw: rw,
		ro: ro,
	}, nil
}

// startupPragmas applies the non-persistent per-pool pragmas.
func startupPragmas(ctx context.Context, db *sql.DB, writes bool) error {
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON;`); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if !writes {
		return nil
	}

	// sqlite recommends this form of the optimize pragma once
	// at the start of any long-lived connection.
	// https://www.sqlite.org/lang_analyze.html#periodically_run_pragma_optimize_
	if _, err := db.ExecContext(ctx, `PRAGMA optimize(0x10002);`); err != nil {
		return fmt.Errorf("failed to run startup PRAGMA optimize: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	var errs []error
	if err := s.ro.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing read-only database: %w", err))
	}
	if err := s.rw.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing read-write database: %w", err))
	}

	return errors.Join(errs...)
}

func (s *Store) StoreBlock(ctx context.Context, block bmodels.Block) error {
	raw, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("failed to encode block %s: %w", block.ID(), err)
	}
	payload := snappy.Encode(nil, raw)

	slot := block.Slot()
	if _, err := s.rw.ExecContext(
		ctx,
		`INSERT INTO blocks(id, slot_period, slot_thread, payload) VALUES($1, $2, $3, $4)`,
		block.ID().Bytes(), slot.Period, slot.Thread, payload,
	); err != nil {
		if isPrimaryKeyConstraintError(err) {
			// Already stored; StoreBlock is idempotent by ID.
			return nil
		}
		return fmt.Errorf("failed to insert block %s: %w", block.ID(), err)
	}

	return nil
}

func (s *Store) Block(ctx context.Context, id bmodels.BlockID) (bmodels.Block, bool, error) {
	var payload []byte
	err := s.ro.QueryRowContext(
		ctx,
		`SELECT payload FROM blocks WHERE id = $1`,
		id.Bytes(),
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bmodels.Block{}, false, nil
		}
		return bmodels.Block{}, false, fmt.Errorf("failed to select block %s: %w", id, err)
	}

	raw, err := snappy.Decode(nil, payload)
	if err != nil {
		return bmodels.Block{}, false, fmt.Errorf("failed to decompress block %s: %w", id, err)
	}

	var block bmodels.Block
	if err := json.Unmarshal(raw, &block); err != nil {
		return bmodels.Block{}, false, fmt.Errorf("failed to decode block %s: %w", id, err)
	}

	return block, true, nil
}

func (s *Store) HasBlock(ctx context.Context, id bmodels.BlockID) (bool, error) {
	var n int
	err := s.ro.QueryRowContext(
		ctx,
		`SELECT COUNT(id) FROM blocks WHERE id = $1`,
		id.Bytes(),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to count block %s: %w", id, err)
	}

	return n > 0, nil
}

func (s *Store) BlockIDs(ctx context.Context) ([]bmodels.BlockID, error) {
	rows, err := s.ro.QueryContext(ctx, `SELECT id FROM blocks`)
	if err != nil {
		return nil, fmt.Errorf("failed to select block ids: %w", err)
	}
	defer rows.Close()

	var ids []bmodels.BlockID
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan block id: %w", err)
		}

		var id bmodels.BlockID
		if len(raw) != len(id) {
			return nil, fmt.Errorf("invalid block id length %d in database", len(raw))
		}
		copy(id[:], raw)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failure iterating block ids: %w", err)
	}

	return ids, nil
}

func (s *Store) PruneBlocks(ctx context.Context, ids []bmodels.BlockID) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.rw.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(
			ctx,
			`DELETE FROM blocks WHERE id = $1`,
			id.Bytes(),
		); err != nil {
			return fmt.Errorf("failed to delete block %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}

	return nil
}
