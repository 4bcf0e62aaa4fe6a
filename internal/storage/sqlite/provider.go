// Package sqlite implements a StorageProvider that uses SQLite as the query
// engine and a JSONL file as the source of truth.
//
// On Open the database file is recreated and filled from <namespace>.jsonl.
// Every mutation changes the row inside a transaction, rewrites the JSONL
// file atomically and only then commits, so a failed write leaves neither
// copy changed.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/fsutil"
	"github.com/mesh-intelligence/concepts/internal/logger"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

// record is one JSONL line.
type record struct {
	ID        string `json:"id"`
	Data      string `json:"data"`
	UpdatedAt string `json:"updated_at"`
}

// Provider is the SQLite-backed StorageProvider.
type Provider struct {
	mu        sync.RWMutex
	db        *sql.DB
	jsonlPath string
	log       *zap.SugaredLogger
}

// Open creates dataDir if needed, rebuilds <namespace>.db from
// <namespace>.jsonl and returns a ready provider.
func Open(ctx context.Context, dataDir, namespace string) (*Provider, error) {
	if dataDir == "" {
		return nil, types.ErrDataDirEmpty
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create data dir %s", dataDir)
	}

	dbPath := filepath.Join(dataDir, namespace+".db")
	// The JSONL file is authoritative; start from a fresh database.
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// A single connection serialises writers inside SQLite as well.
	db.SetMaxOpenConns(1)

	for _, ddl := range schemaDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "apply schema")
		}
	}

	p := newProvider(db, filepath.Join(dataDir, namespace+".jsonl"))
	if err := p.load(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "load JSONL")
	}
	return p, nil
}

func newProvider(db *sql.DB, jsonlPath string) *Provider {
	return &Provider{
		db:        db,
		jsonlPath: jsonlPath,
		log:       logger.ComponentLogger("storage.sqlite"),
	}
}

// load copies every JSONL record into the items table. Records without an
// id are skipped.
func (p *Provider) load(ctx context.Context) error {
	raws, err := fsutil.ReadJSONL(p.jsonlPath)
	if err != nil {
		return err
	}
	loaded := 0
	for _, raw := range raws {
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil || rec.ID == "" {
			p.log.Warnw("Skipping malformed JSONL record", logger.FieldFile, p.jsonlPath)
			continue
		}
		if rec.UpdatedAt == "" {
			rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
		}
		if _, err := p.db.ExecContext(ctx, stmtUpsert, rec.ID, rec.Data, rec.UpdatedAt); err != nil {
			return errors.Wrapf(err, "loading item %s", rec.ID)
		}
		loaded++
	}
	p.log.Debugw("Loaded items", logger.FieldFile, p.jsonlPath, logger.FieldCount, loaded)
	return nil
}

// Store upserts data under id and persists the JSONL file. The handle is id.
func (p *Provider) Store(ctx context.Context, id, data string) (string, error) {
	if id == "" {
		return "", types.ErrInvalidID
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.mutate(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC().Format(time.RFC3339Nano)
		if _, err := tx.ExecContext(ctx, stmtUpsert, id, data, now); err != nil {
			return errors.Wrapf(err, "upserting item %s", id)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Retrieve returns the data stored under id.
func (p *Provider) Retrieve(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", types.ErrInvalidID
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	var data string
	err := p.db.QueryRowContext(ctx, stmtSelectData, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.Wrapf(types.ErrNotFound, "no data for id %s", id)
	}
	if err != nil {
		return "", errors.Wrapf(err, "reading item %s", id)
	}
	return data, nil
}

// Update aliases Store.
func (p *Provider) Update(ctx context.Context, id, data string) error {
	_, err := p.Store(ctx, id, data)
	return err
}

// Delete removes id and persists the JSONL file.
func (p *Provider) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.mutate(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, stmtDelete, id)
		if err != nil {
			return errors.Wrapf(err, "deleting item %s", id)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "rows affected")
		}
		if n == 0 {
			return errors.Wrapf(types.ErrNotFound, "no data for id %s", id)
		}
		return nil
	})
}

// mutate runs change in a transaction, rewrites the JSONL file from the
// transaction's view and commits only once the file is in place. Any
// failure rolls the row change back. The caller must hold the write lock.
func (p *Provider) mutate(ctx context.Context, change func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	if err := change(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := p.persistJSONL(ctx, tx); err != nil {
		tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// ListAll returns every id in ascending order.
func (p *Provider) ListAll(ctx context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rows, err := p.db.QueryContext(ctx, stmtSelectIDs)
	if err != nil {
		return nil, errors.Wrap(err, "listing items")
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scanning item id")
		}
		ids = append(ids, id)
	}
	return ids, errors.Wrap(rows.Err(), "listing items")
}

// Close releases the database handle.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

// persistJSONL rewrites the JSONL file from the items table as seen by tx.
func (p *Provider) persistJSONL(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, stmtSelectAll)
	if err != nil {
		return errors.Wrap(err, "reading items for JSONL")
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var rec record
		if err := rows.Scan(&rec.ID, &rec.Data, &rec.UpdatedAt); err != nil {
			return errors.Wrap(err, "scanning item for JSONL")
		}
		b, err := json.Marshal(rec)
		if err != nil {
			return errors.Wrapf(err, "encoding item %s", rec.ID)
		}
		records = append(records, b)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "reading items for JSONL")
	}
	return fsutil.WriteJSONL(p.jsonlPath, records)
}
