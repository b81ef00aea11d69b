// Package sqlite provides a SQLite-backed record store. Transactions run
// against the in-memory store; committed state is snapshotted to a records
// table with one JSON payload per record type.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"deepcopy/internal/infra/persistence/memory"
	"deepcopy/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.PersistentStore = (*Store)(nil)

const defaultPath = "deepcopy.db"

// Store persists the in-memory state to a single SQLite table as JSON blobs.
// It snapshots the full state after every successful transaction.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (or creates) the database at path and hydrates the store
// from any snapshot found there.
func NewStore(path string, schema memory.Schema, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS records (
		record_type TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create records table: %w", err)
	}
	s := &Store{Store: memory.NewStore(schema, engine), db: db, path: path}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT record_type, payload FROM records`)
	if err != nil {
		return fmt.Errorf("select records: %w", err)
	}
	defer func() { _ = rows.Close() }()
	snapshot := memory.Snapshot{Records: make(map[domain.RecordType][]domain.Record)}
	for rows.Next() {
		var (
			recordType string
			payload    []byte
		)
		if err := rows.Scan(&recordType, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		var records []domain.Record
		if err := json.Unmarshal(payload, &records); err != nil {
			return fmt.Errorf("decode %s: %w", recordType, err)
		}
		snapshot.Records[domain.RecordType(recordType)] = records
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate records: %w", err)
	}
	if len(snapshot.Records) == 0 {
		return nil
	}
	s.ImportState(snapshot)
	return nil
}

func (s *Store) persist(ctx context.Context) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for recordType, records := range snapshot.Records {
		data, err := json.Marshal(records)
		if err != nil {
			return fmt.Errorf("encode %s: %w", recordType, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO records(record_type,payload) VALUES(?,?) ON CONFLICT(record_type) DO UPDATE SET payload=excluded.payload`, string(recordType), data); err != nil {
			return fmt.Errorf("upsert %s: %w", recordType, err)
		}
	}
	return tx.Commit()
}

// RunInTransaction applies the provided function within a transaction, then snapshots state to SQLite if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(context.WithoutCancel(ctx)); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
