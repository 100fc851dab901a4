//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"bcellsim/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run model.RunRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (run_id, clone_id, seed, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			clone_id = excluded.clone_id,
			seed = excluded.seed,
			payload = excluded.payload
	`, run.RunID, run.CloneID, run.Seed, payload)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (model.RunRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.RunRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE run_id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RunRecord{}, false, nil
		}
		return model.RunRecord{}, false, err
	}

	run, err := DecodeRun(payload)
	if err != nil {
		return model.RunRecord{}, false, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return run, true, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]model.RunRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM runs ORDER BY clone_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.RunRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		run, err := DecodeRun(payload)
		if err != nil {
			return nil, fmt.Errorf("decode run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) SaveSequences(ctx context.Context, runID string, records []model.SequenceRecord) error {
	payload, err := EncodeSequences(records)
	if err != nil {
		return err
	}
	return s.savePayload(ctx, "sequences", runID, payload)
}

func (s *SQLiteStore) GetSequences(ctx context.Context, runID string) ([]model.SequenceRecord, bool, error) {
	payload, ok, err := s.getPayload(ctx, "sequences", runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	records, err := DecodeSequences(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode sequences %s: %w", runID, err)
	}
	return records, true, nil
}

func (s *SQLiteStore) SavePopulation(ctx context.Context, runID string, records []model.PopulationRecord) error {
	payload, err := EncodePopulation(records)
	if err != nil {
		return err
	}
	return s.savePayload(ctx, "population", runID, payload)
}

func (s *SQLiteStore) GetPopulation(ctx context.Context, runID string) ([]model.PopulationRecord, bool, error) {
	payload, ok, err := s.getPayload(ctx, "population", runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	records, err := DecodePopulation(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode population %s: %w", runID, err)
	}
	return records, true, nil
}

func (s *SQLiteStore) SaveTrees(ctx context.Context, runID string, trees []model.TreeRecord) error {
	payload, err := EncodeTrees(trees)
	if err != nil {
		return err
	}
	return s.savePayload(ctx, "trees", runID, payload)
}

func (s *SQLiteStore) GetTrees(ctx context.Context, runID string) ([]model.TreeRecord, bool, error) {
	payload, ok, err := s.getPayload(ctx, "trees", runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	trees, err := DecodeTrees(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode trees %s: %w", runID, err)
	}
	return trees, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) savePayload(ctx context.Context, table, runID string, payload []byte) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (run_id, payload)
		VALUES (?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			payload = excluded.payload
	`, table), runID, payload)
	return err
}

func (s *SQLiteStore) getPayload(ctx context.Context, table, runID string) ([]byte, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, fmt.Sprintf(`SELECT payload FROM %s WHERE run_id = ?`, table), runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return payload, true, nil
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			clone_id INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS sequences (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS population (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS trees (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
	`)
	return err
}
