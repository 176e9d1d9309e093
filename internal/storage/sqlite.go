//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"graphbirl/internal/model"

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

func (s *SQLiteStore) SaveInferenceRun(ctx context.Context, run model.InferenceRun) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeInferenceRun(run)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO inference_runs (id, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, run.ID, run.SchemaVersion, run.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetInferenceRun(ctx context.Context, id string) (model.InferenceRun, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.InferenceRun{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM inference_runs WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.InferenceRun{}, false, nil
		}
		return model.InferenceRun{}, false, err
	}

	run, err := DecodeInferenceRun(payload)
	if err != nil {
		return model.InferenceRun{}, false, fmt.Errorf("decode inference run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *SQLiteStore) SaveRewardHistory(ctx context.Context, runID string, rewards [][]float64) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeRewardHistory(rewards)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO reward_history (run_id, payload)
		VALUES (?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			payload = excluded.payload
	`, runID, payload)
	return err
}

func (s *SQLiteStore) GetRewardHistory(ctx context.Context, runID string) ([][]float64, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM reward_history WHERE run_id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	rewards, err := DecodeRewardHistory(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode reward history %s: %w", runID, err)
	}
	return rewards, true, nil
}

func (s *SQLiteStore) SaveChainDiagnostics(ctx context.Context, runID string, diagnostics model.ChainDiagnostics) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeChainDiagnostics(diagnostics)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO chain_diagnostics (run_id, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, runID, diagnostics.SchemaVersion, diagnostics.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) GetChainDiagnostics(ctx context.Context, runID string) (model.ChainDiagnostics, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.ChainDiagnostics{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM chain_diagnostics WHERE run_id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ChainDiagnostics{}, false, nil
		}
		return model.ChainDiagnostics{}, false, err
	}

	diagnostics, err := DecodeChainDiagnostics(payload)
	if err != nil {
		return model.ChainDiagnostics{}, false, fmt.Errorf("decode chain diagnostics %s: %w", runID, err)
	}
	return diagnostics, true, nil
}

func (s *SQLiteStore) ListInferenceRuns(ctx context.Context) ([]model.InferenceRun, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT payload FROM inference_runs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.InferenceRun
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		run, err := DecodeInferenceRun(payload)
		if err != nil {
			return nil, fmt.Errorf("decode inference run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		DELETE FROM inference_runs;
		DELETE FROM reward_history;
		DELETE FROM chain_diagnostics;
	`)
	return err
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
		CREATE TABLE IF NOT EXISTS inference_runs (
			id TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS reward_history (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS chain_diagnostics (
			run_id TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}
