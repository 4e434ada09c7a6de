//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"modelsel/internal/model"

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

func (s *SQLiteStore) SaveOrderRun(ctx context.Context, run model.OrderRun) error {
	payload, err := EncodeOrderRun(run)
	if err != nil {
		return err
	}
	return s.saveRun(ctx, run.Summary(), run.VersionedRecord, payload)
}

func (s *SQLiteStore) GetOrderRun(ctx context.Context, id string) (model.OrderRun, bool, error) {
	payload, ok, err := s.loadRun(ctx, id, model.KindOrder)
	if err != nil || !ok {
		return model.OrderRun{}, false, err
	}
	run, err := DecodeOrderRun(payload)
	if err != nil {
		return model.OrderRun{}, false, fmt.Errorf("decode order run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *SQLiteStore) SaveInputsRun(ctx context.Context, run model.InputsRun) error {
	payload, err := EncodeInputsRun(run)
	if err != nil {
		return err
	}
	return s.saveRun(ctx, run.Summary(), run.VersionedRecord, payload)
}

func (s *SQLiteStore) GetInputsRun(ctx context.Context, id string) (model.InputsRun, bool, error) {
	payload, ok, err := s.loadRun(ctx, id, model.KindInputs)
	if err != nil || !ok {
		return model.InputsRun{}, false, err
	}
	run, err := DecodeInputsRun(payload)
	if err != nil {
		return model.InputsRun{}, false, fmt.Errorf("decode inputs run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]model.RunSummary, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, kind, created_at, dataset, seed, iterations, final_selection_error, stopping_condition
		FROM runs
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		var (
			summary   model.RunSummary
			kind      string
			createdAt int64
			condition string
		)
		if err := rows.Scan(&summary.ID, &kind, &createdAt, &summary.Dataset, &summary.Seed, &summary.Iterations, &summary.FinalSelectionError, &condition); err != nil {
			return nil, err
		}
		summary.Kind = model.SearchKind(kind)
		summary.CreatedAt = time.Unix(0, createdAt).UTC()
		summary.StoppingCondition = model.StoppingCondition(condition)
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortSummaries(out)
	return out, nil
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

func (s *SQLiteStore) saveRun(ctx context.Context, summary model.RunSummary, version model.VersionedRecord, payload []byte) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, created_at, dataset, seed, iterations, final_selection_error, stopping_condition, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			created_at = excluded.created_at,
			dataset = excluded.dataset,
			seed = excluded.seed,
			iterations = excluded.iterations,
			final_selection_error = excluded.final_selection_error,
			stopping_condition = excluded.stopping_condition,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, summary.ID, string(summary.Kind), summary.CreatedAt.UnixNano(), summary.Dataset, summary.Seed,
		summary.Iterations, summary.FinalSelectionError, string(summary.StoppingCondition),
		version.SchemaVersion, version.CodecVersion, payload)
	return err
}

func (s *SQLiteStore) loadRun(ctx context.Context, id string, kind model.SearchKind) ([]byte, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE id = ? AND kind = ?`, id, string(kind)).Scan(&payload)
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
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			dataset TEXT NOT NULL,
			seed INTEGER NOT NULL,
			iterations INTEGER NOT NULL,
			final_selection_error REAL NOT NULL,
			stopping_condition TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);
	`)
	return err
}
