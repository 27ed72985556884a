package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a Store backed by SQLite through modernc.org/sqlite.
type SQLiteStore struct {
	db    *sql.DB
	owned bool
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the schema in db and returns a store using it.
// The caller keeps ownership of db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started INTEGER NOT NULL,
			duration INTEGER NOT NULL,
			stage INTEGER NOT NULL,
			step_id TEXT,
			error_kind TEXT,
			error TEXT,
			steps BLOB
		);
		CREATE INDEX IF NOT EXISTS runs_workflow_started ON runs (workflow_id, started);`,
	)
	if err != nil {
		return fmt.Errorf("init history schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, entry Entry) error {
	steps, err := json.Marshal(entry.Steps)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (run_id, workflow_id, status, started, duration, stage, step_id, error_kind, error, steps)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.WorkflowID,
		string(entry.Status),
		entry.Started.UnixNano(),
		int64(entry.Duration),
		entry.Stage,
		entry.StepID,
		entry.ErrorKind,
		entry.Error,
		steps,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return nil
}

const selectRuns = `SELECT run_id, workflow_id, status, started, duration, stage, step_id, error_kind, error, steps FROM runs`

func (s *SQLiteStore) Get(ctx context.Context, runID string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE run_id = ?`, runID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrRunNotFound
	}
	return entry, err
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := selectRuns
	var args []any
	if filter.WorkflowID != "" {
		query += ` WHERE workflow_id = ?`
		args = append(args, filter.WorkflowID)
	}
	query += ` ORDER BY started DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	return entries, nil
}

// Close closes the database when the store opened it.
func (s *SQLiteStore) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e                      Entry
		status                 string
		started, duration      int64
		stepID, errorKind, msg sql.NullString
		steps                  []byte
	)
	err := row.Scan(&e.RunID, &e.WorkflowID, &status, &started, &duration, &e.Stage, &stepID, &errorKind, &msg, &steps)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	e.Status = Status(status)
	e.Started = time.Unix(0, started)
	e.Duration = time.Duration(duration)
	e.StepID = stepID.String
	e.ErrorKind = errorKind.String
	e.Error = msg.String

	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &e.Steps); err != nil {
			return Entry{}, fmt.Errorf("%w: decode steps: %v", ErrLoadFailed, err)
		}
	}
	return e, nil
}
