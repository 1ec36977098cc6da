package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/arenalab/orchestrator/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection, so the pool must not
	// grow past one.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			strategy TEXT NOT NULL,
			status TEXT NOT NULL,
			max_steps INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME,
			last_action TEXT,
			error_detail TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status, started_at)`,
		`CREATE TABLE IF NOT EXISTS steps (
			run_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			observation TEXT,
			action TEXT NOT NULL,
			outcome TEXT NOT NULL,
			detail TEXT,
			ts DATETIME NOT NULL,
			PRIMARY KEY (run_id, idx),
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			run_id TEXT PRIMARY KEY,
			execution_id TEXT NOT NULL,
			strategy TEXT NOT NULL,
			status TEXT NOT NULL,
			matched INTEGER NOT NULL,
			accuracy REAL NOT NULL,
			steps_taken INTEGER NOT NULL,
			time_taken_ms INTEGER NOT NULL,
			error_kind TEXT,
			error_message TEXT,
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun creates a new run record.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *domain.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, agent_id, task_id, strategy, status, max_steps, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.AgentID, run.TaskID, run.Strategy, run.Status, run.MaxSteps, run.StartedAt)
	return err
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	var run domain.Run
	var endedAt sql.NullTime
	var lastAction, errorDetail sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, agent_id, task_id, strategy, status, max_steps, started_at, ended_at, last_action, error_detail
		 FROM runs WHERE run_id = ?`, runID).
		Scan(&run.RunID, &run.AgentID, &run.TaskID, &run.Strategy, &run.Status, &run.MaxSteps,
			&run.StartedAt, &endedAt, &lastAction, &errorDetail)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if endedAt.Valid {
		run.EndedAt = &endedAt.Time
	}
	run.LastAction = lastAction.String
	run.ErrorDetail = errorDetail.String
	return &run, nil
}

// UpdateRunStatus updates a run's status.
func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status domain.RunStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET status = ? WHERE run_id = ?`, status, runID)
	return err
}

// UpdateRunProgress records the most recent action for polling callers.
func (s *SQLiteStore) UpdateRunProgress(ctx context.Context, runID string, lastAction string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET last_action = ? WHERE run_id = ?`, lastAction, runID)
	return err
}

// AppendStep appends one step record to the run's log.
func (s *SQLiteStore) AppendStep(ctx context.Context, step *domain.StepRecord) error {
	action, err := json.Marshal(step.Action)
	if err != nil {
		return fmt.Errorf("failed to marshal action: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO steps (run_id, idx, observation, action, outcome, detail, ts) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		step.RunID, step.Index, step.Observation, string(action), step.Outcome, step.Detail, step.Timestamp)
	return err
}

// GetSteps retrieves a run's step log in index order.
func (s *SQLiteStore) GetSteps(ctx context.Context, runID string) ([]domain.StepRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, idx, observation, action, outcome, detail, ts FROM steps WHERE run_id = ? ORDER BY idx ASC`,
		runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []domain.StepRecord
	for rows.Next() {
		var step domain.StepRecord
		var action string
		var observation, detail sql.NullString
		if err := rows.Scan(&step.RunID, &step.Index, &observation, &action, &step.Outcome, &detail, &step.Timestamp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(action), &step.Action); err != nil {
			return nil, fmt.Errorf("failed to unmarshal action: %w", err)
		}
		step.Observation = observation.String
		step.Detail = detail.String
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// SaveOutcome stores the terminal outcome and marks the run terminal.
func (s *SQLiteStore) SaveOutcome(ctx context.Context, outcome *domain.RunOutcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	matched := 0
	if outcome.Matched {
		matched = 1
	}
	var errKind, errMessage string
	if outcome.Error != nil {
		errKind = string(outcome.Error.Kind)
		errMessage = outcome.Error.Message
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO outcomes (run_id, execution_id, strategy, status, matched, accuracy, steps_taken, time_taken_ms, error_kind, error_message, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		outcome.RunID, outcome.ExecutionID, outcome.Strategy, outcome.Status, matched,
		outcome.Score.Accuracy, outcome.Score.StepsTaken, outcome.Score.TimeTaken.Milliseconds(),
		errKind, errMessage, outcome.StartedAt, outcome.EndedAt); err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET status = ?, ended_at = ?, error_detail = ? WHERE run_id = ?`,
		outcome.Status, outcome.EndedAt, errMessage, outcome.RunID); err != nil {
		return fmt.Errorf("failed to finalize run: %w", err)
	}

	return tx.Commit()
}

// GetOutcome retrieves a run's outcome, with its step log, or nil if the run
// is not terminal yet.
func (s *SQLiteStore) GetOutcome(ctx context.Context, runID string) (*domain.RunOutcome, error) {
	var outcome domain.RunOutcome
	var matched int
	var timeTakenMs int64
	var errKind, errMessage sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, execution_id, strategy, status, matched, accuracy, steps_taken, time_taken_ms, error_kind, error_message, started_at, ended_at
		 FROM outcomes WHERE run_id = ?`, runID).
		Scan(&outcome.RunID, &outcome.ExecutionID, &outcome.Strategy, &outcome.Status, &matched,
			&outcome.Score.Accuracy, &outcome.Score.StepsTaken, &timeTakenMs,
			&errKind, &errMessage, &outcome.StartedAt, &outcome.EndedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	outcome.Matched = matched == 1
	outcome.Score.TimeTaken = time.Duration(timeTakenMs) * time.Millisecond
	if errKind.Valid && errKind.String != "" {
		outcome.Error = &domain.ErrorInfo{
			Kind:    domain.ErrorKind(errKind.String),
			Message: errMessage.String,
		}
	}

	steps, err := s.GetSteps(ctx, runID)
	if err != nil {
		return nil, err
	}
	if steps == nil {
		steps = []domain.StepRecord{}
	}
	outcome.StepLog = steps
	return &outcome, nil
}
