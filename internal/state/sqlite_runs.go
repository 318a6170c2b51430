package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/healthdw/pkg/core"
)

const runColumns = `id, source_path, target_type, status, started_at, completed_at, error,
	source_rows, fact_rows, patient_collisions`

// CreateRun creates a new pipeline run.
func (s *SQLiteStore) CreateRun(sourcePath, targetType string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &core.Run{
		ID:         generateID(),
		SourcePath: sourcePath,
		TargetType: targetType,
		Status:     core.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}

	s.logger.Debug("creating run", "id", run.ID, "source", sourcePath)

	_, err := s.db.Exec(
		`INSERT INTO runs (id, source_path, target_type, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.SourcePath, run.TargetType, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run as finished with the given status and counts.
func (s *SQLiteStore) CompleteRun(id string, status core.RunStatus, counts core.RunCounts, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.Exec(
		`UPDATE runs
		 SET status = ?, completed_at = ?, error = ?, source_rows = ?, fact_rows = ?, patient_collisions = ?
		 WHERE id = ?`,
		string(status), time.Now().UTC(), nullString(errMsg),
		counts.SourceRows, counts.FactRows, counts.PatientCollisions, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetLatestRun retrieves the most recent run, or nil when there is none.
func (s *SQLiteStore) GetLatestRun() (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run, err := scanRun(s.db.QueryRow(`SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs up to the given limit.
func (s *SQLiteStore) ListRuns(limit int) ([]*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// --- Step operations ---

// RecordStep inserts a step, assigning its ID and start time when unset.
func (s *SQLiteStore) RecordStep(step *core.RunStep) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if step.ID == "" {
		step.ID = generateID()
	}
	if step.StartedAt.IsZero() {
		step.StartedAt = time.Now().UTC()
	}
	if step.Status == "" {
		step.Status = core.StepStatusRunning
	}

	_, err := s.db.Exec(
		`INSERT INTO run_steps (id, run_id, name, status, row_count, started_at, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		step.ID, step.RunID, step.Name, string(step.Status), step.Rows, step.StartedAt, nullString(step.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to record step %s: %w", step.Name, err)
	}
	return nil
}

// UpdateStep finishes a step and stores its execution time.
func (s *SQLiteStore) UpdateStep(id string, status core.StepStatus, rows int64, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var startedAt time.Time
	if err := s.db.QueryRow(`SELECT started_at FROM run_steps WHERE id = ?`, id).Scan(&startedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("step not found: %s", id)
		}
		return fmt.Errorf("failed to load step: %w", err)
	}

	now := time.Now().UTC()
	_, err := s.db.Exec(
		`UPDATE run_steps SET status = ?, row_count = ?, completed_at = ?, error = ?, execution_ms = ? WHERE id = ?`,
		string(status), rows, now, nullString(errMsg), now.Sub(startedAt).Milliseconds(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update step: %w", err)
	}
	return nil
}

// GetStepsForRun returns the steps of a run in the order they started.
func (s *SQLiteStore) GetStepsForRun(runID string) ([]*core.RunStep, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, name, status, row_count, started_at, completed_at, error, execution_ms
		 FROM run_steps WHERE run_id = ? ORDER BY started_at, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var steps []*core.RunStep
	for rows.Next() {
		var st core.RunStep
		var status string
		var completedAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&st.ID, &st.RunID, &st.Name, &status, &st.Rows,
			&st.StartedAt, &completedAt, &errMsg, &st.ExecutionMS); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		st.Status = core.StepStatus(status)
		if completedAt.Valid {
			st.CompletedAt = &completedAt.Time
		}
		st.Error = errMsg.String
		steps = append(steps, &st)
	}
	return steps, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(r rowScanner) (*core.Run, error) {
	var run core.Run
	var status string
	var completedAt sql.NullTime
	var errMsg sql.NullString

	if err := r.Scan(&run.ID, &run.SourcePath, &run.TargetType, &status, &run.StartedAt,
		&completedAt, &errMsg, &run.SourceRows, &run.FactRows, &run.PatientCollisions); err != nil {
		return nil, err
	}

	run.Status = core.RunStatus(status)
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	run.Error = errMsg.String
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
