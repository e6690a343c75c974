package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run records a single capture-and-process run.
type Run struct {
	ID           int64
	RunKey       string
	EntryPoint   string
	ScenarioID   string
	ArtifactName string
	ArtifactSize int64
	VideoID      string
	JobID        string
	ReportID     string
	Phase        string
	Progress     float64
	CurrentStep  string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Entry points recorded per run.
const (
	EntryAssessment = "assessment"
	EntrySimulation = "simulation"
)

const runColumns = `id, run_key, entry_point, scenario_id, artifact_name, artifact_size,
    video_id, job_id, report_id, phase, progress, current_step, error_message,
    created_at, updated_at`

// Create inserts a new run record. A missing run key is generated; the
// record's ID and timestamps are populated on return.
func (s *Store) Create(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.RunKey == "" {
		run.RunKey = uuid.NewString()
	}
	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (
            run_key, entry_point, scenario_id, artifact_name, artifact_size,
            video_id, job_id, report_id, phase, progress, current_step,
            error_message, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunKey,
		run.EntryPoint,
		run.ScenarioID,
		run.ArtifactName,
		run.ArtifactSize,
		run.VideoID,
		run.JobID,
		run.ReportID,
		run.Phase,
		run.Progress,
		run.CurrentStep,
		run.ErrorMessage,
		timestamp,
		timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	run.ID = id
	return nil
}

// Update persists changes to an existing run record.
func (s *Store) Update(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	run.UpdatedAt = time.Now().UTC()

	_, err := s.execWithRetry(
		ctx,
		`UPDATE runs SET
            entry_point = ?, scenario_id = ?, artifact_name = ?, artifact_size = ?,
            video_id = ?, job_id = ?, report_id = ?, phase = ?, progress = ?,
            current_step = ?, error_message = ?, updated_at = ?
        WHERE id = ?`,
		run.EntryPoint,
		run.ScenarioID,
		run.ArtifactName,
		run.ArtifactSize,
		run.VideoID,
		run.JobID,
		run.ReportID,
		run.Phase,
		run.Progress,
		run.CurrentStep,
		run.ErrorMessage,
		run.UpdatedAt.Format(time.RFC3339Nano),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// GetByID fetches a run by identifier. Missing runs return nil without error.
func (s *Store) GetByID(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// GetByKey fetches a run by its run key.
func (s *Store) GetByKey(ctx context.Context, key string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_key = ?`, key)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run by key: %w", err)
	}
	return run, nil
}

// List returns runs newest-first, capped at limit when limit is positive.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Clear deletes all run records.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM runs`); err != nil {
		return fmt.Errorf("clear runs: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run       Run
		createdAt string
		updatedAt string
	)
	err := row.Scan(
		&run.ID,
		&run.RunKey,
		&run.EntryPoint,
		&run.ScenarioID,
		&run.ArtifactName,
		&run.ArtifactSize,
		&run.VideoID,
		&run.JobID,
		&run.ReportID,
		&run.Phase,
		&run.Progress,
		&run.CurrentStep,
		&run.ErrorMessage,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.CreatedAt = parseTimestamp(createdAt)
	run.UpdatedAt = parseTimestamp(updatedAt)
	return &run, nil
}

func parseTimestamp(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
