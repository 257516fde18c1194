package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sportsync/ingestion/internal/jobs"
	"sportsync/ingestion/internal/models"
)

// RunRepository handles sync_job_runs database operations
type RunRepository struct {
	db *Database
}

// StartRun opens a run record and returns its id
func (r *RunRepository) StartRun(ctx context.Context, jobID int64, startedAt time.Time) (int64, error) {
	query := `
		INSERT INTO sync_job_runs (job_id, started_at)
		VALUES ($1, $2)
		RETURNING id
	`

	var id int64
	start := time.Now()
	err := r.db.Pool.QueryRow(ctx, query, jobID, startedAt).Scan(&id)
	observe("insert", "sync_job_runs", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}

	return id, nil
}

// FinishRun closes a run record. A run that is already closed is left as is.
func (r *RunRepository) FinishRun(ctx context.Context, runID int64, res models.RunResult) error {
	query := `
		UPDATE sync_job_runs SET
			finished_at = $2,
			exit_status = $3,
			runtime_ms = $4,
			output_text = $5,
			error_text = $6
		WHERE id = $1 AND finished_at IS NULL
	`

	start := time.Now()
	_, err := r.db.Pool.Exec(
		ctx, query,
		runID,
		res.FinishedAt,
		string(res.ExitStatus),
		res.Runtime.Milliseconds(),
		sql.NullString{String: res.Output, Valid: res.Output != ""},
		sql.NullString{String: res.Error, Valid: res.Error != ""},
	)
	observe("update", "sync_job_runs", start, err)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	return nil
}

// ListRuns returns a job's most recent runs, newest first
func (r *RunRepository) ListRuns(ctx context.Context, jobID int64, limit int) ([]*models.JobRun, error) {
	query := `
		SELECT id, job_id, started_at, finished_at, exit_status, runtime_ms, output_text, error_text
		FROM sync_job_runs
		WHERE job_id = $1
		ORDER BY started_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.JobRun
	for rows.Next() {
		var run models.JobRun
		err := rows.Scan(
			&run.ID, &run.JobID, &run.StartedAt, &run.FinishedAt,
			&run.ExitStatus, &run.RuntimeMS, &run.OutputText, &run.ErrorText,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

var _ jobs.RunLog = (*RunRepository)(nil)
