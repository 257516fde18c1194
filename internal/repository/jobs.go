package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"sportsync/ingestion/internal/jobs"
	"sportsync/ingestion/internal/models"
)

// JobRepository handles sync_jobs database operations
type JobRepository struct {
	db *Database
}

const jobColumns = `
	id, provider, job_type, status, priority, season_year, competition_code,
	payload, schedule_rule, next_run_at, last_run_at, attempts, max_attempts,
	lease_expires_at, lease_owner, last_error, created_at, updated_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	var job models.Job
	err := row.Scan(
		&job.ID, &job.Provider, &job.JobType, &job.Status, &job.Priority,
		&job.SeasonYear, &job.CompetitionCode, &job.Payload, &job.ScheduleRule,
		&job.NextRunAt, &job.LastRunAt, &job.Attempts, &job.MaxAttempts,
		&job.LeaseExpiresAt, &job.LeaseOwner, &job.LastError,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func collectJobs(rows pgx.Rows) ([]*models.Job, error) {
	defer rows.Close()

	var out []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		out = append(out, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating jobs: %w", err)
	}

	return out, nil
}

// Insert creates a job row and fills in its generated fields
func (r *JobRepository) Insert(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO sync_jobs (
			provider, job_type, status, priority, season_year, competition_code,
			payload, schedule_rule, next_run_at, attempts, max_attempts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	start := time.Now()
	err := r.db.Pool.QueryRow(
		ctx, query,
		job.Provider, job.JobType, job.Status, job.Priority, job.SeasonYear, job.CompetitionCode,
		job.Payload, job.ScheduleRule, job.NextRunAt, job.Attempts, job.MaxAttempts,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
	observe("insert", "sync_jobs", start, err)

	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	log.Debug().
		Int64("job_id", job.ID).
		Str("job_type", string(job.JobType)).
		Msg("Job inserted")

	return nil
}

// Get retrieves a job by id
func (r *JobRepository) Get(ctx context.Context, id int64) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM sync_jobs WHERE id = $1`

	job, err := scanJob(r.db.Pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, jobs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

// List returns every job ordered by priority then id
func (r *JobRepository) List(ctx context.Context) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM sync_jobs ORDER BY priority, id`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return collectJobs(rows)
}

// ListByKind returns every job for a provider and job type, lowest id first
func (r *JobRepository) ListByKind(ctx context.Context, provider string, jobType models.JobType) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + `
		FROM sync_jobs
		WHERE provider = $1 AND job_type = $2
		ORDER BY id
	`

	rows, err := r.db.Pool.Query(ctx, query, provider, jobType)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs by kind: %w", err)
	}

	return collectJobs(rows)
}

// Delete removes the given jobs and their run history
func (r *JobRepository) Delete(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `DELETE FROM sync_jobs WHERE id = ANY($1)`

	start := time.Now()
	tag, err := r.db.Pool.Exec(ctx, query, ids)
	observe("delete", "sync_jobs", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete jobs: %w", err)
	}

	return tag.RowsAffected(), nil
}

// Reseed applies catalog settings to a job. Paused and running rows keep
// their status; a running row also keeps its lease.
func (r *JobRepository) Reseed(ctx context.Context, id int64, scheduleRule string, priority int, now time.Time) (models.JobStatus, error) {
	query := `
		UPDATE sync_jobs SET
			schedule_rule = $2,
			priority = $3,
			last_error = NULL,
			status = CASE WHEN status IN ('paused', 'running') THEN status ELSE 'pending' END,
			next_run_at = CASE WHEN status IN ('paused', 'running') THEN next_run_at ELSE $4 END,
			attempts = CASE WHEN status IN ('paused', 'running') THEN attempts ELSE 0 END,
			lease_expires_at = CASE WHEN status = 'running' THEN lease_expires_at ELSE NULL END,
			lease_owner = CASE WHEN status = 'running' THEN lease_owner ELSE NULL END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING status
	`

	var status models.JobStatus
	start := time.Now()
	err := r.db.Pool.QueryRow(ctx, query, id, scheduleRule, priority, now).Scan(&status)
	observe("reseed", "sync_jobs", start, err)

	if err == pgx.ErrNoRows {
		return "", jobs.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to reseed job: %w", err)
	}

	return status, nil
}

// RecoverStaleLeases returns running jobs whose lease lapsed before now to
// pending. The returned jobs carry the owner that held the lapsed lease.
func (r *JobRepository) RecoverStaleLeases(ctx context.Context, now time.Time) ([]*models.Job, error) {
	query := `
		WITH stale AS (
			SELECT id, lease_owner, lease_expires_at
			FROM sync_jobs
			WHERE status = 'running' AND lease_expires_at < $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE sync_jobs j SET
			status = 'pending',
			lease_expires_at = NULL,
			lease_owner = NULL,
			updated_at = NOW()
		FROM stale
		WHERE j.id = stale.id
		RETURNING j.id, j.job_type, stale.lease_owner, stale.lease_expires_at
	`

	start := time.Now()
	rows, err := r.db.Pool.Query(ctx, query, now)
	if err != nil {
		observe("recover", "sync_jobs", start, err)
		return nil, fmt.Errorf("failed to recover stale leases: %w", err)
	}
	defer rows.Close()

	var out []*models.Job
	for rows.Next() {
		job := &models.Job{Status: models.JobPending}
		if err := rows.Scan(&job.ID, &job.JobType, &job.LeaseOwner, &job.LeaseExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan recovered job: %w", err)
		}
		out = append(out, job)
	}

	err = rows.Err()
	observe("recover", "sync_jobs", start, err)
	if err != nil {
		return nil, fmt.Errorf("error iterating recovered jobs: %w", err)
	}

	return out, nil
}

// ListDue returns pending jobs whose next run time has passed, in dispatch order
func (r *JobRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + `
		FROM sync_jobs
		WHERE status = 'pending' AND next_run_at <= $1
		ORDER BY priority, next_run_at, id
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due jobs: %w", err)
	}

	return collectJobs(rows)
}

// Claim leases a due job to owner. The update only matches while the row is
// still pending and due, so at most one concurrent caller gets ok=true.
func (r *JobRepository) Claim(ctx context.Context, id int64, owner string, now, leaseUntil time.Time) (*models.Job, bool, error) {
	query := `
		UPDATE sync_jobs SET
			status = 'running',
			lease_expires_at = $3,
			lease_owner = $4,
			last_run_at = $2,
			updated_at = NOW()
		WHERE id = $1 AND status = 'pending' AND next_run_at <= $2
		RETURNING ` + jobColumns

	start := time.Now()
	job, err := scanJob(r.db.Pool.QueryRow(ctx, query, id, now, leaseUntil, owner))
	if err == pgx.ErrNoRows {
		observe("claim", "sync_jobs", start, nil)
		return nil, false, nil
	}
	observe("claim", "sync_jobs", start, err)
	if err != nil {
		return nil, false, fmt.Errorf("failed to claim job: %w", err)
	}

	return job, true, nil
}

// Complete applies a run's transition while owner still holds the lease
func (r *JobRepository) Complete(ctx context.Context, id int64, owner string, t models.Transition) (bool, error) {
	query := `
		UPDATE sync_jobs SET
			status = $3,
			next_run_at = $4,
			attempts = $5,
			last_error = $6,
			lease_expires_at = NULL,
			lease_owner = NULL,
			updated_at = NOW()
		WHERE id = $1 AND status = 'running' AND lease_owner = $2
	`

	start := time.Now()
	tag, err := r.db.Pool.Exec(ctx, query, id, owner, t.Status, t.NextRunAt, t.Attempts, t.LastError)
	observe("complete", "sync_jobs", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to complete job: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// Pause parks a job in any status. A running handler keeps going but its
// completion will not overwrite the pause.
func (r *JobRepository) Pause(ctx context.Context, id int64) error {
	query := `
		UPDATE sync_jobs SET
			status = 'paused',
			lease_expires_at = NULL,
			lease_owner = NULL,
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to pause job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return jobs.ErrNotFound
	}

	return nil
}

// Resume makes a paused job due immediately
func (r *JobRepository) Resume(ctx context.Context, id int64, now time.Time) error {
	query := `
		UPDATE sync_jobs SET
			status = 'pending',
			next_run_at = $2,
			updated_at = NOW()
		WHERE id = $1 AND status = 'paused'
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("failed to resume job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionError(ctx, id)
	}

	return nil
}

// Retry gives a failed job a fresh attempt budget and makes it due immediately
func (r *JobRepository) Retry(ctx context.Context, id int64, now time.Time) error {
	query := `
		UPDATE sync_jobs SET
			status = 'pending',
			attempts = 0,
			last_error = NULL,
			next_run_at = $2,
			updated_at = NOW()
		WHERE id = $1 AND status = 'failed'
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("failed to retry job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionError(ctx, id)
	}

	return nil
}

// RunNow makes a job due immediately regardless of its status. Attempts are
// left alone.
func (r *JobRepository) RunNow(ctx context.Context, id int64, now time.Time) error {
	query := `
		UPDATE sync_jobs SET
			status = 'pending',
			next_run_at = $2,
			last_error = NULL,
			lease_expires_at = NULL,
			lease_owner = NULL,
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("failed to run job now: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return jobs.ErrNotFound
	}

	return nil
}

// transitionError distinguishes a missing job from one in the wrong status
// after a conditional update matched nothing.
func (r *JobRepository) transitionError(ctx context.Context, id int64) error {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sync_jobs WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check job existence: %w", err)
	}
	if !exists {
		return jobs.ErrNotFound
	}
	return jobs.ErrInvalidTransition
}

var _ jobs.Store = (*JobRepository)(nil)
