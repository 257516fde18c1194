package jobs

import (
	"context"
	"time"

	"sportsync/ingestion/internal/models"
)

// Store persists jobs. Claim and Complete must be conditional on the row's
// current status so that concurrent dispatchers never both hold a lease.
type Store interface {
	Insert(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id int64) (*models.Job, error)
	List(ctx context.Context) ([]*models.Job, error)

	// ListByKind returns every job for the pair ordered by id ascending
	ListByKind(ctx context.Context, provider string, jobType models.JobType) ([]*models.Job, error)
	Delete(ctx context.Context, ids []int64) (int64, error)

	// Reseed applies catalog settings to the canonical row and returns the
	// status it ended up in. Paused and running rows keep their status.
	Reseed(ctx context.Context, id int64, scheduleRule string, priority int, now time.Time) (models.JobStatus, error)

	// RecoverStaleLeases returns running jobs whose lease expired before now
	// to pending and reports which ones it touched.
	RecoverStaleLeases(ctx context.Context, now time.Time) ([]*models.Job, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Job, error)

	// Claim moves a due pending job to running. ok is false when another
	// dispatcher won the race or the job is no longer due.
	Claim(ctx context.Context, id int64, owner string, now, leaseUntil time.Time) (job *models.Job, ok bool, err error)

	// Complete applies t only if the job is still running under owner's
	// lease. applied is false when the row was paused, rescheduled or
	// reclaimed while the handler ran.
	Complete(ctx context.Context, id int64, owner string, t models.Transition) (applied bool, err error)

	Pause(ctx context.Context, id int64) error
	Resume(ctx context.Context, id int64, now time.Time) error
	Retry(ctx context.Context, id int64, now time.Time) error
	RunNow(ctx context.Context, id int64, now time.Time) error
}

// RunLog is the append-only history of handler invocations
type RunLog interface {
	StartRun(ctx context.Context, jobID int64, startedAt time.Time) (int64, error)
	FinishRun(ctx context.Context, runID int64, res models.RunResult) error
	ListRuns(ctx context.Context, jobID int64, limit int) ([]*models.JobRun, error)
}
