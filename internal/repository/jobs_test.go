//go:build integration

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sportsync/ingestion/internal/jobs"
	"sportsync/ingestion/internal/models"
)

func insertJob(t *testing.T, ctx context.Context, db *Database, jobType models.JobType, status models.JobStatus, nextRun time.Time) *models.Job {
	job := &models.Job{
		Provider:     "espn",
		JobType:      jobType,
		Status:       status,
		Priority:     50,
		ScheduleRule: "interval:3600",
		NextRunAt:    sql.NullTime{Time: nextRun, Valid: true},
		MaxAttempts:  3,
	}
	require.NoError(t, db.Jobs.Insert(ctx, job))
	require.NotZero(t, job.ID, "Insert should assign an id")
	return job
}

func TestJobRepository_ClaimIsExclusive(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	now := time.Now().UTC().Truncate(time.Microsecond)
	job := insertJob(t, ctx, db, models.JobSyncFixtures, models.JobPending, now.Add(-time.Minute))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []string
	)
	for i := 0; i < 8; i++ {
		owner := fmt.Sprintf("worker-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := db.Jobs.Claim(ctx, job.ID, owner, now, now.Add(time.Minute))
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins = append(wins, owner)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, wins, 1, "Exactly one claimant should win")

	claimed, err := db.Jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobRunning, claimed.Status)
	assert.Equal(t, wins[0], claimed.LeaseOwner.String)
	assert.True(t, claimed.LeaseExpiresAt.Valid)
}

func TestJobRepository_ClaimSkipsFutureJobs(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	now := time.Now().UTC()
	job := insertJob(t, ctx, db, models.JobSyncResults, models.JobPending, now.Add(time.Hour))

	_, ok, err := db.Jobs.Claim(ctx, job.ID, "worker", now, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "A job that is not yet due must not be claimed")
}

func TestJobRepository_CompleteRequiresLease(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	now := time.Now().UTC()
	job := insertJob(t, ctx, db, models.JobSyncClubs, models.JobPending, now.Add(-time.Second))

	_, ok, err := db.Jobs.Claim(ctx, job.ID, "worker-a", now, now.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, ok)

	next := models.Transition{
		Status:    models.JobPending,
		NextRunAt: sql.NullTime{Time: now.Add(time.Hour), Valid: true},
	}

	applied, err := db.Jobs.Complete(ctx, job.ID, "worker-b", next)
	require.NoError(t, err)
	assert.False(t, applied, "Another owner must not complete the job")

	applied, err = db.Jobs.Complete(ctx, job.ID, "worker-a", next)
	require.NoError(t, err)
	assert.True(t, applied)

	done, err := db.Jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, done.Status)
	assert.False(t, done.LeaseOwner.Valid, "Lease should be cleared")
}

func TestJobRepository_PauseSurvivesCompletion(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	now := time.Now().UTC()
	job := insertJob(t, ctx, db, models.JobSyncLeagues, models.JobPending, now.Add(-time.Second))

	_, ok, err := db.Jobs.Claim(ctx, job.ID, "worker", now, now.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, db.Jobs.Pause(ctx, job.ID))

	applied, err := db.Jobs.Complete(ctx, job.ID, "worker", models.Transition{Status: models.JobSuccess})
	require.NoError(t, err)
	assert.False(t, applied)

	paused, err := db.Jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobPaused, paused.Status)
}

func TestJobRepository_RecoverStaleLeases(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	now := time.Now().UTC()
	stale := insertJob(t, ctx, db, models.JobSyncFixtures, models.JobPending, now.Add(-time.Hour))
	live := insertJob(t, ctx, db, models.JobSyncResults, models.JobPending, now.Add(-time.Hour))

	_, ok, err := db.Jobs.Claim(ctx, stale.ID, "dead-worker", now.Add(-time.Hour), now.Add(-time.Minute))
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = db.Jobs.Claim(ctx, live.ID, "live-worker", now, now.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	recovered, err := db.Jobs.RecoverStaleLeases(ctx, now)
	require.NoError(t, err)
	require.Len(t, recovered, 1)
	assert.Equal(t, stale.ID, recovered[0].ID)
	assert.Equal(t, "dead-worker", recovered[0].LeaseOwner.String, "Recovered job should report the lapsed owner")

	got, err := db.Jobs.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, got.Status)
	assert.False(t, got.LeaseExpiresAt.Valid)

	got, err = db.Jobs.Get(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobRunning, got.Status, "A live lease must not be touched")
}

func TestJobRepository_ListDueOrdering(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	now := time.Now().UTC()
	low := insertJob(t, ctx, db, models.JobBackfillSeason, models.JobPending, now.Add(-time.Hour))
	high := insertJob(t, ctx, db, models.JobSyncLeagues, models.JobPending, now.Add(-time.Minute))
	insertJob(t, ctx, db, models.JobSyncClubs, models.JobPending, now.Add(time.Hour))
	insertJob(t, ctx, db, models.JobSyncResults, models.JobPaused, now.Add(-time.Hour))

	_, err := db.Pool.Exec(ctx, `UPDATE sync_jobs SET priority = 90 WHERE id = $1`, low.ID)
	require.NoError(t, err)
	_, err = db.Pool.Exec(ctx, `UPDATE sync_jobs SET priority = 10 WHERE id = $1`, high.ID)
	require.NoError(t, err)

	due, err := db.Jobs.ListDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2, "Only pending jobs whose time has come are due")
	assert.Equal(t, high.ID, due[0].ID, "Lower priority value dispatches first")
	assert.Equal(t, low.ID, due[1].ID)
}

func TestJobRepository_ReseedKeepsPausedAndRunning(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	now := time.Now().UTC()
	paused := insertJob(t, ctx, db, models.JobSyncLeagues, models.JobPaused, now.Add(time.Hour))
	failed := insertJob(t, ctx, db, models.JobSyncClubs, models.JobFailed, now.Add(time.Hour))
	running := insertJob(t, ctx, db, models.JobSyncFixtures, models.JobPending, now.Add(-time.Minute))

	_, ok, err := db.Jobs.Claim(ctx, running.ID, "worker", now, now.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	status, err := db.Jobs.Reseed(ctx, paused.ID, "interval:600", 5, now)
	require.NoError(t, err)
	assert.Equal(t, models.JobPaused, status)

	status, err = db.Jobs.Reseed(ctx, failed.ID, "interval:600", 5, now)
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, status)

	status, err = db.Jobs.Reseed(ctx, running.ID, "interval:600", 5, now)
	require.NoError(t, err)
	assert.Equal(t, models.JobRunning, status)

	got, err := db.Jobs.Get(ctx, running.ID)
	require.NoError(t, err)
	assert.Equal(t, "worker", got.LeaseOwner.String, "Reseed must not steal a live lease")
	assert.Equal(t, "interval:600", got.ScheduleRule)

	_, err = db.Jobs.Reseed(ctx, 999999, "once", 1, now)
	assert.ErrorIs(t, err, jobs.ErrNotFound)
}

func TestJobRepository_ManualTransitions(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	now := time.Now().UTC()
	job := insertJob(t, ctx, db, models.JobSyncResults, models.JobPending, now.Add(time.Hour))

	assert.ErrorIs(t, db.Jobs.Resume(ctx, job.ID, now), jobs.ErrInvalidTransition)
	assert.ErrorIs(t, db.Jobs.Retry(ctx, job.ID, now), jobs.ErrInvalidTransition)
	assert.ErrorIs(t, db.Jobs.Resume(ctx, 999999, now), jobs.ErrNotFound)
	assert.ErrorIs(t, db.Jobs.Pause(ctx, 999999), jobs.ErrNotFound)
	assert.ErrorIs(t, db.Jobs.RunNow(ctx, 999999, now), jobs.ErrNotFound)

	require.NoError(t, db.Jobs.Pause(ctx, job.ID))
	require.NoError(t, db.Jobs.Resume(ctx, job.ID, now))

	got, err := db.Jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDue(now.Add(time.Second)), "Resumed job should be due immediately")

	_, err = db.Pool.Exec(ctx, `UPDATE sync_jobs SET status = 'failed', attempts = 3, last_error = 'boom' WHERE id = $1`, job.ID)
	require.NoError(t, err)
	require.NoError(t, db.Jobs.Retry(ctx, job.ID, now))

	got, err = db.Jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, got.Status)
	assert.Equal(t, 0, got.Attempts, "Retry should reset attempts")
	assert.False(t, got.LastError.Valid)
}

func TestJobRepository_DeleteCascadesRuns(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	now := time.Now().UTC()
	keep := insertJob(t, ctx, db, models.JobSyncLeagues, models.JobPending, now)
	drop := insertJob(t, ctx, db, models.JobSyncLeagues, models.JobPending, now)

	runID, err := db.Runs.StartRun(ctx, drop.ID, now)
	require.NoError(t, err)
	require.NotZero(t, runID)

	n, err := db.Jobs.Delete(ctx, []int64{drop.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	remaining, err := db.Jobs.ListByKind(ctx, "espn", models.JobSyncLeagues)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, keep.ID, remaining[0].ID)

	runs, err := db.Runs.ListRuns(ctx, drop.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, runs, "Runs of a deleted job should be removed")
}

func TestRunRepository_FinishRunOnce(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	now := time.Now().UTC()
	job := insertJob(t, ctx, db, models.JobSyncFixtures, models.JobPending, now)

	runID, err := db.Runs.StartRun(ctx, job.ID, now)
	require.NoError(t, err)

	require.NoError(t, db.Runs.FinishRun(ctx, runID, models.RunResult{
		FinishedAt: now.Add(2 * time.Second),
		ExitStatus: models.RunSucceeded,
		Runtime:    2 * time.Second,
		Output:     "fixtures=12",
	}))
	require.NoError(t, db.Runs.FinishRun(ctx, runID, models.RunResult{
		FinishedAt: now.Add(time.Minute),
		ExitStatus: models.RunFailed,
		Error:      "late",
	}))

	runs, err := db.Runs.ListRuns(ctx, job.ID, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "success", runs[0].ExitStatus.String, "A closed run must not be rewritten")
	assert.Equal(t, int64(2000), runs[0].RuntimeMS.Int64)
	assert.Equal(t, "fixtures=12", runs[0].OutputText.String)
	assert.False(t, runs[0].ErrorText.Valid)
}
