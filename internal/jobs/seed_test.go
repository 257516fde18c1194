package jobs

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"sportsync/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seedNow = time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)

func newTestSeeder(store Store) *Seeder {
	s := NewSeeder(store)
	s.now = func() time.Time { return seedNow }
	return s
}

func TestSeeder_Idempotent(t *testing.T) {
	store := newMemStore()
	seeder := newTestSeeder(store)
	ctx := context.Background()
	catalog := DefaultCatalog("espn", 3)

	first, err := seeder.Seed(ctx, catalog)
	require.NoError(t, err)
	assert.Equal(t, len(catalog), first.Inserted)

	second, err := seeder.Seed(ctx, catalog)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted, "Second seed should insert nothing")
	assert.Equal(t, len(catalog), second.Reconciled)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(catalog), "Should have exactly one row per catalog entry")

	for _, job := range all {
		assert.Equal(t, models.JobPending, job.Status)
		assert.Equal(t, seedNow, job.NextRunAt.Time)
		assert.Equal(t, 3, job.MaxAttempts)
	}
}

func TestSeeder_PausedSurvivesReseed(t *testing.T) {
	store := newMemStore()
	seeder := newTestSeeder(store)
	ctx := context.Background()
	catalog := []CatalogEntry{{Provider: "espn", JobType: models.JobSyncFixtures, ScheduleRule: "interval:3600", Priority: 30}}

	_, err := seeder.Seed(ctx, catalog)
	require.NoError(t, err)

	jobs, _ := store.ListByKind(ctx, "espn", models.JobSyncFixtures)
	require.Len(t, jobs, 1)
	require.NoError(t, store.Pause(ctx, jobs[0].ID))

	catalog[0].Priority = 5
	report, err := seeder.Seed(ctx, catalog)
	require.NoError(t, err)
	assert.Equal(t, 1, report.PausedPreserved)

	job, err := store.Get(ctx, jobs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobPaused, job.Status, "Paused job must stay paused")
	assert.Equal(t, 5, job.Priority, "Catalog priority should still apply")
}

func TestSeeder_CollapsesDuplicatesToLowestID(t *testing.T) {
	store := newMemStore()
	for _, id := range []int64{5, 9, 12} {
		store.put(&models.Job{
			ID:           id,
			Provider:     "espn",
			JobType:      models.JobSyncClubs,
			Status:       models.JobFailed,
			ScheduleRule: "interval:60",
			Attempts:     3,
			LastError:    sql.NullString{String: "boom", Valid: true},
		})
	}

	seeder := newTestSeeder(store)
	ctx := context.Background()
	report, err := seeder.Seed(ctx, []CatalogEntry{{Provider: "espn", JobType: models.JobSyncClubs, ScheduleRule: "interval:86400", Priority: 20}})
	require.NoError(t, err)
	assert.Equal(t, 2, report.DuplicatesRemoved)

	jobs, err := store.ListByKind(ctx, "espn", models.JobSyncClubs)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	job := jobs[0]
	assert.Equal(t, int64(5), job.ID, "Lowest id is canonical")
	assert.Equal(t, models.JobPending, job.Status)
	assert.Equal(t, "interval:86400", job.ScheduleRule)
	assert.Equal(t, 20, job.Priority)
	assert.False(t, job.LastError.Valid, "last_error should be cleared")
	assert.Equal(t, 0, job.Attempts)
	assert.Equal(t, seedNow, job.NextRunAt.Time)
}

func TestSeeder_RunningKeepsLease(t *testing.T) {
	store := newMemStore()
	lease := seedNow.Add(10 * time.Minute)
	store.put(&models.Job{
		Provider:       "espn",
		JobType:        models.JobSyncResults,
		Status:         models.JobRunning,
		ScheduleRule:   "interval:900",
		LeaseExpiresAt: sql.NullTime{Time: lease, Valid: true},
	})

	report, err := newTestSeeder(store).Seed(context.Background(), []CatalogEntry{{Provider: "espn", JobType: models.JobSyncResults, ScheduleRule: "interval:600", Priority: 40}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.RunningPreserved)

	job := store.snapshot(1)
	assert.Equal(t, models.JobRunning, job.Status)
	assert.Equal(t, lease, job.LeaseExpiresAt.Time, "Reseed must not cancel a live lease")
	assert.Equal(t, "interval:600", job.ScheduleRule)
}

func TestSeeder_RejectsInvalidCatalog(t *testing.T) {
	store := newMemStore()
	seeder := newTestSeeder(store)

	_, err := seeder.Seed(context.Background(), []CatalogEntry{{Provider: "espn", JobType: "sync-odds", ScheduleRule: "interval:60"}})
	assert.ErrorIs(t, err, ErrUnknownJobType)

	_, err = seeder.Seed(context.Background(), []CatalogEntry{{Provider: "espn", JobType: models.JobSyncClubs, ScheduleRule: "every:60"}})
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	all, _ := store.List(context.Background())
	assert.Empty(t, all, "Invalid catalog should not write anything")
}
