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

var (
	operator = Principal{Name: "ops", Elevated: true}
	viewer   = Principal{Name: "viewer"}
)

func newTestConsole(store *memStore) *Console {
	registry := NewRegistry()
	_ = registry.Register(models.JobSyncLeagues, HandlerFunc(func(ctx context.Context, task Task) (Report, error) {
		return Report{}, nil
	}))
	c := NewConsole(ConsoleConfig{
		Store:      store,
		Runs:       store,
		Seeder:     newTestSeeder(store),
		Dispatcher: newTestDispatcher(store, registry),
		Catalog:    DefaultCatalog("espn", 3),
		TokenTTL:   time.Minute,
	})
	c.now = func() time.Time { return dispatchNow }
	return c
}

func TestConsole_PauseResume(t *testing.T) {
	store := newMemStore()
	job := store.put(dueJob(models.JobSyncFixtures))
	c := newTestConsole(store)
	ctx := context.Background()

	token, err := c.IssueToken(ctx, operator, ActionPause, job.ID)
	require.NoError(t, err)
	require.NoError(t, c.Perform(ctx, operator, ActionPause, job.ID, token))
	assert.Equal(t, models.JobPaused, store.snapshot(job.ID).Status)

	token, err = c.IssueToken(ctx, operator, ActionResume, job.ID)
	require.NoError(t, err)
	require.NoError(t, c.Perform(ctx, operator, ActionResume, job.ID, token))

	after := store.snapshot(job.ID)
	assert.Equal(t, models.JobPending, after.Status)
	assert.Equal(t, dispatchNow, after.NextRunAt.Time)
}

func TestConsole_RetryResetsAttempts(t *testing.T) {
	store := newMemStore()
	failed := dueJob(models.JobSyncClubs)
	failed.Status = models.JobFailed
	failed.Attempts = 3
	failed.LastError = sql.NullString{String: "boom", Valid: true}
	job := store.put(failed)
	c := newTestConsole(store)
	ctx := context.Background()

	token, err := c.IssueToken(ctx, operator, ActionRetry, job.ID)
	require.NoError(t, err)
	require.NoError(t, c.Perform(ctx, operator, ActionRetry, job.ID, token))

	after := store.snapshot(job.ID)
	assert.Equal(t, models.JobPending, after.Status)
	assert.Equal(t, 0, after.Attempts)
	assert.False(t, after.LastError.Valid)
}

func TestConsole_RunNowClearsLease(t *testing.T) {
	store := newMemStore()
	running := dueJob(models.JobSyncResults)
	running.Status = models.JobRunning
	running.LeaseExpiresAt = sql.NullTime{Time: dispatchNow.Add(time.Hour), Valid: true}
	job := store.put(running)
	c := newTestConsole(store)
	ctx := context.Background()

	token, err := c.IssueToken(ctx, operator, ActionRunNow, job.ID)
	require.NoError(t, err)
	require.NoError(t, c.Perform(ctx, operator, ActionRunNow, job.ID, token))

	after := store.snapshot(job.ID)
	assert.Equal(t, models.JobPending, after.Status)
	assert.False(t, after.LeaseExpiresAt.Valid)
	assert.True(t, after.IsDue(dispatchNow))
}

func TestConsole_DenialIsUniform(t *testing.T) {
	store := newMemStore()
	job := store.put(dueJob(models.JobSyncFixtures))
	c := newTestConsole(store)
	ctx := context.Background()

	_, err := c.IssueToken(ctx, viewer, ActionPause, job.ID)
	assert.ErrorIs(t, err, ErrDenied, "non-elevated token request")

	token, err := c.IssueToken(ctx, operator, ActionPause, job.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Perform(ctx, viewer, ActionPause, job.ID, token), ErrDenied, "non-elevated caller")

	assert.ErrorIs(t, c.Perform(ctx, operator, ActionPause, job.ID, ""), ErrDenied, "missing token")
	assert.ErrorIs(t, c.Perform(ctx, operator, ActionPause, job.ID, "forged"), ErrDenied, "unknown token")

	token, err = c.IssueToken(ctx, operator, ActionPause, job.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Perform(ctx, operator, ActionRunNow, job.ID, token), ErrDenied, "token bound to another action")

	token, err = c.IssueToken(ctx, operator, ActionPause, 999)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Perform(ctx, operator, ActionPause, 999, token), ErrDenied, "unknown job")

	token, err = c.IssueToken(ctx, operator, ActionResume, job.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Perform(ctx, operator, ActionResume, job.ID, token), ErrDenied, "resume of a job that is not paused")

	assert.ErrorIs(t, c.Perform(ctx, operator, Action("delete"), job.ID, "x"), ErrDenied, "unknown action")

	assert.Equal(t, models.JobPending, store.snapshot(job.ID).Status, "No denied action may change state")
}

func TestConsole_TokenIsSingleUse(t *testing.T) {
	store := newMemStore()
	job := store.put(dueJob(models.JobSyncFixtures))
	c := newTestConsole(store)
	ctx := context.Background()

	token, err := c.IssueToken(ctx, operator, ActionRunNow, job.ID)
	require.NoError(t, err)
	require.NoError(t, c.Perform(ctx, operator, ActionRunNow, job.ID, token))
	assert.ErrorIs(t, c.Perform(ctx, operator, ActionRunNow, job.ID, token), ErrDenied, "Replayed token must be rejected")
}

func TestConsole_SeedAndDispatch(t *testing.T) {
	store := newMemStore()
	c := newTestConsole(store)
	ctx := context.Background()

	_, err := c.SeedCatalog(ctx, viewer)
	assert.ErrorIs(t, err, ErrDenied)

	report, err := c.SeedCatalog(ctx, operator)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Inserted)

	_, err = c.DispatchOnce(ctx, operator, 0)
	assert.ErrorIs(t, err, ErrDenied)

	outcome, err := c.DispatchOnce(ctx, operator, 60)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, outcome.Status)
	assert.Equal(t, models.JobSyncLeagues, outcome.JobType, "sync-leagues has the lowest priority value")

	runs, err := c.Runs(ctx, operator, outcome.JobID, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	jobs, err := c.Jobs(ctx, operator)
	require.NoError(t, err)
	assert.Len(t, jobs, 5)
}

func TestMemoryTokenStore_Expiry(t *testing.T) {
	s := NewMemoryTokenStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "t1", "pause:1", time.Minute))
	now = now.Add(2 * time.Minute)

	_, ok, err := s.Take(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, ok, "Expired token should not redeem")
}

type fakeKV struct {
	data map[string]string
}

func (f *fakeKV) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = value
	return true, nil
}

func (f *fakeKV) GetDel(ctx context.Context, key string) (string, bool, error) {
	v, ok := f.data[key]
	delete(f.data, key)
	return v, ok, nil
}

func TestSharedTokenStore(t *testing.T) {
	kv := &fakeKV{data: map[string]string{}}
	s := NewSharedTokenStore(kv)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "abc", "retry:4", time.Minute))
	assert.Contains(t, kv.data, "sportsync:confirm:abc")
	assert.Error(t, s.Put(ctx, "abc", "retry:5", time.Minute))

	binding, ok, err := s.Take(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "retry:4", binding)

	_, ok, err = s.Take(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	noop := HandlerFunc(func(ctx context.Context, task Task) (Report, error) { return Report{}, nil })

	require.NoError(t, r.Register(models.JobSyncClubs, noop))
	assert.Error(t, r.Register(models.JobSyncClubs, noop), "Duplicate registration")
	assert.ErrorIs(t, r.Register("sync-odds", noop), ErrUnknownJobType)
	assert.Error(t, r.Register(models.JobSyncLeagues, nil))

	_, ok := r.Lookup(models.JobSyncClubs)
	assert.True(t, ok)
	_, ok = r.Lookup(models.JobSyncFixtures)
	assert.False(t, ok)
	assert.Equal(t, []models.JobType{models.JobSyncClubs}, r.Types())
}

func TestReport_Summary(t *testing.T) {
	var r Report
	r.Count("upserted", 3)
	r.Count("errors", 1)
	r.Count("upserted", 2)
	r.Notef("league %s unsupported", "xyz.9")
	assert.Equal(t, "errors=1 upserted=5 league xyz.9 unsupported", r.Summary())
}
