package jobs

import (
	"database/sql"
	"testing"
	"time"

	"sportsync/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule(t *testing.T) {
	from := time.Date(2024, 3, 10, 10, 30, 0, 0, time.UTC)

	sched, err := ParseSchedule("interval:900")
	require.NoError(t, err)
	assert.Equal(t, from.Add(15*time.Minute), sched.Next(from))

	sched, err = ParseSchedule("cron:0 4 * * *")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 11, 4, 0, 0, 0, time.UTC), sched.Next(from))

	sched, err = ParseSchedule("once")
	require.NoError(t, err)
	assert.Nil(t, sched)

	sched, err = ParseSchedule("")
	require.NoError(t, err)
	assert.Nil(t, sched)

	for _, bad := range []string{"interval:0", "interval:abc", "cron:not a cron", "hourly", "weekly:1"} {
		_, err := ParseSchedule(bad)
		assert.ErrorIs(t, err, ErrInvalidSchedule, bad)
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{Base: time.Minute, Max: 10 * time.Minute}

	assert.Equal(t, time.Minute, p.Delay(1))
	assert.Equal(t, 2*time.Minute, p.Delay(2))
	assert.Equal(t, 4*time.Minute, p.Delay(3))
	assert.Equal(t, 8*time.Minute, p.Delay(4))
	assert.Equal(t, 10*time.Minute, p.Delay(5), "Should cap at Max")
	assert.Equal(t, 10*time.Minute, p.Delay(64), "Large attempt counts must not overflow")
}

func TestSuccessTransition(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	recurring := &models.Job{ScheduleRule: "interval:60", Attempts: 2}
	tr := SuccessTransition(recurring, now)
	assert.Equal(t, models.JobPending, tr.Status)
	assert.Equal(t, now.Add(time.Minute), tr.NextRunAt.Time)
	assert.Equal(t, 0, tr.Attempts)
	assert.False(t, tr.LastError.Valid)

	oneShot := &models.Job{ScheduleRule: "once"}
	tr = SuccessTransition(oneShot, now)
	assert.Equal(t, models.JobSuccess, tr.Status)
	assert.False(t, tr.NextRunAt.Valid)
}

func TestFailureTransition(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	policy := RetryPolicy{Base: time.Minute, Max: time.Hour}

	job := &models.Job{Attempts: 0, MaxAttempts: 3, LastError: sql.NullString{String: "old", Valid: true}}
	tr := FailureTransition(job, now, policy, "timeout")
	assert.Equal(t, models.JobPending, tr.Status)
	assert.Equal(t, 1, tr.Attempts)
	assert.Equal(t, "timeout", tr.LastError.String)
	assert.Equal(t, now.Add(time.Minute), tr.NextRunAt.Time)

	job.Attempts = 2
	tr = FailureTransition(job, now, policy, "still failing")
	assert.Equal(t, models.JobFailed, tr.Status)
	assert.Equal(t, 3, tr.Attempts)
	assert.False(t, tr.NextRunAt.Valid)
	assert.Equal(t, "still failing", tr.LastError.String)
}
