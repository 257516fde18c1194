package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// JobStatus is the lifecycle state of a sync job
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobSuccess JobStatus = "success"
	JobFailed  JobStatus = "failed"
	JobPaused  JobStatus = "paused"
)

// JobType is the closed set of handler tags a job can carry
type JobType string

const (
	JobSyncLeagues    JobType = "sync-leagues"
	JobSyncClubs      JobType = "sync-clubs"
	JobSyncFixtures   JobType = "sync-fixtures"
	JobSyncResults    JobType = "sync-results"
	JobBackfillSeason JobType = "backfill-season"
)

// KnownJobTypes lists every job type a handler can be registered for
var KnownJobTypes = []JobType{
	JobSyncLeagues,
	JobSyncClubs,
	JobSyncFixtures,
	JobSyncResults,
	JobBackfillSeason,
}

// IsKnown reports whether t is one of the registered job type tags
func (t JobType) IsKnown() bool {
	for _, k := range KnownJobTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Job represents one persisted unit of scheduled ingestion work
type Job struct {
	ID              int64           `db:"id"`
	Provider        string          `db:"provider"`
	JobType         JobType         `db:"job_type"`
	Status          JobStatus       `db:"status"`
	Priority        int             `db:"priority"`
	SeasonYear      sql.NullInt32   `db:"season_year"`
	CompetitionCode sql.NullString  `db:"competition_code"`
	Payload         json.RawMessage `db:"payload"`
	ScheduleRule    string          `db:"schedule_rule"`
	NextRunAt       sql.NullTime    `db:"next_run_at"`
	LastRunAt       sql.NullTime    `db:"last_run_at"`
	Attempts        int             `db:"attempts"`
	MaxAttempts     int             `db:"max_attempts"`
	LeaseExpiresAt  sql.NullTime    `db:"lease_expires_at"`
	LeaseOwner      sql.NullString  `db:"lease_owner"`
	LastError       sql.NullString  `db:"last_error"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// IsDue reports whether the job is pending and its next run time has passed
func (j *Job) IsDue(now time.Time) bool {
	return j.Status == JobPending && j.NextRunAt.Valid && !j.NextRunAt.Time.After(now)
}

// LeaseExpired reports whether a running job's lease has lapsed
func (j *Job) LeaseExpired(now time.Time) bool {
	return j.Status == JobRunning && j.LeaseExpiresAt.Valid && j.LeaseExpiresAt.Time.Before(now)
}

// Transition is a completed run's effect on the job row, applied only while
// the row is still running.
type Transition struct {
	Status    JobStatus
	NextRunAt sql.NullTime
	Attempts  int
	LastError sql.NullString
}
