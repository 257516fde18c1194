package models

import (
	"database/sql"
	"time"
)

// RunExitStatus is the outcome recorded for a finished run
type RunExitStatus string

const (
	RunSucceeded RunExitStatus = "success"
	RunFailed    RunExitStatus = "failed"
)

// JobRun is the append-only audit record of a single handler invocation
type JobRun struct {
	ID         int64          `db:"id"`
	JobID      int64          `db:"job_id"`
	StartedAt  time.Time      `db:"started_at"`
	FinishedAt sql.NullTime   `db:"finished_at"`
	ExitStatus sql.NullString `db:"exit_status"`
	RuntimeMS  sql.NullInt64  `db:"runtime_ms"`
	OutputText sql.NullString `db:"output_text"`
	ErrorText  sql.NullString `db:"error_text"`
}

// RunResult closes a JobRun
type RunResult struct {
	FinishedAt time.Time
	ExitStatus RunExitStatus
	Runtime    time.Duration
	Output     string
	Error      string
}
