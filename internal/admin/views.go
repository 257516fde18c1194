package admin

import (
	"database/sql"
	"encoding/json"
	"time"

	"sportsync/ingestion/internal/models"
)

type jobView struct {
	ID              int64            `json:"id"`
	Provider        string           `json:"provider"`
	JobType         models.JobType   `json:"job_type"`
	Status          models.JobStatus `json:"status"`
	Priority        int              `json:"priority"`
	SeasonYear      *int32           `json:"season_year,omitempty"`
	CompetitionCode *string          `json:"competition_code,omitempty"`
	Payload         json.RawMessage  `json:"payload,omitempty"`
	ScheduleRule    string           `json:"schedule_rule"`
	NextRunAt       *time.Time       `json:"next_run_at"`
	LastRunAt       *time.Time       `json:"last_run_at"`
	Attempts        int              `json:"attempts"`
	MaxAttempts     int              `json:"max_attempts"`
	LeaseExpiresAt  *time.Time       `json:"lease_expires_at,omitempty"`
	LeaseOwner      *string          `json:"lease_owner,omitempty"`
	LastError       *string          `json:"last_error,omitempty"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type runView struct {
	ID         int64      `json:"id"`
	JobID      int64      `json:"job_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	ExitStatus *string    `json:"exit_status"`
	RuntimeMS  *int64     `json:"runtime_ms"`
	OutputText *string    `json:"output_text,omitempty"`
	ErrorText  *string    `json:"error_text,omitempty"`
}

func jobViews(list []*models.Job) []jobView {
	out := make([]jobView, 0, len(list))
	for _, j := range list {
		v := jobView{
			ID:              j.ID,
			Provider:        j.Provider,
			JobType:         j.JobType,
			Status:          j.Status,
			Priority:        j.Priority,
			CompetitionCode: nullString(j.CompetitionCode),
			ScheduleRule:    j.ScheduleRule,
			NextRunAt:       nullTime(j.NextRunAt),
			LastRunAt:       nullTime(j.LastRunAt),
			Attempts:        j.Attempts,
			MaxAttempts:     j.MaxAttempts,
			LeaseExpiresAt:  nullTime(j.LeaseExpiresAt),
			LeaseOwner:      nullString(j.LeaseOwner),
			LastError:       nullString(j.LastError),
			UpdatedAt:       j.UpdatedAt,
		}
		if j.SeasonYear.Valid {
			season := j.SeasonYear.Int32
			v.SeasonYear = &season
		}
		if len(j.Payload) > 0 && json.Valid(j.Payload) {
			v.Payload = j.Payload
		}
		out = append(out, v)
	}
	return out
}

func runViews(list []*models.JobRun) []runView {
	out := make([]runView, 0, len(list))
	for _, r := range list {
		v := runView{
			ID:         r.ID,
			JobID:      r.JobID,
			StartedAt:  r.StartedAt,
			FinishedAt: nullTime(r.FinishedAt),
			ExitStatus: nullString(r.ExitStatus),
			OutputText: nullString(r.OutputText),
			ErrorText:  nullString(r.ErrorText),
		}
		if r.RuntimeMS.Valid {
			ms := r.RuntimeMS.Int64
			v.RuntimeMS = &ms
		}
		out = append(out, v)
	}
	return out
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
