package jobs

import (
	"database/sql"
	"math"
	"strconv"
	"strings"
	"time"

	"sportsync/ingestion/internal/models"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"
)

// RuleOnce marks a job that runs a single time and then stays in success
const RuleOnce = "once"

// Schedule computes the next run time of a recurring job
type Schedule interface {
	Next(from time.Time) time.Time
}

type intervalSchedule struct {
	every time.Duration
}

func (s intervalSchedule) Next(from time.Time) time.Time {
	return from.Add(s.every)
}

// ParseSchedule parses a schedule rule. Supported forms are
// "interval:<seconds>", "cron:<5-field expression>" and "once". A nil
// Schedule with a nil error means the job is one-shot.
func ParseSchedule(rule string) (Schedule, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" || rule == RuleOnce {
		return nil, nil
	}

	kind, arg, ok := strings.Cut(rule, ":")
	if !ok {
		return nil, errors.Wrapf(ErrInvalidSchedule, "%q", rule)
	}

	switch kind {
	case "interval":
		secs, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil || secs <= 0 {
			return nil, errors.Wrapf(ErrInvalidSchedule, "interval must be a positive number of seconds: %q", rule)
		}
		return intervalSchedule{every: time.Duration(secs) * time.Second}, nil
	case "cron":
		sched, err := cron.ParseStandard(strings.TrimSpace(arg))
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidSchedule, "%q: %v", rule, err)
		}
		return sched, nil
	default:
		return nil, errors.Wrapf(ErrInvalidSchedule, "unknown rule kind %q", kind)
	}
}

// RetryPolicy controls how far a failed job's next attempt is pushed out
type RetryPolicy struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultRetryPolicy doubles from one minute up to an hour
var DefaultRetryPolicy = RetryPolicy{Base: time.Minute, Max: time.Hour}

// Delay returns the backoff after the given number of failed attempts:
// Base * 2^(attempts-1), capped at Max.
func (p RetryPolicy) Delay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	base, ceiling := p.Base, p.Max
	if base <= 0 {
		base = DefaultRetryPolicy.Base
	}
	if ceiling <= 0 {
		ceiling = DefaultRetryPolicy.Max
	}

	factor := math.Pow(2, float64(attempts-1))
	if factor > float64(ceiling)/float64(base) {
		return ceiling
	}
	return time.Duration(float64(base) * factor)
}

// SuccessTransition clears the lease and error of a finished job. Recurring
// jobs go back to pending at their next scheduled time; one-shot jobs stay
// in success.
func SuccessTransition(job *models.Job, now time.Time) models.Transition {
	t := models.Transition{Status: models.JobSuccess}

	sched, err := ParseSchedule(job.ScheduleRule)
	if err != nil || sched == nil {
		return t
	}

	t.Status = models.JobPending
	t.NextRunAt = sql.NullTime{Time: sched.Next(now), Valid: true}
	return t
}

// FailureTransition counts the failed attempt. The job is rescheduled with
// backoff while attempts remain, otherwise it becomes terminally failed.
func FailureTransition(job *models.Job, now time.Time, policy RetryPolicy, cause string) models.Transition {
	attempts := job.Attempts + 1
	t := models.Transition{
		Attempts:  attempts,
		LastError: sql.NullString{String: cause, Valid: true},
	}

	if attempts < job.MaxAttempts {
		t.Status = models.JobPending
		t.NextRunAt = sql.NullTime{Time: now.Add(policy.Delay(attempts)), Valid: true}
		return t
	}

	t.Status = models.JobFailed
	return t
}
