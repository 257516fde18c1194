package jobs

import (
	"context"
	"fmt"
	"os"
	"time"

	"sportsync/ingestion/internal/metrics"
	"sportsync/ingestion/internal/models"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultCandidates  = 10
	defaultOutputLimit = 4096
)

// OutcomeStatus summarizes a dispatch pass
type OutcomeStatus string

const (
	OutcomeNothingDue OutcomeStatus = "nothing_due"
	OutcomeSucceeded  OutcomeStatus = "success"
	OutcomeFailed     OutcomeStatus = "failed"
)

// Outcome is the result of one DispatchOnce call
type Outcome struct {
	Status    OutcomeStatus  `json:"status"`
	Recovered int            `json:"recovered"`
	JobID     int64          `json:"job_id,omitempty"`
	JobType   models.JobType `json:"job_type,omitempty"`
	RunID     int64          `json:"run_id,omitempty"`
	Duration  time.Duration  `json:"duration_ns,omitempty"`
	Output    string         `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	Terminal  bool           `json:"terminal,omitempty"`
	Report    Report         `json:"-"`
}

// Summary returns a one-line description of the outcome
func (o *Outcome) Summary() string {
	switch o.Status {
	case OutcomeNothingDue:
		return fmt.Sprintf("nothing due (recovered=%d)", o.Recovered)
	case OutcomeSucceeded:
		return fmt.Sprintf("job %d (%s) succeeded in %s: %s", o.JobID, o.JobType, o.Duration.Round(time.Millisecond), o.Output)
	default:
		state := "will retry"
		if o.Terminal {
			state = "attempts exhausted"
		}
		return fmt.Sprintf("job %d (%s) failed in %s, %s: %s", o.JobID, o.JobType, o.Duration.Round(time.Millisecond), state, o.Error)
	}
}

// DispatcherConfig tunes a Dispatcher
type DispatcherConfig struct {
	WorkerID    string
	Candidates  int
	Retry       RetryPolicy
	OutputLimit int
}

// Dispatcher claims and runs at most one due job per call. Mutual exclusion
// between concurrent dispatchers comes entirely from Store.Claim.
type Dispatcher struct {
	store    Store
	runs     RunLog
	registry *Registry
	cfg      DispatcherConfig
	now      func() time.Time
}

// NewDispatcher creates a dispatcher
func NewDispatcher(store Store, runs RunLog, registry *Registry, cfg DispatcherConfig) *Dispatcher {
	if cfg.WorkerID == "" {
		cfg.WorkerID = DefaultWorkerID()
	}
	if cfg.Candidates < 1 {
		cfg.Candidates = defaultCandidates
	}
	if cfg.OutputLimit < 1 {
		cfg.OutputLimit = defaultOutputLimit
	}
	if cfg.Retry.Base <= 0 || cfg.Retry.Max <= 0 {
		cfg.Retry = DefaultRetryPolicy
	}
	return &Dispatcher{
		store:    store,
		runs:     runs,
		registry: registry,
		cfg:      cfg,
		now:      time.Now,
	}
}

// DefaultWorkerID identifies this process in lease_owner
func DefaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return host + "-" + uuid.NewString()[:8]
}

// WorkerID returns the identity this dispatcher claims leases under
func (d *Dispatcher) WorkerID() string {
	return d.cfg.WorkerID
}

// DispatchOnce recovers stale leases, claims the highest-priority due job
// and runs it with the given lease. Store failures are returned as errors;
// handler failures are reported in the Outcome.
func (d *Dispatcher) DispatchOnce(ctx context.Context, lease time.Duration) (*Outcome, error) {
	if lease <= 0 {
		return nil, errors.Newf("lease must be positive, got %s", lease)
	}

	now := d.now().UTC()
	outcome := &Outcome{Status: OutcomeNothingDue}

	recovered, err := d.store.RecoverStaleLeases(ctx, now)
	if err != nil {
		return nil, errors.Wrap(err, "recover stale leases")
	}
	outcome.Recovered = len(recovered)
	for _, job := range recovered {
		log.Warn().
			Int64("job_id", job.ID).
			Str("job_type", string(job.JobType)).
			Str("lease_owner", job.LeaseOwner.String).
			Msg("Recovered job with expired lease")
	}
	if len(recovered) > 0 {
		metrics.RecordLeasesRecovered(len(recovered))
	}

	job, err := d.claimNext(ctx, now, lease)
	if err != nil {
		return nil, err
	}
	if job == nil {
		metrics.RecordDispatchIdle()
		log.Debug().Msg("No jobs due")
		return outcome, nil
	}

	outcome.JobID = job.ID
	outcome.JobType = job.JobType
	d.execute(ctx, job, outcome)
	return outcome, nil
}

func (d *Dispatcher) claimNext(ctx context.Context, now time.Time, lease time.Duration) (*models.Job, error) {
	candidates, err := d.store.ListDue(ctx, now, d.cfg.Candidates)
	if err != nil {
		return nil, errors.Wrap(err, "list due jobs")
	}

	for _, candidate := range candidates {
		job, ok, err := d.store.Claim(ctx, candidate.ID, d.cfg.WorkerID, now, now.Add(lease))
		if err != nil {
			return nil, errors.Wrapf(err, "claim job %d", candidate.ID)
		}
		if ok {
			log.Info().
				Int64("job_id", job.ID).
				Str("job_type", string(job.JobType)).
				Time("lease_expires_at", job.LeaseExpiresAt.Time).
				Msg("Claimed job")
			return job, nil
		}
		log.Debug().Int64("job_id", candidate.ID).Msg("Lost claim race, trying next candidate")
	}
	return nil, nil
}

func (d *Dispatcher) execute(ctx context.Context, job *models.Job, outcome *Outcome) {
	start := d.now().UTC()

	runID, err := d.runs.StartRun(ctx, job.ID, start)
	if err != nil {
		// the lease expires and the job is recovered without an attempt counted
		outcome.Status = OutcomeFailed
		outcome.Error = fmt.Sprintf("failed to open run log: %v", err)
		log.Error().Err(err).Int64("job_id", job.ID).Msg("Failed to open run log entry")
		return
	}
	outcome.RunID = runID

	var report Report
	var runErr error
	handler, ok := d.registry.Lookup(job.JobType)
	if !ok {
		runErr = errors.Newf("no handler registered for job type %q", job.JobType)
	} else {
		report, runErr = invoke(ctx, handler, TaskFromJob(job))
	}

	finished := d.now().UTC()
	outcome.Duration = finished.Sub(start)
	outcome.Report = report
	outcome.Output = clip(report.Summary(), d.cfg.OutputLimit)

	if ctx.Err() != nil {
		d.abandon(ctx, job, runID, finished, outcome)
		return
	}

	result := models.RunResult{
		FinishedAt: finished,
		Runtime:    outcome.Duration,
		Output:     outcome.Output,
	}

	var transition models.Transition
	if runErr == nil {
		outcome.Status = OutcomeSucceeded
		result.ExitStatus = models.RunSucceeded
		transition = SuccessTransition(job, finished)
	} else {
		outcome.Status = OutcomeFailed
		outcome.Error = clip(runErr.Error(), d.cfg.OutputLimit)
		result.ExitStatus = models.RunFailed
		result.Error = outcome.Error
		transition = FailureTransition(job, finished, d.cfg.Retry, outcome.Error)
		outcome.Terminal = transition.Status == models.JobFailed
	}

	if err := d.runs.FinishRun(ctx, runID, result); err != nil {
		log.Error().Err(err).Int64("job_id", job.ID).Int64("run_id", runID).Msg("Failed to close run log entry")
	}

	applied, err := d.store.Complete(ctx, job.ID, d.cfg.WorkerID, transition)
	switch {
	case err != nil:
		log.Error().Err(err).Int64("job_id", job.ID).Msg("Failed to record job completion")
	case !applied:
		log.Warn().
			Int64("job_id", job.ID).
			Str("job_type", string(job.JobType)).
			Msg("Job left running state while handler ran, completion not applied")
	}

	metrics.RecordJobRun(string(job.JobType), string(outcome.Status), outcome.Duration.Seconds())

	event := log.Info()
	if outcome.Status == OutcomeFailed {
		event = log.Warn().Str("error", outcome.Error).Int("attempts", transition.Attempts)
		if outcome.Terminal {
			metrics.RecordTerminalFailure(string(job.JobType))
			event = log.Error().Str("error", outcome.Error).Int("attempts", transition.Attempts)
		}
	}
	event.
		Int64("job_id", job.ID).
		Int64("run_id", runID).
		Str("job_type", string(job.JobType)).
		Str("status", string(transition.Status)).
		Dur("duration", outcome.Duration).
		Str("output", outcome.Output).
		Msg("Job run finished")
}

// abandon closes the run after shutdown interrupted the handler. The job row
// is left running so lease recovery returns it to pending.
func (d *Dispatcher) abandon(ctx context.Context, job *models.Job, runID int64, finished time.Time, outcome *Outcome) {
	outcome.Status = OutcomeFailed
	outcome.Error = "interrupted by shutdown"

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := d.runs.FinishRun(closeCtx, runID, models.RunResult{
		FinishedAt: finished,
		ExitStatus: models.RunFailed,
		Runtime:    outcome.Duration,
		Output:     outcome.Output,
		Error:      outcome.Error,
	})
	if err != nil {
		log.Error().Err(err).Int64("run_id", runID).Msg("Failed to close interrupted run")
	}
	log.Warn().Int64("job_id", job.ID).Msg("Job interrupted, lease left to expire")
}

func invoke(ctx context.Context, h Handler, task Task) (report Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("handler panicked: %v", r)
		}
	}()
	return h.Run(ctx, task)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
