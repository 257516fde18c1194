package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"sportsync/ingestion/internal/backfill"
	"sportsync/ingestion/internal/jobs"
	"sportsync/ingestion/internal/metrics"
)

// maxPassesPerTick bounds how many jobs one loop runs before waiting for the next tick
const maxPassesPerTick = 50

// Dispatcher runs a single dispatch pass
type Dispatcher interface {
	DispatchOnce(ctx context.Context, lease time.Duration) (*jobs.Outcome, error)
}

// Backfiller walks league seasons and scrapes incomplete ones
type Backfiller interface {
	Run(ctx context.Context, leagues []string, from, to int, dryRun bool) (*backfill.Summary, error)
}

// Config tunes the scheduler loops
type Config struct {
	Interval    time.Duration
	Lease       time.Duration
	Concurrency int

	EnableBackfillCron bool
	BackfillCron       string
	BackfillLeagues    []string
	BackfillFrom       int
	BackfillTo         int
}

// Scheduler drives the dispatcher on a fixed interval from one or more
// concurrent loops, and optionally runs a nightly backfill walk. Loops only
// coordinate through the job store's conditional claim.
type Scheduler struct {
	cfg        Config
	dispatcher Dispatcher
	backfiller Backfiller
	cron       *cron.Cron
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// NewScheduler creates a new scheduler instance. backfiller may be nil when
// the nightly walk is disabled.
func NewScheduler(cfg Config, dispatcher Dispatcher, backfiller Backfiller) *Scheduler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Scheduler{
		cfg:        cfg,
		dispatcher: dispatcher,
		backfiller: backfiller,
		cron:       cron.New(),
		stopChan:   make(chan struct{}),
	}
}

// Start starts the dispatch loops and, when enabled, the backfill cron
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Interval <= 0 {
		return errors.Newf("dispatch interval must be positive, got %s", s.cfg.Interval)
	}
	if s.cfg.Lease <= 0 {
		return errors.Newf("lease must be positive, got %s", s.cfg.Lease)
	}

	log.Info().Msg("Scheduler starting...")

	if s.cfg.EnableBackfillCron {
		if s.backfiller == nil {
			return errors.New("backfill cron enabled without a backfiller")
		}
		if _, err := s.cron.AddFunc(s.cfg.BackfillCron, func() {
			s.runBackfill(ctx)
		}); err != nil {
			return errors.Wrapf(err, "failed to schedule backfill %q", s.cfg.BackfillCron)
		}
		s.cron.Start()
		log.Info().
			Str("schedule", s.cfg.BackfillCron).
			Msg("Nightly backfill scheduled")
	}

	for i := 0; i < s.cfg.Concurrency; i++ {
		s.wg.Add(1)
		go s.dispatchLoop(ctx, i)
	}

	log.Info().
		Dur("interval", s.cfg.Interval).
		Dur("lease", s.cfg.Lease).
		Int("loops", s.cfg.Concurrency).
		Msg("Dispatch loops started")

	return nil
}

// Stop stops the loops and waits for in-flight passes to return
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		log.Info().Msg("Stopping scheduler...")

		cronCtx := s.cron.Stop()
		close(s.stopChan)
		s.wg.Wait()
		<-cronCtx.Done()

		log.Info().Msg("Scheduler stopped")
	})
}

func (s *Scheduler) dispatchLoop(ctx context.Context, loop int) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Int("loop", loop).Msg("Context cancelled, stopping dispatch loop")
			return
		case <-s.stopChan:
			log.Info().Int("loop", loop).Msg("Stop signal received, stopping dispatch loop")
			return
		case <-ticker.C:
			s.drain(ctx, loop)
		}
	}
}

// drain runs dispatch passes until nothing is due, a store error occurs or
// the scheduler is stopped
func (s *Scheduler) drain(ctx context.Context, loop int) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerIteration(time.Since(start).Seconds())
	}()

	for i := 0; i < maxPassesPerTick; i++ {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		default:
		}

		outcome, err := s.dispatcher.DispatchOnce(ctx, s.cfg.Lease)
		if err != nil {
			metrics.RecordError("scheduler", "dispatch")
			log.Error().Err(err).Int("loop", loop).Msg("Dispatch pass failed")
			return
		}
		if outcome.Status == jobs.OutcomeNothingDue {
			return
		}

		event := log.Info()
		if outcome.Status == jobs.OutcomeFailed {
			event = log.Warn()
		}
		event.
			Int("loop", loop).
			Int64("job_id", outcome.JobID).
			Str("job_type", string(outcome.JobType)).
			Msg(outcome.Summary())
	}
}

func (s *Scheduler) runBackfill(ctx context.Context) {
	log.Info().Msg("Running nightly backfill...")

	summary, err := s.backfiller.Run(ctx, s.cfg.BackfillLeagues, s.cfg.BackfillFrom, s.cfg.BackfillTo, false)
	if err != nil {
		log.Error().Err(err).Msg("Nightly backfill failed")
		return
	}

	log.Info().
		Str("summary", summary.Summary()).
		Msg("Nightly backfill complete")
}
