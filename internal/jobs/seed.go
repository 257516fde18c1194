package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sportsync/ingestion/internal/models"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
)

// SeedReport counts what a seeding pass changed
type SeedReport struct {
	Inserted          int `json:"inserted"`
	Reconciled        int `json:"reconciled"`
	DuplicatesRemoved int `json:"duplicates_removed"`
	PausedPreserved   int `json:"paused_preserved"`
	RunningPreserved  int `json:"running_preserved"`
}

// Summary returns a human-readable summary of the seed pass
func (r *SeedReport) Summary() string {
	return fmt.Sprintf(
		"inserted=%d reconciled=%d duplicates_removed=%d paused_preserved=%d running_preserved=%d",
		r.Inserted, r.Reconciled, r.DuplicatesRemoved, r.PausedPreserved, r.RunningPreserved,
	)
}

// Seeder reconciles the job table with a catalog of canonical definitions.
// Running it any number of times leaves exactly one row per
// (provider, job_type) and never unpauses an operator-paused job.
type Seeder struct {
	store Store
	now   func() time.Time
}

// NewSeeder creates a seeder over store
func NewSeeder(store Store) *Seeder {
	return &Seeder{store: store, now: time.Now}
}

// Seed applies catalog to the store
func (s *Seeder) Seed(ctx context.Context, catalog []CatalogEntry) (*SeedReport, error) {
	for _, entry := range catalog {
		if err := entry.Validate(); err != nil {
			return nil, err
		}
	}

	report := &SeedReport{}
	now := s.now().UTC()

	for _, entry := range catalog {
		if err := s.seedEntry(ctx, entry, now, report); err != nil {
			return report, errors.Wrapf(err, "seed %s/%s", entry.Provider, entry.JobType)
		}
	}

	log.Info().
		Int("entries", len(catalog)).
		Str("summary", report.Summary()).
		Msg("Job catalog seeded")

	return report, nil
}

func (s *Seeder) seedEntry(ctx context.Context, entry CatalogEntry, now time.Time, report *SeedReport) error {
	existing, err := s.store.ListByKind(ctx, entry.Provider, entry.JobType)
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		maxAttempts := entry.MaxAttempts
		if maxAttempts < 1 {
			maxAttempts = DefaultMaxAttempts
		}
		job := &models.Job{
			Provider:     entry.Provider,
			JobType:      entry.JobType,
			Status:       models.JobPending,
			Priority:     entry.Priority,
			ScheduleRule: entry.ScheduleRule,
			NextRunAt:    sql.NullTime{Time: now, Valid: true},
			MaxAttempts:  maxAttempts,
		}
		if err := s.store.Insert(ctx, job); err != nil {
			return err
		}
		report.Inserted++
		log.Info().
			Int64("job_id", job.ID).
			Str("job_type", string(job.JobType)).
			Msg("Seeded new job")
		return nil
	}

	canonical := existing[0]
	if len(existing) > 1 {
		ids := make([]int64, 0, len(existing)-1)
		for _, dup := range existing[1:] {
			ids = append(ids, dup.ID)
		}
		removed, err := s.store.Delete(ctx, ids)
		if err != nil {
			return err
		}
		report.DuplicatesRemoved += int(removed)
		log.Warn().
			Int64("canonical_id", canonical.ID).
			Interface("removed_ids", ids).
			Str("job_type", string(entry.JobType)).
			Msg("Collapsed duplicate job rows")
	}

	status, err := s.store.Reseed(ctx, canonical.ID, entry.ScheduleRule, entry.Priority, now)
	if err != nil {
		return err
	}
	report.Reconciled++

	switch status {
	case models.JobPaused:
		report.PausedPreserved++
	case models.JobRunning:
		report.RunningPreserved++
	}
	return nil
}
