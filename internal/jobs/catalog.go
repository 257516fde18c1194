package jobs

import (
	"sportsync/ingestion/internal/models"

	"github.com/cockroachdb/errors"
)

// DefaultMaxAttempts applies to catalog entries that do not set one
const DefaultMaxAttempts = 3

// CatalogEntry is the canonical definition of one recurring job
type CatalogEntry struct {
	Provider     string
	JobType      models.JobType
	ScheduleRule string
	Priority     int
	MaxAttempts  int
}

// Validate checks the entry's type tag and schedule rule
func (e CatalogEntry) Validate() error {
	if e.Provider == "" {
		return errors.Newf("catalog entry %q has no provider", e.JobType)
	}
	if !e.JobType.IsKnown() {
		return errors.Wrapf(ErrUnknownJobType, "%q", e.JobType)
	}
	if _, err := ParseSchedule(e.ScheduleRule); err != nil {
		return errors.Wrapf(err, "catalog entry %s/%s", e.Provider, e.JobType)
	}
	return nil
}

// DefaultCatalog returns the recurring jobs every deployment runs
func DefaultCatalog(provider string, maxAttempts int) []CatalogEntry {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return []CatalogEntry{
		{Provider: provider, JobType: models.JobSyncLeagues, ScheduleRule: "interval:86400", Priority: 10, MaxAttempts: maxAttempts},
		{Provider: provider, JobType: models.JobSyncClubs, ScheduleRule: "interval:86400", Priority: 20, MaxAttempts: maxAttempts},
		{Provider: provider, JobType: models.JobSyncFixtures, ScheduleRule: "interval:3600", Priority: 30, MaxAttempts: maxAttempts},
		{Provider: provider, JobType: models.JobSyncResults, ScheduleRule: "interval:900", Priority: 40, MaxAttempts: maxAttempts},
		{Provider: provider, JobType: models.JobBackfillSeason, ScheduleRule: "cron:0 4 * * *", Priority: 90, MaxAttempts: maxAttempts},
	}
}
