// Package backfill decides, per league season, whether stored data is
// missing, hollow or complete, and drives the season scraper accordingly.
package backfill

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"sportsync/ingestion/internal/metrics"
	"sportsync/ingestion/internal/models"
)

// CountSource reports stored row counts for a league season
type CountSource interface {
	SeasonCounts(ctx context.Context, leagueCode string, seasonYear int) (fixtures, deep, platinum int, err error)
}

// Assessor classifies the completeness of stored season data
type Assessor struct {
	counts CountSource
}

// NewAssessor creates an assessor over counts
func NewAssessor(counts CountSource) *Assessor {
	return &Assessor{counts: counts}
}

// Assess counts what is stored for a league season and classifies it. The
// counts are read fresh on every call.
func (a *Assessor) Assess(ctx context.Context, leagueCode string, seasonYear int) (*models.SeasonHealth, error) {
	fixtures, deep, platinum, err := a.counts.SeasonCounts(ctx, leagueCode, seasonYear)
	if err != nil {
		metrics.RecordError("backfill", "assess")
		return nil, errors.Wrapf(err, "assess %s %d", leagueCode, seasonYear)
	}

	health := &models.SeasonHealth{
		LeagueCode:        leagueCode,
		SeasonYear:        seasonYear,
		FixtureCount:      fixtures,
		DeepDataCount:     deep,
		PlatinumDataCount: platinum,
		Status:            models.ClassifySeason(fixtures, deep, platinum),
	}
	metrics.RecordSeasonAssessment(string(health.Status))

	log.Debug().
		Str("league", leagueCode).
		Int("season", seasonYear).
		Int("fixtures", fixtures).
		Int("deep", deep).
		Int("platinum", platinum).
		Str("status", string(health.Status)).
		Msg("Season assessed")

	return health, nil
}
