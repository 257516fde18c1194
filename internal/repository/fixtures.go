package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"sportsync/ingestion/internal/models"
)

// FixtureRepository handles fixture database operations
type FixtureRepository struct {
	db *Database
}

const fixtureColumns = `
	id, provider_event_id, league_code, season_year, kickoff_at, status,
	home_club_id, away_club_id, home_club_name, away_club_name, venue,
	home_score, away_score, created_at, updated_at`

func scanFixture(row pgx.Row) (*models.Fixture, error) {
	var f models.Fixture
	err := row.Scan(
		&f.ID, &f.ProviderEventID, &f.LeagueCode, &f.SeasonYear, &f.KickoffAt, &f.Status,
		&f.HomeClubID, &f.AwayClubID, &f.HomeClubName, &f.AwayClubName, &f.Venue,
		&f.HomeScore, &f.AwayScore, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FixtureRepository) query(ctx context.Context, what, query string, args ...interface{}) ([]*models.Fixture, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}
	defer rows.Close()

	var fixtures []*models.Fixture
	for rows.Next() {
		f, err := scanFixture(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fixture: %w", err)
		}
		fixtures = append(fixtures, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", what, err)
	}

	return fixtures, nil
}

// Upsert inserts or updates a fixture keyed by provider event id. inserted
// reports whether the row is new.
func (r *FixtureRepository) Upsert(ctx context.Context, f *models.Fixture) (bool, error) {
	query := `
		INSERT INTO fixtures (
			provider_event_id, league_code, season_year, kickoff_at, status,
			home_club_id, away_club_id, home_club_name, away_club_name, venue,
			home_score, away_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (provider_event_id) DO UPDATE SET
			league_code = EXCLUDED.league_code,
			season_year = EXCLUDED.season_year,
			kickoff_at = EXCLUDED.kickoff_at,
			status = EXCLUDED.status,
			home_club_id = EXCLUDED.home_club_id,
			away_club_id = EXCLUDED.away_club_id,
			home_club_name = EXCLUDED.home_club_name,
			away_club_name = EXCLUDED.away_club_name,
			venue = COALESCE(EXCLUDED.venue, fixtures.venue),
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`

	var inserted bool
	start := time.Now()
	err := r.db.Pool.QueryRow(
		ctx, query,
		f.ProviderEventID, f.LeagueCode, f.SeasonYear, f.KickoffAt, f.Status,
		f.HomeClubID, f.AwayClubID, f.HomeClubName, f.AwayClubName, f.Venue,
		f.HomeScore, f.AwayScore,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt, &inserted)
	observe("upsert", "fixtures", start, err)

	if err != nil {
		return false, fmt.Errorf("failed to upsert fixture: %w", err)
	}

	log.Debug().
		Int64("id", f.ID).
		Str("event_id", f.ProviderEventID).
		Str("home", f.HomeClubName).
		Str("away", f.AwayClubName).
		Bool("inserted", inserted).
		Msg("Fixture upserted")

	return inserted, nil
}

// ListForDeepData retrieves final fixtures of a league season that have no
// lineups or no commentary stored yet
func (r *FixtureRepository) ListForDeepData(ctx context.Context, leagueCode string, seasonYear int) ([]*models.Fixture, error) {
	query := `SELECT ` + fixtureColumns + `
		FROM fixtures f
		WHERE f.league_code = $1
		  AND f.season_year = $2
		  AND f.status = 'final'
		  AND (
			NOT EXISTS (SELECT 1 FROM lineups l WHERE l.fixture_id = f.id)
			OR NOT EXISTS (SELECT 1 FROM commentary c WHERE c.fixture_id = f.id)
		  )
		ORDER BY f.kickoff_at, f.id
	`

	return r.query(ctx, "fixtures lacking deep data", query, leagueCode, seasonYear)
}

// ListUnsettled retrieves fixtures that kicked off between since and until
// but are not yet final
func (r *FixtureRepository) ListUnsettled(ctx context.Context, since, until time.Time) ([]*models.Fixture, error) {
	query := `SELECT ` + fixtureColumns + `
		FROM fixtures
		WHERE kickoff_at >= $1
		  AND kickoff_at <= $2
		  AND status IN ('scheduled', 'in_progress')
		ORDER BY kickoff_at, id
	`

	return r.query(ctx, "unsettled fixtures", query, since, until)
}

// UpdateResult writes the status and score of a fixture
func (r *FixtureRepository) UpdateResult(ctx context.Context, f *models.Fixture) error {
	query := `
		UPDATE fixtures SET
			status = $2,
			home_score = $3,
			away_score = $4,
			updated_at = NOW()
		WHERE id = $1
	`

	start := time.Now()
	_, err := r.db.Pool.Exec(ctx, query, f.ID, f.Status, f.HomeScore, f.AwayScore)
	observe("update", "fixtures", start, err)
	if err != nil {
		return fmt.Errorf("failed to update fixture result: %w", err)
	}

	return nil
}
