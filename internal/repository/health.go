package repository

import (
	"context"
	"fmt"
	"time"
)

// HealthRepository counts what is stored for a league season
type HealthRepository struct {
	db *Database
}

// SeasonCounts returns the fixture, deep-data and platinum-data row counts
// for a league season. Deep data is lineups plus commentary attached to the
// season's fixtures; platinum data is season leaderboard rows.
func (r *HealthRepository) SeasonCounts(ctx context.Context, leagueCode string, seasonYear int) (fixtures, deep, platinum int, err error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM fixtures f
			  WHERE f.league_code = $1 AND f.season_year = $2),
			(SELECT COUNT(*) FROM lineups l JOIN fixtures f ON f.id = l.fixture_id
			  WHERE f.league_code = $1 AND f.season_year = $2)
			+ (SELECT COUNT(*) FROM commentary c JOIN fixtures f ON f.id = c.fixture_id
			  WHERE f.league_code = $1 AND f.season_year = $2),
			(SELECT COUNT(*) FROM season_stats s
			  WHERE s.league_code = $1 AND s.season_year = $2)
	`

	start := time.Now()
	err = r.db.Pool.QueryRow(ctx, query, leagueCode, seasonYear).Scan(&fixtures, &deep, &platinum)
	observe("count", "season_health", start, err)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count season data: %w", err)
	}

	return fixtures, deep, platinum, nil
}
