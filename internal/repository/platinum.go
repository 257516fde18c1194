package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"sportsync/ingestion/internal/models"
)

// PlatinumRepository handles season-level transfers and player leaderboards
type PlatinumRepository struct {
	db *Database
}

// UpsertTransfers inserts or updates transfers and returns the number written
func (r *PlatinumRepository) UpsertTransfers(ctx context.Context, transfers []models.Transfer) (int, error) {
	if len(transfers) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, t := range transfers {
		batch.Queue(`
			INSERT INTO transfers (
				league_code, season_year, player_provider_id, player_name,
				from_club, to_club, transfer_date, fee
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (league_code, season_year, player_provider_id, transfer_date) DO UPDATE SET
				player_name = EXCLUDED.player_name,
				from_club = EXCLUDED.from_club,
				to_club = EXCLUDED.to_club,
				fee = EXCLUDED.fee
		`, t.LeagueCode, t.SeasonYear, t.PlayerProviderID, t.PlayerName,
			t.FromClub, t.ToClub, t.TransferDate, t.Fee)
	}

	start := time.Now()
	n, err := r.sendBatch(ctx, batch)
	observe("upsert", "transfers", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert transfers: %w", err)
	}

	return n, nil
}

// UpsertSeasonStats inserts or updates leaderboard rows and returns the number written
func (r *PlatinumRepository) UpsertSeasonStats(ctx context.Context, stats []models.SeasonStat) (int, error) {
	if len(stats) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, s := range stats {
		batch.Queue(`
			INSERT INTO season_stats (
				league_code, season_year, category, rank,
				player_provider_id, player_name, club_id, value
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (league_code, season_year, category, player_provider_id) DO UPDATE SET
				rank = EXCLUDED.rank,
				player_name = EXCLUDED.player_name,
				club_id = EXCLUDED.club_id,
				value = EXCLUDED.value,
				updated_at = NOW()
		`, s.LeagueCode, s.SeasonYear, s.Category, s.Rank,
			s.PlayerProviderID, s.PlayerName, s.ClubID, s.Value)
	}

	start := time.Now()
	n, err := r.sendBatch(ctx, batch)
	observe("upsert", "season_stats", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert season stats: %w", err)
	}

	return n, nil
}

// GetSeasonStats retrieves a league season's leaderboard rows
func (r *PlatinumRepository) GetSeasonStats(ctx context.Context, leagueCode string, seasonYear int) ([]*models.SeasonStat, error) {
	query := `
		SELECT league_code, season_year, category, rank, player_provider_id, player_name, club_id, value
		FROM season_stats
		WHERE league_code = $1 AND season_year = $2
		ORDER BY category, rank
	`

	rows, err := r.db.Pool.Query(ctx, query, leagueCode, seasonYear)
	if err != nil {
		return nil, fmt.Errorf("failed to get season stats: %w", err)
	}
	defer rows.Close()

	var stats []*models.SeasonStat
	for rows.Next() {
		var s models.SeasonStat
		err := rows.Scan(
			&s.LeagueCode, &s.SeasonYear, &s.Category, &s.Rank,
			&s.PlayerProviderID, &s.PlayerName, &s.ClubID, &s.Value,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan season stat: %w", err)
		}
		stats = append(stats, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating season stats: %w", err)
	}

	return stats, nil
}

func (r *PlatinumRepository) sendBatch(ctx context.Context, batch *pgx.Batch) (int, error) {
	results := r.db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	written := 0
	for i := 0; i < batch.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			return written, err
		}
		written += int(tag.RowsAffected())
	}

	log.Debug().Int("rows", written).Msg("Batch written")

	return written, nil
}
