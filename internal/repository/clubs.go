package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"sportsync/ingestion/internal/models"
)

// LeagueRepository handles league database operations
type LeagueRepository struct {
	db *Database
}

// Upsert inserts or updates a league
func (r *LeagueRepository) Upsert(ctx context.Context, league *models.League) error {
	query := `
		INSERT INTO leagues (code, name, abbreviation)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			abbreviation = EXCLUDED.abbreviation,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	start := time.Now()
	err := r.db.Pool.QueryRow(ctx, query, league.Code, league.Name, league.Abbreviation).
		Scan(&league.CreatedAt, &league.UpdatedAt)
	observe("upsert", "leagues", start, err)

	if err != nil {
		return fmt.Errorf("failed to upsert league: %w", err)
	}

	return nil
}

// List retrieves all leagues
func (r *LeagueRepository) List(ctx context.Context) ([]*models.League, error) {
	query := `
		SELECT code, name, abbreviation, created_at, updated_at
		FROM leagues
		ORDER BY code
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list leagues: %w", err)
	}
	defer rows.Close()

	var leagues []*models.League
	for rows.Next() {
		var l models.League
		if err := rows.Scan(&l.Code, &l.Name, &l.Abbreviation, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan league: %w", err)
		}
		leagues = append(leagues, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leagues: %w", err)
	}

	return leagues, nil
}

// ClubRepository handles club database operations
type ClubRepository struct {
	db *Database
}

// Upsert inserts or updates a club (for nightly refresh)
func (r *ClubRepository) Upsert(ctx context.Context, club *models.Club) error {
	query := `
		INSERT INTO clubs (
			provider_id, league_code, name, short_name, abbreviation, location, logo_url
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (provider_id, league_code) DO UPDATE SET
			name = EXCLUDED.name,
			short_name = EXCLUDED.short_name,
			abbreviation = EXCLUDED.abbreviation,
			location = EXCLUDED.location,
			logo_url = EXCLUDED.logo_url,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	start := time.Now()
	err := r.db.Pool.QueryRow(
		ctx, query,
		club.ProviderID, club.LeagueCode, club.Name, club.ShortName,
		club.Abbreviation, club.Location, club.LogoURL,
	).Scan(&club.ID, &club.CreatedAt, &club.UpdatedAt)
	observe("upsert", "clubs", start, err)

	if err != nil {
		return fmt.Errorf("failed to upsert club: %w", err)
	}

	log.Debug().
		Int64("id", club.ID).
		Str("provider_id", club.ProviderID).
		Str("league", club.LeagueCode).
		Str("name", club.Name).
		Msg("Club upserted")

	return nil
}

// GetByProviderID retrieves a club by its provider id within a league
func (r *ClubRepository) GetByProviderID(ctx context.Context, leagueCode, providerID string) (*models.Club, error) {
	query := `
		SELECT id, provider_id, league_code, name, short_name, abbreviation, location, logo_url,
		       created_at, updated_at
		FROM clubs
		WHERE league_code = $1 AND provider_id = $2
	`

	var club models.Club
	err := r.db.Pool.QueryRow(ctx, query, leagueCode, providerID).Scan(
		&club.ID, &club.ProviderID, &club.LeagueCode, &club.Name, &club.ShortName,
		&club.Abbreviation, &club.Location, &club.LogoURL,
		&club.CreatedAt, &club.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("club not found: league=%s provider_id=%s", leagueCode, providerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get club: %w", err)
	}

	return &club, nil
}

// Count returns the number of clubs stored for a league
func (r *ClubRepository) Count(ctx context.Context, leagueCode string) (int, error) {
	query := `SELECT COUNT(*) FROM clubs WHERE league_code = $1`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, leagueCode).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count clubs: %w", err)
	}

	return count, nil
}
