package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"sportsync/ingestion/internal/models"
)

// DeepDataRepository handles per-fixture lineups and commentary
type DeepDataRepository struct {
	db *Database
}

// ReplaceLineups swaps a fixture's stored lineup for entries in one transaction
func (r *DeepDataRepository) ReplaceLineups(ctx context.Context, fixtureID int64, entries []models.LineupEntry) (int, error) {
	start := time.Now()
	n, err := r.replace(ctx, `DELETE FROM lineups WHERE fixture_id = $1`, fixtureID, func(batch *pgx.Batch) {
		for _, e := range entries {
			batch.Queue(`
				INSERT INTO lineups (
					fixture_id, club_id, player_provider_id, player_name, position, shirt_number, starter
				) VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (fixture_id, player_provider_id) DO NOTHING
			`, fixtureID, e.ClubID, e.PlayerProviderID, e.PlayerName, e.Position, e.ShirtNumber, e.Starter)
		}
	})
	observe("replace", "lineups", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to replace lineups: %w", err)
	}

	return n, nil
}

// ReplaceCommentary swaps a fixture's stored commentary for entries in one
// transaction
func (r *DeepDataRepository) ReplaceCommentary(ctx context.Context, fixtureID int64, entries []models.CommentaryEntry) (int, error) {
	start := time.Now()
	n, err := r.replace(ctx, `DELETE FROM commentary WHERE fixture_id = $1`, fixtureID, func(batch *pgx.Batch) {
		for _, e := range entries {
			batch.Queue(`
				INSERT INTO commentary (fixture_id, sequence, clock, text)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (fixture_id, sequence) DO NOTHING
			`, fixtureID, e.Sequence, e.Clock, e.Text)
		}
	})
	observe("replace", "commentary", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to replace commentary: %w", err)
	}

	return n, nil
}

func (r *DeepDataRepository) replace(ctx context.Context, deleteQuery string, fixtureID int64, fill func(*pgx.Batch)) (int, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deleteQuery, fixtureID); err != nil {
		return 0, err
	}

	batch := &pgx.Batch{}
	fill(batch)

	inserted := 0
	if batch.Len() > 0 {
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			tag, err := results.Exec()
			if err != nil {
				results.Close()
				return 0, err
			}
			inserted += int(tag.RowsAffected())
		}
		if err := results.Close(); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	return inserted, nil
}
