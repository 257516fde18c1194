package models

import (
	"database/sql"
	"time"
)

// SeasonStat is one season-level leaderboard row for a player
type SeasonStat struct {
	LeagueCode       string         `db:"league_code"`
	SeasonYear       int            `db:"season_year"`
	Category         string         `db:"category"`
	Rank             int            `db:"rank"`
	PlayerProviderID string         `db:"player_provider_id"`
	PlayerName       string         `db:"player_name"`
	ClubID           sql.NullString `db:"club_id"`
	Value            float64        `db:"value"`
}

// Transfer is a player movement recorded against a league season
type Transfer struct {
	LeagueCode       string         `db:"league_code"`
	SeasonYear       int            `db:"season_year"`
	PlayerProviderID string         `db:"player_provider_id"`
	PlayerName       string         `db:"player_name"`
	FromClub         sql.NullString `db:"from_club"`
	ToClub           sql.NullString `db:"to_club"`
	TransferDate     time.Time      `db:"transfer_date"`
	Fee              sql.NullString `db:"fee"`
}
