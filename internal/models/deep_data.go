package models

import "database/sql"

// LineupEntry is one player on a fixture's team sheet
type LineupEntry struct {
	FixtureID        int64          `db:"fixture_id"`
	ClubID           string         `db:"club_id"`
	PlayerProviderID string         `db:"player_provider_id"`
	PlayerName       string         `db:"player_name"`
	Position         sql.NullString `db:"position"`
	ShirtNumber      sql.NullString `db:"shirt_number"`
	Starter          bool           `db:"starter"`
}

// CommentaryEntry is one line of a fixture's play-by-play commentary
type CommentaryEntry struct {
	FixtureID int64          `db:"fixture_id"`
	Sequence  int            `db:"sequence"`
	Clock     sql.NullString `db:"clock"`
	Text      string         `db:"text"`
}

// MatchSummary is the deep data published for one fixture
type MatchSummary struct {
	Fixture    Fixture
	Lineups    []LineupEntry
	Commentary []CommentaryEntry
}
