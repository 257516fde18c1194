package models

import (
	"database/sql"
	"time"
)

// Fixture status values normalized from provider status payloads
const (
	FixtureScheduled  = "scheduled"
	FixtureInProgress = "in_progress"
	FixtureFinal      = "final"
	FixturePostponed  = "postponed"
)

// Fixture represents a single match in a league season
type Fixture struct {
	ID              int64          `db:"id"`
	ProviderEventID string         `db:"provider_event_id"`
	LeagueCode      string         `db:"league_code"`
	SeasonYear      int            `db:"season_year"`
	KickoffAt       time.Time      `db:"kickoff_at"`
	Status          string         `db:"status"`
	HomeClubID      string         `db:"home_club_id"`
	AwayClubID      string         `db:"away_club_id"`
	HomeClubName    string         `db:"home_club_name"`
	AwayClubName    string         `db:"away_club_name"`
	Venue           sql.NullString `db:"venue"`

	// Scores
	HomeScore sql.NullInt32 `db:"home_score"`
	AwayScore sql.NullInt32 `db:"away_score"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsActive returns true if the fixture is currently in progress
func (f *Fixture) IsActive() bool {
	return f.Status == FixtureInProgress
}

// IsScheduled returns true if the fixture is scheduled but not started
func (f *Fixture) IsScheduled() bool {
	return f.Status == FixtureScheduled
}

// IsFinal returns true if the fixture is completed
func (f *Fixture) IsFinal() bool {
	return f.Status == FixtureFinal
}
