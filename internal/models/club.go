package models

import (
	"database/sql"
	"time"
)

// League represents a competition the provider publishes data for
type League struct {
	Code         string         `db:"code"`
	Name         string         `db:"name"`
	Abbreviation sql.NullString `db:"abbreviation"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// Club represents a team competing in a league
type Club struct {
	ID           int64          `db:"id"`
	ProviderID   string         `db:"provider_id"`
	LeagueCode   string         `db:"league_code"`
	Name         string         `db:"name"`
	ShortName    sql.NullString `db:"short_name"`
	Abbreviation sql.NullString `db:"abbreviation"`
	Location     sql.NullString `db:"location"`
	LogoURL      sql.NullString `db:"logo_url"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}
