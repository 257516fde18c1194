package models

import "fmt"

// HealthStatus is the completeness tier of a league season
type HealthStatus string

const (
	HealthMissing  HealthStatus = "MISSING"
	HealthHollow   HealthStatus = "HOLLOW"
	HealthComplete HealthStatus = "COMPLETE"
)

// MinSeasonFixtures is the fixture count below which a season is treated as never scraped
const MinSeasonFixtures = 10

// SeasonHealth is a point-in-time completeness assessment of one league season
type SeasonHealth struct {
	LeagueCode        string       `json:"league_code"`
	SeasonYear        int          `json:"season_year"`
	FixtureCount      int          `json:"fixture_count"`
	DeepDataCount     int          `json:"deep_data_count"`
	PlatinumDataCount int          `json:"platinum_data_count"`
	Status            HealthStatus `json:"status"`
}

// ClassifySeason maps raw counts to a completeness tier
func ClassifySeason(fixtures, deep, platinum int) HealthStatus {
	if fixtures < MinSeasonFixtures {
		return HealthMissing
	}
	if deep == 0 || platinum == 0 {
		return HealthHollow
	}
	return HealthComplete
}

// ScrapeMode selects how much of a season the scraper refetches
type ScrapeMode string

const (
	ScrapeFull     ScrapeMode = "full"
	ScrapeDeepOnly ScrapeMode = "deep_only"
)

// PlanFor returns the scrape mode a health status calls for; ok is false when
// the season needs no work.
func PlanFor(status HealthStatus) (mode ScrapeMode, ok bool) {
	switch status {
	case HealthMissing:
		return ScrapeFull, true
	case HealthHollow:
		return ScrapeDeepOnly, true
	default:
		return "", false
	}
}

// SeasonAudit counts what a season scrape found and stored
type SeasonAudit struct {
	LeagueCode       string
	SeasonYear       int
	Mode             ScrapeMode
	FixturesFound    int
	FixturesUpserted int
	DeepAttempts     int
	DeepHits         int
	LineupRows       int
	CommentaryRows   int
	TransferRows     int
	SeasonStatRows   int
	SummariesMissing int
	EventErrors      int
	Errors           []string
}

// AddErrorf records a formatted error message
func (a *SeasonAudit) AddErrorf(format string, args ...interface{}) {
	a.Errors = append(a.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the scrape
func (a *SeasonAudit) Summary() string {
	return fmt.Sprintf(
		"league=%s season=%d mode=%s fixtures=%d upserted=%d deep=%d/%d lineups=%d commentary=%d transfers=%d stats=%d missing=%d event_errors=%d errors=%d",
		a.LeagueCode, a.SeasonYear, a.Mode,
		a.FixturesFound, a.FixturesUpserted,
		a.DeepHits, a.DeepAttempts,
		a.LineupRows, a.CommentaryRows,
		a.TransferRows, a.SeasonStatRows,
		a.SummariesMissing, a.EventErrors, len(a.Errors),
	)
}
