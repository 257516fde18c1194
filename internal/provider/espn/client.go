// Package espn builds ESPN soccer API URLs and maps their JSON into models.
package espn

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"sportsync/ingestion/internal/models"
)

// ErrMapping marks a provider record that could not be mapped into a model
var ErrMapping = errors.New("unmappable provider record")

// Fetcher decodes the JSON document at a URL into v. found is false when the
// provider has no data at that URL.
type Fetcher interface {
	FetchJSON(ctx context.Context, rawURL string, v interface{}) (found bool, err error)
}

// Client addresses the site and core APIs for soccer leagues
type Client struct {
	fetcher  Fetcher
	siteBase string
	coreBase string
	pageSize int
}

// NewClient creates an adapter over fetcher
func NewClient(fetcher Fetcher, siteBase, coreBase string) *Client {
	return &Client{
		fetcher:  fetcher,
		siteBase: strings.TrimRight(siteBase, "/"),
		coreBase: strings.TrimRight(coreBase, "/"),
		pageSize: 100,
	}
}

// EventPage is one page of a season's event index
type EventPage struct {
	EventIDs  []string
	PageIndex int
	PageCount int
}

func (c *Client) siteURL(league, resource string, q url.Values) string {
	u := fmt.Sprintf("%s/%s/%s", c.siteBase, url.PathEscape(league), resource)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) coreURL(path string, q url.Values) string {
	u := c.coreBase + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// League fetches league metadata. found is false when the provider does not
// publish the league.
func (c *Client) League(ctx context.Context, code string) (*models.League, bool, error) {
	var resp apiLeague
	found, err := c.fetcher.FetchJSON(ctx, c.coreURL("/leagues/"+url.PathEscape(code), nil), &resp)
	if err != nil || !found {
		return nil, found, err
	}

	league := &models.League{Code: code, Name: resp.Name}
	if resp.Abbreviation != "" {
		league.Abbreviation = sql.NullString{String: resp.Abbreviation, Valid: true}
	}
	if league.Name == "" {
		if l, ok := LookupLeague(code); ok {
			league.Name = l.Name
		}
	}

	return league, true, nil
}

// Clubs fetches every club the provider lists for a league
func (c *Client) Clubs(ctx context.Context, code string) ([]models.Club, error) {
	var resp teamsResponse
	found, err := c.fetcher.FetchJSON(ctx, c.siteURL(code, "teams", nil), &resp)
	if err != nil || !found {
		return nil, err
	}

	var clubs []models.Club
	for _, sport := range resp.Sports {
		for _, lg := range sport.Leagues {
			for _, t := range lg.Teams {
				if t.Team.ID == "" || t.Team.DisplayName == "" {
					log.Warn().Str("league", code).Msg("Skipping club without id or name")
					continue
				}
				clubs = append(clubs, mapClub(code, t.Team))
			}
		}
	}

	return clubs, nil
}

// Scoreboard fetches fixtures kicking off between from and to inclusive.
// Events that cannot be mapped are skipped and counted.
func (c *Client) Scoreboard(ctx context.Context, code string, from, to time.Time) ([]models.Fixture, int, error) {
	q := url.Values{}
	q.Set("dates", from.UTC().Format("20060102")+"-"+to.UTC().Format("20060102"))
	q.Set("limit", "500")

	var resp scoreboardResponse
	found, err := c.fetcher.FetchJSON(ctx, c.siteURL(code, "scoreboard", q), &resp)
	if err != nil || !found {
		return nil, 0, err
	}

	var (
		fixtures []models.Fixture
		skipped  int
	)
	for _, ev := range resp.Events {
		f, err := mapEvent(code, ev)
		if err != nil {
			skipped++
			log.Warn().Err(err).Str("league", code).Str("event_id", ev.ID).Msg("Skipping scoreboard event")
			continue
		}
		fixtures = append(fixtures, *f)
	}

	return fixtures, skipped, nil
}

// EventIndex fetches one page of a season's event index. Pages are 1-based.
func (c *Client) EventIndex(ctx context.Context, code string, season, page int) (*EventPage, error) {
	seasonType := 1
	if l, ok := LookupLeague(code); ok && l.SeasonType > 0 {
		seasonType = l.SeasonType
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(c.pageSize))
	path := fmt.Sprintf("/leagues/%s/seasons/%d/types/%d/events", url.PathEscape(code), season, seasonType)

	var resp eventIndexResponse
	found, err := c.fetcher.FetchJSON(ctx, c.coreURL(path, q), &resp)
	if err != nil {
		return nil, err
	}
	if !found {
		return &EventPage{PageIndex: page}, nil
	}

	out := &EventPage{PageIndex: resp.PageIndex, PageCount: resp.PageCount}
	for _, item := range resp.Items {
		if id := idFromRef(item.Ref); id != "" {
			out.EventIDs = append(out.EventIDs, id)
		}
	}

	return out, nil
}

// Summary fetches an event's match summary. completed reports whether the
// match is finished; found is false when the provider has no summary.
func (c *Client) Summary(ctx context.Context, code, eventID string) (summary *models.MatchSummary, completed, found bool, err error) {
	q := url.Values{}
	q.Set("event", eventID)

	var resp summaryResponse
	found, err = c.fetcher.FetchJSON(ctx, c.siteURL(code, "summary", q), &resp)
	if err != nil || !found {
		return nil, false, found, err
	}

	if len(resp.Header.Competitions) == 0 {
		return nil, false, true, errors.Wrapf(ErrMapping, "summary %s has no competition", eventID)
	}
	comp := resp.Header.Competitions[0]

	ev := apiEvent{
		ID:           eventID,
		Date:         comp.Date,
		Status:       comp.Status,
		Competitions: resp.Header.Competitions,
	}
	ev.Season.Year = resp.Header.Season.Year
	fixture, err := mapEvent(code, ev)
	if err != nil {
		return nil, false, true, err
	}
	if !fixture.Venue.Valid && resp.GameInfo.Venue != nil && resp.GameInfo.Venue.FullName != "" {
		fixture.Venue = sql.NullString{String: resp.GameInfo.Venue.FullName, Valid: true}
	}

	summary = &models.MatchSummary{Fixture: *fixture}
	for _, roster := range resp.Rosters {
		for _, p := range roster.Roster {
			if p.Athlete.ID == "" {
				continue
			}
			entry := models.LineupEntry{
				ClubID:           roster.Team.ID,
				PlayerProviderID: p.Athlete.ID,
				PlayerName:       p.Athlete.DisplayName,
				Starter:          p.Starter,
			}
			if p.Position != nil && p.Position.Abbreviation != "" {
				entry.Position = sql.NullString{String: p.Position.Abbreviation, Valid: true}
			}
			if p.Jersey != "" {
				entry.ShirtNumber = sql.NullString{String: p.Jersey, Valid: true}
			}
			summary.Lineups = append(summary.Lineups, entry)
		}
	}
	for i, line := range resp.Commentary {
		if strings.TrimSpace(line.Text) == "" {
			continue
		}
		seq := line.Sequence
		if seq == 0 {
			seq = i + 1
		}
		entry := models.CommentaryEntry{Sequence: seq, Text: line.Text}
		if line.Time != nil && line.Time.DisplayValue != "" {
			entry.Clock = sql.NullString{String: line.Time.DisplayValue, Valid: true}
		}
		summary.Commentary = append(summary.Commentary, entry)
	}

	return summary, fixture.IsFinal(), true, nil
}

// Transfers fetches the player transactions recorded for a league season
func (c *Client) Transfers(ctx context.Context, code string, season int) ([]models.Transfer, error) {
	q := url.Values{}
	q.Set("season", strconv.Itoa(season))

	var resp transactionsResponse
	found, err := c.fetcher.FetchJSON(ctx, c.siteURL(code, "transactions", q), &resp)
	if err != nil || !found {
		return nil, err
	}

	var out []models.Transfer
	for _, tx := range resp.Transactions {
		date, err := parseTime(tx.Date)
		if err != nil || tx.Athlete.ID == "" {
			log.Warn().Str("league", code).Str("date", tx.Date).Msg("Skipping unmappable transfer")
			continue
		}
		t := models.Transfer{
			LeagueCode:       code,
			SeasonYear:       season,
			PlayerProviderID: tx.Athlete.ID,
			PlayerName:       tx.Athlete.DisplayName,
			TransferDate:     date.Truncate(24 * time.Hour),
		}
		if tx.From != nil && tx.From.DisplayName != "" {
			t.FromClub = sql.NullString{String: tx.From.DisplayName, Valid: true}
		}
		if tx.To != nil && tx.To.DisplayName != "" {
			t.ToClub = sql.NullString{String: tx.To.DisplayName, Valid: true}
		}
		if tx.Amount != "" {
			t.Fee = sql.NullString{String: tx.Amount, Valid: true}
		}
		out = append(out, t)
	}

	return out, nil
}

// Leaders fetches the season leaderboards of a league
func (c *Client) Leaders(ctx context.Context, code string, season int) ([]models.SeasonStat, error) {
	seasonType := 1
	if l, ok := LookupLeague(code); ok && l.SeasonType > 0 {
		seasonType = l.SeasonType
	}
	path := fmt.Sprintf("/leagues/%s/seasons/%d/types/%d/leaders", url.PathEscape(code), season, seasonType)

	var resp leadersResponse
	found, err := c.fetcher.FetchJSON(ctx, c.coreURL(path, nil), &resp)
	if err != nil || !found {
		return nil, err
	}

	var out []models.SeasonStat
	for _, cat := range resp.Categories {
		for i, l := range cat.Leaders {
			playerID := l.Athlete.ID
			if playerID == "" {
				playerID = idFromRef(l.Athlete.Ref)
			}
			if playerID == "" || cat.Name == "" {
				continue
			}
			name := l.Athlete.DisplayName
			if name == "" {
				name = playerID
			}
			stat := models.SeasonStat{
				LeagueCode:       code,
				SeasonYear:       season,
				Category:         cat.Name,
				Rank:             i + 1,
				PlayerProviderID: playerID,
				PlayerName:       name,
				Value:            l.Value,
			}
			if l.Team != nil {
				clubID := l.Team.ID
				if clubID == "" {
					clubID = idFromRef(l.Team.Ref)
				}
				if clubID != "" {
					stat.ClubID = sql.NullString{String: clubID, Valid: true}
				}
			}
			out = append(out, stat)
		}
	}

	return out, nil
}

func mapClub(league string, t apiTeam) models.Club {
	club := models.Club{
		ProviderID: t.ID,
		LeagueCode: league,
		Name:       t.DisplayName,
	}
	if t.ShortDisplayName != "" {
		club.ShortName = sql.NullString{String: t.ShortDisplayName, Valid: true}
	}
	if t.Abbreviation != "" {
		club.Abbreviation = sql.NullString{String: t.Abbreviation, Valid: true}
	}
	if t.Location != "" {
		club.Location = sql.NullString{String: t.Location, Valid: true}
	}
	if len(t.Logos) > 0 && t.Logos[0].Href != "" {
		club.LogoURL = sql.NullString{String: t.Logos[0].Href, Valid: true}
	}
	return club
}

func mapEvent(league string, ev apiEvent) (*models.Fixture, error) {
	if ev.ID == "" {
		return nil, errors.Wrap(ErrMapping, "event without id")
	}
	if len(ev.Competitions) == 0 {
		return nil, errors.Wrapf(ErrMapping, "event %s has no competition", ev.ID)
	}
	comp := ev.Competitions[0]

	date := ev.Date
	if date == "" {
		date = comp.Date
	}
	kickoff, err := parseTime(date)
	if err != nil {
		return nil, errors.Wrapf(ErrMapping, "event %s kickoff %q", ev.ID, date)
	}

	var home, away *apiCompetitor
	for i := range comp.Competitors {
		switch comp.Competitors[i].HomeAway {
		case "home":
			home = &comp.Competitors[i]
		case "away":
			away = &comp.Competitors[i]
		}
	}
	if home == nil || away == nil {
		return nil, errors.Wrapf(ErrMapping, "event %s lacks home or away competitor", ev.ID)
	}

	status := ev.Status
	if status.Type.State == "" {
		status = comp.Status
	}

	season := ev.Season.Year
	if season == 0 {
		season = kickoff.Year()
	}

	f := &models.Fixture{
		ProviderEventID: ev.ID,
		LeagueCode:      league,
		SeasonYear:      season,
		KickoffAt:       kickoff,
		Status:          mapStatus(status),
		HomeClubID:      home.Team.ID,
		AwayClubID:      away.Team.ID,
		HomeClubName:    home.Team.DisplayName,
		AwayClubName:    away.Team.DisplayName,
	}
	if comp.Venue != nil && comp.Venue.FullName != "" {
		f.Venue = sql.NullString{String: comp.Venue.FullName, Valid: true}
	}
	if f.Status != models.FixtureScheduled {
		f.HomeScore = parseScore(home.Score)
		f.AwayScore = parseScore(away.Score)
	}

	return f, nil
}

func mapStatus(s apiStatus) string {
	switch s.Type.Name {
	case "STATUS_POSTPONED", "STATUS_CANCELED", "STATUS_ABANDONED":
		return models.FixturePostponed
	}
	switch s.Type.State {
	case "in":
		return models.FixtureInProgress
	case "post":
		if s.Type.Completed {
			return models.FixtureFinal
		}
		return models.FixturePostponed
	default:
		return models.FixtureScheduled
	}
}

// parseScore accepts a bare string or number, or an object with a value field
func parseScore(raw json.RawMessage) sql.NullInt32 {
	if len(raw) == 0 || string(raw) == "null" {
		return sql.NullInt32{}
	}

	var obj struct {
		Value *float64 `json:"value"`
	}
	if raw[0] == '{' {
		if err := json.Unmarshal(raw, &obj); err != nil || obj.Value == nil {
			return sql.NullInt32{}
		}
		return sql.NullInt32{Int32: int32(*obj.Value), Valid: true}
	}

	s := strings.Trim(string(raw), `"`)
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(n), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Newf("unrecognised time %q", s)
}

// idFromRef returns the last path segment of a core API $ref URL
func idFromRef(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	path := strings.TrimRight(u.Path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
