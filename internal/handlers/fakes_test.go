package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"sportsync/ingestion/internal/models"
	"sportsync/ingestion/internal/provider/espn"
)

type summaryDoc struct {
	summary   *models.MatchSummary
	completed bool
}

// fakeProvider serves canned provider data; missing entries are "no data"
type fakeProvider struct {
	mu sync.Mutex

	leagues    map[string]*models.League
	clubs      map[string][]models.Club
	scoreboard map[string][]models.Fixture
	pages      map[int]*espn.EventPage
	pageErr    map[int]error
	summaries  map[string]summaryDoc
	summaryErr map[string]error
	transfers  []models.Transfer
	leaders    []models.SeasonStat
	leadersErr error

	indexCalls   int
	summaryCalls []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		leagues:    map[string]*models.League{},
		clubs:      map[string][]models.Club{},
		scoreboard: map[string][]models.Fixture{},
		pages:      map[int]*espn.EventPage{},
		pageErr:    map[int]error{},
		summaries:  map[string]summaryDoc{},
		summaryErr: map[string]error{},
	}
}

func (p *fakeProvider) League(ctx context.Context, code string) (*models.League, bool, error) {
	l, ok := p.leagues[code]
	return l, ok, nil
}

func (p *fakeProvider) Clubs(ctx context.Context, code string) ([]models.Club, error) {
	return p.clubs[code], nil
}

func (p *fakeProvider) Scoreboard(ctx context.Context, code string, from, to time.Time) ([]models.Fixture, int, error) {
	return p.scoreboard[code], 0, nil
}

func (p *fakeProvider) EventIndex(ctx context.Context, code string, season, page int) (*espn.EventPage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.indexCalls++
	if err := p.pageErr[page]; err != nil {
		return nil, err
	}
	if pg, ok := p.pages[page]; ok {
		return pg, nil
	}
	return &espn.EventPage{PageIndex: page}, nil
}

func (p *fakeProvider) Summary(ctx context.Context, code, eventID string) (*models.MatchSummary, bool, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summaryCalls = append(p.summaryCalls, eventID)
	if err := p.summaryErr[eventID]; err != nil {
		return nil, false, false, err
	}
	doc, ok := p.summaries[eventID]
	if !ok {
		return nil, false, false, nil
	}
	cp := *doc.summary
	return &cp, doc.completed, true, nil
}

func (p *fakeProvider) Transfers(ctx context.Context, code string, season int) ([]models.Transfer, error) {
	return p.transfers, nil
}

func (p *fakeProvider) Leaders(ctx context.Context, code string, season int) ([]models.SeasonStat, error) {
	if p.leadersErr != nil {
		return nil, p.leadersErr
	}
	return p.leaders, nil
}

// memDomain is an in-memory stand-in for the domain repositories
type memDomain struct {
	mu         sync.Mutex
	nextID     int64
	leagues    map[string]*models.League
	clubs      map[string]*models.Club
	fixtures   map[string]*models.Fixture
	lineups    map[int64][]models.LineupEntry
	commentary map[int64][]models.CommentaryEntry
	transfers  []models.Transfer
	stats      []models.SeasonStat
	failUpsert map[string]bool
}

func newMemDomain() *memDomain {
	return &memDomain{
		nextID:     1,
		leagues:    map[string]*models.League{},
		clubs:      map[string]*models.Club{},
		fixtures:   map[string]*models.Fixture{},
		lineups:    map[int64][]models.LineupEntry{},
		commentary: map[int64][]models.CommentaryEntry{},
		failUpsert: map[string]bool{},
	}
}

type leagueStore struct{ *memDomain }

func (m leagueStore) Upsert(ctx context.Context, l *models.League) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.leagues[l.Code] = &cp
	return nil
}

type clubStore struct{ *memDomain }

func (m clubStore) Upsert(ctx context.Context, c *models.Club) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.clubs[c.LeagueCode+"/"+c.ProviderID] = &cp
	return nil
}

func (m *memDomain) Upsert(ctx context.Context, f *models.Fixture) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpsert[f.ProviderEventID] {
		return false, errors.New("constraint violation")
	}
	existing, ok := m.fixtures[f.ProviderEventID]
	if ok {
		f.ID = existing.ID
	} else {
		f.ID = m.nextID
		m.nextID++
	}
	cp := *f
	m.fixtures[f.ProviderEventID] = &cp
	return !ok, nil
}

func (m *memDomain) ListForDeepData(ctx context.Context, league string, season int) ([]*models.Fixture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Fixture
	for _, f := range m.fixtures {
		if f.LeagueCode != league || f.SeasonYear != season || !f.IsFinal() {
			continue
		}
		if len(m.lineups[f.ID]) > 0 && len(m.commentary[f.ID]) > 0 {
			continue
		}
		cp := *f
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memDomain) ListUnsettled(ctx context.Context, since, until time.Time) ([]*models.Fixture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Fixture
	for _, f := range m.fixtures {
		if f.KickoffAt.Before(since) || f.KickoffAt.After(until) || f.IsFinal() || f.Status == models.FixturePostponed {
			continue
		}
		cp := *f
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memDomain) UpdateResult(ctx context.Context, f *models.Fixture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.fixtures[f.ProviderEventID]
	if !ok {
		return errors.New("fixture not found")
	}
	stored.Status = f.Status
	stored.HomeScore = f.HomeScore
	stored.AwayScore = f.AwayScore
	return nil
}

func (m *memDomain) ReplaceLineups(ctx context.Context, id int64, entries []models.LineupEntry) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lineups[id] = entries
	return len(entries), nil
}

func (m *memDomain) ReplaceCommentary(ctx context.Context, id int64, entries []models.CommentaryEntry) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commentary[id] = entries
	return len(entries), nil
}

func (m *memDomain) UpsertTransfers(ctx context.Context, t []models.Transfer) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers = append(m.transfers, t...)
	return len(t), nil
}

func (m *memDomain) UpsertSeasonStats(ctx context.Context, s []models.SeasonStat) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = append(m.stats, s...)
	return len(s), nil
}

func (m *memDomain) SeasonCounts(ctx context.Context, league string, season int) (int, int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var fixtures, deep, platinum int
	for _, f := range m.fixtures {
		if f.LeagueCode == league && f.SeasonYear == season {
			fixtures++
			deep += len(m.lineups[f.ID]) + len(m.commentary[f.ID])
		}
	}
	for _, s := range m.stats {
		if s.LeagueCode == league && s.SeasonYear == season {
			platinum++
		}
	}
	return fixtures, deep, platinum, nil
}

func (m *memDomain) deps(p *fakeProvider) *Deps {
	return &Deps{
		Provider:     p,
		Leagues:      leagueStore{m},
		Clubs:        clubStore{m},
		Fixtures:     m,
		DeepData:     m,
		Platinum:     m,
		Counts:       m,
		LeagueCodes:  []string{"eng.1"},
		BackfillFrom: 2023,
		BackfillTo:   2023,
	}
}

func fixture(eventID, status string) models.Fixture {
	return models.Fixture{
		ProviderEventID: eventID,
		LeagueCode:      "eng.1",
		SeasonYear:      2023,
		KickoffAt:       time.Date(2023, 9, 2, 15, 0, 0, 0, time.UTC),
		Status:          status,
		HomeClubID:      "359",
		AwayClubID:      "360",
		HomeClubName:    "Arsenal",
		AwayClubName:    "Manchester United",
	}
}

func finishedSummary(eventID string) summaryDoc {
	return summaryDoc{
		completed: true,
		summary: &models.MatchSummary{
			Fixture:    fixture(eventID, models.FixtureFinal),
			Lineups:    []models.LineupEntry{{ClubID: "359", PlayerProviderID: "p-" + eventID, PlayerName: "Saka"}},
			Commentary: []models.CommentaryEntry{{Sequence: 1, Text: "Kick off"}, {Sequence: 2, Text: "Full time"}},
		},
	}
}

func upcomingSummary(eventID string) summaryDoc {
	return summaryDoc{summary: &models.MatchSummary{Fixture: fixture(eventID, models.FixtureScheduled)}}
}
