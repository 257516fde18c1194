package espn

import "sort"

// League is a competition the adapter knows how to address
type League struct {
	Code         string
	Name         string
	Abbreviation string
	// SeasonType is the core API season type holding the regular season
	SeasonType int
}

var leagues = map[string]League{
	"eng.1":          {Code: "eng.1", Name: "English Premier League", Abbreviation: "EPL", SeasonType: 1},
	"eng.2":          {Code: "eng.2", Name: "English League Championship", Abbreviation: "EFL", SeasonType: 1},
	"esp.1":          {Code: "esp.1", Name: "Spanish LALIGA", Abbreviation: "LALIGA", SeasonType: 1},
	"ger.1":          {Code: "ger.1", Name: "German Bundesliga", Abbreviation: "BUN", SeasonType: 1},
	"ita.1":          {Code: "ita.1", Name: "Italian Serie A", Abbreviation: "SA", SeasonType: 1},
	"fra.1":          {Code: "fra.1", Name: "French Ligue 1", Abbreviation: "L1", SeasonType: 1},
	"ned.1":          {Code: "ned.1", Name: "Dutch Eredivisie", Abbreviation: "ERE", SeasonType: 1},
	"por.1":          {Code: "por.1", Name: "Portuguese Primeira Liga", Abbreviation: "LIGA", SeasonType: 1},
	"usa.1":          {Code: "usa.1", Name: "MLS", Abbreviation: "MLS", SeasonType: 1},
	"uefa.champions": {Code: "uefa.champions", Name: "UEFA Champions League", Abbreviation: "UCL", SeasonType: 1},
}

// LookupLeague returns the league registered under code
func LookupLeague(code string) (League, bool) {
	l, ok := leagues[code]
	return l, ok
}

// SupportedLeagues returns every registered league ordered by code
func SupportedLeagues() []League {
	out := make([]League, 0, len(leagues))
	for _, l := range leagues {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
