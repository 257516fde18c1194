package espn

import "encoding/json"

// Wire shapes of the site and core APIs. Only the fields that are mapped
// into models are declared.

type ref struct {
	Ref string `json:"$ref"`
}

type apiLeague struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	Slug         string `json:"slug"`
}

type apiTeam struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	ShortDisplayName string `json:"shortDisplayName"`
	Abbreviation     string `json:"abbreviation"`
	Location         string `json:"location"`
	Logos            []struct {
		Href string `json:"href"`
	} `json:"logos"`
}

type teamsResponse struct {
	Sports []struct {
		Leagues []struct {
			Teams []struct {
				Team apiTeam `json:"team"`
			} `json:"teams"`
		} `json:"leagues"`
	} `json:"sports"`
}

type apiStatus struct {
	Type struct {
		Name      string `json:"name"`
		State     string `json:"state"`
		Completed bool   `json:"completed"`
	} `json:"type"`
}

type apiCompetitor struct {
	HomeAway string          `json:"homeAway"`
	Score    json.RawMessage `json:"score"`
	Team     apiTeam         `json:"team"`
}

type apiCompetition struct {
	Date        string          `json:"date"`
	Status      apiStatus       `json:"status"`
	Competitors []apiCompetitor `json:"competitors"`
	Venue       *struct {
		FullName string `json:"fullName"`
	} `json:"venue"`
}

type apiEvent struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Season struct {
		Year int `json:"year"`
	} `json:"season"`
	Status       apiStatus        `json:"status"`
	Competitions []apiCompetition `json:"competitions"`
}

type scoreboardResponse struct {
	Events []apiEvent `json:"events"`
}

type eventIndexResponse struct {
	Count     int   `json:"count"`
	PageIndex int   `json:"pageIndex"`
	PageCount int   `json:"pageCount"`
	Items     []ref `json:"items"`
}

type apiAthlete struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Ref         string `json:"$ref"`
}

type summaryResponse struct {
	Header struct {
		ID     string `json:"id"`
		Season struct {
			Year int `json:"year"`
		} `json:"season"`
		Competitions []apiCompetition `json:"competitions"`
	} `json:"header"`
	GameInfo struct {
		Venue *struct {
			FullName string `json:"fullName"`
		} `json:"venue"`
	} `json:"gameInfo"`
	Rosters []struct {
		HomeAway string  `json:"homeAway"`
		Team     apiTeam `json:"team"`
		Roster   []struct {
			Starter  bool       `json:"starter"`
			Jersey   string     `json:"jersey"`
			Athlete  apiAthlete `json:"athlete"`
			Position *struct {
				Abbreviation string `json:"abbreviation"`
			} `json:"position"`
		} `json:"roster"`
	} `json:"rosters"`
	Commentary []struct {
		Sequence int `json:"sequence"`
		Time     *struct {
			DisplayValue string `json:"displayValue"`
		} `json:"time"`
		Text string `json:"text"`
	} `json:"commentary"`
}

type transactionsResponse struct {
	Transactions []struct {
		Date    string     `json:"date"`
		Athlete apiAthlete `json:"athlete"`
		From    *apiTeam   `json:"from"`
		To      *apiTeam   `json:"to"`
		Amount  string     `json:"amount"`
	} `json:"transactions"`
}

type leadersResponse struct {
	Categories []struct {
		Name    string `json:"name"`
		Leaders []struct {
			Value   float64    `json:"value"`
			Athlete apiAthlete `json:"athlete"`
			Team    *struct {
				ID  string `json:"id"`
				Ref string `json:"$ref"`
			} `json:"team"`
		} `json:"leaders"`
	} `json:"categories"`
}
