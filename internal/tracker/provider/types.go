package provider

import "encoding/json"

// envelope is the common API-Football response wrapper. errors is an empty array
// on success and an object keyed by field on failure.
type envelope struct {
	Errors   json.RawMessage `json:"errors"`
	Results  int             `json:"results"`
	Response json.RawMessage `json:"response"`
}

type apiTeam struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo"`
}

type apiGoals struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

type fixtureItem struct {
	Fixture struct {
		ID     int64  `json:"id"`
		Date   string `json:"date"`
		Status struct {
			Long    string `json:"long"`
			Short   string `json:"short"`
			Elapsed *int   `json:"elapsed"`
		} `json:"status"`
	} `json:"fixture"`
	League struct {
		Name string `json:"name"`
	} `json:"league"`
	Teams struct {
		Home apiTeam `json:"home"`
		Away apiTeam `json:"away"`
	} `json:"teams"`
	Goals apiGoals `json:"goals"`
	Score struct {
		Halftime apiGoals `json:"halftime"`
		Fulltime apiGoals `json:"fulltime"`
	} `json:"score"`
}

type statisticsItem struct {
	Team       apiTeam `json:"team"`
	Statistics []struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	} `json:"statistics"`
}

type apiPerson struct {
	ID   *int   `json:"id"`
	Name string `json:"name"`
}

type eventItem struct {
	Time struct {
		Elapsed int  `json:"elapsed"`
		Extra   *int `json:"extra"`
	} `json:"time"`
	Team     apiTeam   `json:"team"`
	Player   apiPerson `json:"player"`
	Assist   apiPerson `json:"assist"`
	Type     string    `json:"type"`
	Detail   string    `json:"detail"`
	Comments *string   `json:"comments"`
}

type lineupPlayer struct {
	Player struct {
		ID     int    `json:"id"`
		Name   string `json:"name"`
		Number int    `json:"number"`
		Pos    string `json:"pos"`
	} `json:"player"`
}

type lineupItem struct {
	Team        apiTeam        `json:"team"`
	Coach       apiPerson      `json:"coach"`
	Formation   string         `json:"formation"`
	StartXI     []lineupPlayer `json:"startXI"`
	Substitutes []lineupPlayer `json:"substitutes"`
}

// oddValue is one priced outcome. odd and handicap come as strings.
type oddValue struct {
	Value     json.RawMessage `json:"value"`
	Odd       string          `json:"odd"`
	Handicap  *string         `json:"handicap"`
	Suspended bool            `json:"suspended"`
}

type oddBet struct {
	ID     int        `json:"id"`
	Name   string     `json:"name"`
	Values []oddValue `json:"values"`
}

type liveOddsItem struct {
	Odds []oddBet `json:"odds"`
}

type prematchOddsItem struct {
	Bookmakers []struct {
		ID   int      `json:"id"`
		Name string   `json:"name"`
		Bets []oddBet `json:"bets"`
	} `json:"bookmakers"`
}

// AccountStatus is the /status payload: plan and request quota.
type AccountStatus struct {
	Account struct {
		FirstName string `json:"firstname"`
		LastName  string `json:"lastname"`
		Email     string `json:"email"`
	} `json:"account"`
	Subscription struct {
		Plan   string `json:"plan"`
		End    string `json:"end"`
		Active bool   `json:"active"`
	} `json:"subscription"`
	Requests struct {
		Current  int `json:"current"`
		LimitDay int `json:"limit_day"`
	} `json:"requests"`
}
