package models

import (
	"time"

	"github.com/Vodeneev/livebet/internal/pkg/enums"
)

// regulationMinutes is the length of a match used to scale in-play progress.
const regulationMinutes = 90

// ScorePair is a home/away goal count.
type ScorePair struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// Score is the current score with optional period scores.
type Score struct {
	Home     int        `json:"home"`
	Away     int        `json:"away"`
	Halftime *ScorePair `json:"halftime,omitempty"`
	Fulltime *ScorePair `json:"fulltime,omitempty"`
}

// Team identifies one side of a fixture.
type Team struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

// Teams holds both sides of a fixture.
type Teams struct {
	Home Team `json:"home"`
	Away Team `json:"away"`
}

// MatchSnapshot is one consistent view of a fixture: status, minute and score.
type MatchSnapshot struct {
	FixtureID      int64                `json:"fixture_id"`
	Status         enums.MatchStatus    `json:"status"`
	StatusLong     string               `json:"status_long,omitempty"`
	StatusCategory enums.StatusCategory `json:"status_category"`
	Elapsed        *int                 `json:"elapsed"`
	Score          Score                `json:"score"`
	Teams          Teams                `json:"teams"`
	League         string               `json:"league,omitempty"`
	Kickoff        time.Time            `json:"kickoff"`
}

// Minute returns the elapsed minutes, zero before kickoff.
func (m MatchSnapshot) Minute() int {
	if m.Elapsed == nil {
		return 0
	}
	return *m.Elapsed
}

// State returns the score/time tuple evaluations run against.
func (m MatchSnapshot) State() GameState {
	return GameState{
		Home:     m.Score.Home,
		Away:     m.Score.Away,
		Elapsed:  m.Minute(),
		Finished: m.Status.IsFinished(),
	}
}

// HasStarted reports whether the match is live, at the break or over.
func (m MatchSnapshot) HasStarted() bool {
	return m.Status.HasStarted()
}

// IsHalftimeOrLater reports whether the first half is over.
func (m MatchSnapshot) IsHalftimeOrLater() bool {
	return m.Status.IsHalftimeOrLater()
}

// CanActivateHedging reports whether hedges may be proposed at this point of the match.
func (m MatchSnapshot) CanActivateHedging() bool {
	return m.Status.CanActivateHedging(m.Minute())
}

// GameState is the (score, minute, finished) tuple used by settlement, probability and simulation.
type GameState struct {
	Home     int
	Away     int
	Elapsed  int
	Finished bool
}

// Progress is elapsed/90 clamped to [0, 1].
func (g GameState) Progress() float64 {
	p := float64(g.Elapsed) / regulationMinutes
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// TotalGoals returns home + away goals.
func (g GameState) TotalGoals() int {
	return g.Home + g.Away
}

// FixtureEvent is one timeline entry (goal, card, substitution, VAR decision).
type FixtureEvent struct {
	Minute   int    `json:"minute"`
	Extra    *int   `json:"extra,omitempty"`
	TeamID   int    `json:"team_id"`
	TeamName string `json:"team_name"`
	Player   string `json:"player,omitempty"`
	Assist   string `json:"assist,omitempty"`
	Type     string `json:"type"`
	Detail   string `json:"detail,omitempty"`
	Comments string `json:"comments,omitempty"`
}

// TeamStatistics holds per-team match statistics keyed by provider label ("Ball Possession", "Total Shots").
type TeamStatistics struct {
	Team   Team              `json:"team"`
	Values map[string]string `json:"values"`
}

// LineupPlayer is a player entry of a lineup.
type LineupPlayer struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Number int    `json:"number"`
	Pos    string `json:"pos,omitempty"`
}

// Lineup is one team's starting eleven and bench.
type Lineup struct {
	Team        Team           `json:"team"`
	Formation   string         `json:"formation,omitempty"`
	Coach       string         `json:"coach,omitempty"`
	StartXI     []LineupPlayer `json:"start_xi"`
	Substitutes []LineupPlayer `json:"substitutes"`
}

// OddsMap maps a bookmaker alias key ("Home", "Over 2.5", "Double Chance 1X") to decimal odds.
type OddsMap map[string]float64
