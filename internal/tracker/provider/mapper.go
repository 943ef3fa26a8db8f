package provider

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Vodeneev/livebet/internal/pkg/enums"
	"github.com/Vodeneev/livebet/internal/pkg/models"
)

const fullTimeMinutes = 90

func mapFixture(item fixtureItem) models.MatchSnapshot {
	status := enums.ParseMatchStatus(item.Fixture.Status.Short)

	var elapsed *int
	if item.Fixture.Status.Elapsed != nil {
		e := *item.Fixture.Status.Elapsed
		elapsed = &e
	}
	// a finished match has played at least the regulation time
	if status.IsFinished() && (elapsed == nil || *elapsed < fullTimeMinutes) {
		e := fullTimeMinutes
		elapsed = &e
	}

	kickoff, _ := time.Parse(time.RFC3339, item.Fixture.Date)

	return models.MatchSnapshot{
		FixtureID:      item.Fixture.ID,
		Status:         status,
		StatusLong:     item.Fixture.Status.Long,
		StatusCategory: status.Category(),
		Elapsed:        elapsed,
		Score: models.Score{
			Home:     goals(item.Goals.Home),
			Away:     goals(item.Goals.Away),
			Halftime: scorePair(item.Score.Halftime),
			Fulltime: scorePair(item.Score.Fulltime),
		},
		Teams: models.Teams{
			Home: mapTeam(item.Teams.Home),
			Away: mapTeam(item.Teams.Away),
		},
		League:  item.League.Name,
		Kickoff: kickoff.UTC(),
	}
}

func goals(v *int) int {
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}

func scorePair(g apiGoals) *models.ScorePair {
	if g.Home == nil || g.Away == nil {
		return nil
	}
	return &models.ScorePair{Home: *g.Home, Away: *g.Away}
}

func mapTeam(t apiTeam) models.Team {
	return models.Team{ID: t.ID, Name: t.Name, Logo: t.Logo}
}

func mapStatistics(items []statisticsItem) []models.TeamStatistics {
	out := make([]models.TeamStatistics, 0, len(items))
	for _, item := range items {
		values := make(map[string]string, len(item.Statistics))
		for _, s := range item.Statistics {
			if v := rawString(s.Value); v != "" {
				values[s.Type] = v
			}
		}
		out = append(out, models.TeamStatistics{Team: mapTeam(item.Team), Values: values})
	}
	return out
}

func mapEvents(items []eventItem) []models.FixtureEvent {
	out := make([]models.FixtureEvent, 0, len(items))
	for _, item := range items {
		ev := models.FixtureEvent{
			Minute:   item.Time.Elapsed,
			Extra:    item.Time.Extra,
			TeamID:   item.Team.ID,
			TeamName: item.Team.Name,
			Player:   item.Player.Name,
			Assist:   item.Assist.Name,
			Type:     item.Type,
			Detail:   item.Detail,
		}
		if item.Comments != nil {
			ev.Comments = *item.Comments
		}
		out = append(out, ev)
	}
	return out
}

func mapLineups(items []lineupItem) []models.Lineup {
	out := make([]models.Lineup, 0, len(items))
	for _, item := range items {
		out = append(out, models.Lineup{
			Team:        mapTeam(item.Team),
			Formation:   item.Formation,
			Coach:       item.Coach.Name,
			StartXI:     mapPlayers(item.StartXI),
			Substitutes: mapPlayers(item.Substitutes),
		})
	}
	return out
}

func mapPlayers(players []lineupPlayer) []models.LineupPlayer {
	out := make([]models.LineupPlayer, 0, len(players))
	for _, p := range players {
		out = append(out, models.LineupPlayer{
			ID:     p.Player.ID,
			Name:   p.Player.Name,
			Number: p.Player.Number,
			Pos:    p.Player.Pos,
		})
	}
	return out
}

// bareKeyBets are the bets whose outcome labels ("Home", "Over 2.5", "Yes") are
// also stored without the bet name prefix.
var bareKeyBets = map[string]bool{
	"match winner":        true,
	"fulltime result":     true,
	"double chance":       true,
	"goals over/under":    true,
	"over/under line":     true,
	"both teams score":    true,
	"both teams to score": true,
	"asian handicap":      true,
	"exact score":         true,
	"correct score":       true,
}

// flattenBets turns provider bets into an alias-keyed odds map. Every outcome is
// stored as "<bet> <label>"; outcomes of the main markets are also stored under
// their bare label, first bet wins. Suspended and unparsable prices are dropped.
func flattenBets(bets []oddBet) models.OddsMap {
	m := make(models.OddsMap)

	ordered := make([]oddBet, len(bets))
	copy(ordered, bets)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	for _, bet := range ordered {
		bare := bareKeyBets[strings.ToLower(strings.TrimSpace(bet.Name))]
		for _, v := range bet.Values {
			if v.Suspended {
				continue
			}
			price, err := strconv.ParseFloat(strings.TrimSpace(v.Odd), 64)
			if err != nil || price <= 1 {
				continue
			}
			label := outcomeLabel(v)
			if label == "" {
				continue
			}
			if bare {
				if _, exists := m[label]; !exists {
					m[label] = price
				}
			}
			m[bet.Name+" "+label] = price
		}
	}
	return m
}

func outcomeLabel(v oddValue) string {
	label := rawString(v.Value)
	if v.Handicap == nil {
		return label
	}
	h := strings.TrimSpace(*v.Handicap)
	if h == "" || strings.Contains(label, h) {
		return label
	}
	return label + " " + h
}

// rawString renders a JSON scalar (string, number, bool) as text; null becomes "".
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}
