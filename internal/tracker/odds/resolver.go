package odds

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Vodeneev/livebet/internal/pkg/models"
	"github.com/Vodeneev/livebet/internal/tracker/market"
)

var (
	homeWinKeys = []string{"Home", "1", "home", "Win 1", "Match Winner Home"}
	awayWinKeys = []string{"Away", "2", "away", "Win 2", "Match Winner Away"}
	drawKeys    = []string{"Draw", "X", "draw", "Match Winner Draw"}

	doubleChanceKeys = map[market.Pair][]string{
		market.HomeOrDraw: {"Home or Draw", "1X", "home_draw", "Double Chance 1X", "Home/Draw", "Double Chance Home/Draw"},
		market.DrawOrAway: {"Draw or Away", "X2", "draw_away", "Double Chance X2", "Draw/Away", "Double Chance Draw/Away", "Away or Draw"},
		market.HomeOrAway: {"Home or Away", "12", "home_away", "Double Chance 12", "Home/Away", "Double Chance Home/Away"},
	}

	bttsYesKeys = []string{"Yes", "BTTS Yes", "Both Teams Score Yes", "Both Teams To Score Yes"}
	bttsNoKeys  = []string{"No", "BTTS No", "Both Teams Score No", "Both Teams To Score No"}
)

// Resolve looks up the current price of d in the bookmaker odds map.
// It returns false when no alias key matches, in which case callers fall back to Simulate.
func Resolve(d market.Descriptor, m models.OddsMap) (float64, bool) {
	if len(m) == 0 {
		return 0, false
	}
	switch d.Kind {
	case market.KindWinner:
		if d.Side == market.SideAway {
			return lookup(m, awayWinKeys)
		}
		return lookup(m, homeWinKeys)
	case market.KindDraw:
		return lookup(m, drawKeys)
	case market.KindDoubleChance:
		return lookup(m, doubleChanceKeys[d.Pair])
	case market.KindOver:
		return resolveTotal(m, "Over", "over", "O", d.Threshold)
	case market.KindUnder:
		return resolveTotal(m, "Under", "under", "U", d.Threshold)
	case market.KindBTTS:
		if d.Yes {
			return lookup(m, bttsYesKeys)
		}
		return lookup(m, bttsNoKeys)
	case market.KindAsianHandicap:
		return resolveHandicap(m, d.Side, d.Handicap)
	case market.KindCorrectScore:
		return lookup(m, []string{
			fmt.Sprintf("%d-%d", d.HomeGoals, d.AwayGoals),
			fmt.Sprintf("%d:%d", d.HomeGoals, d.AwayGoals),
		})
	default:
		return 0, false
	}
}

func resolveTotal(m models.OddsMap, title, lower, short string, threshold float64) (float64, bool) {
	t := formatThreshold(threshold)
	if v, ok := lookup(m, []string{title + " " + t, lower + " " + t, short + t}); ok {
		return v, true
	}
	label := lower + " " + t
	return scan(m, func(key string) bool {
		k := strings.ToLower(key)
		if k != label && !strings.HasSuffix(k, " "+label) {
			return false
		}
		return !containsAny(k, teamTotalTokens)
	})
}

// teamTotalTokens mark one-team or one-half totals, e.g. "Total - Home Over 1.5".
var teamTotalTokens = []string{"home", "away", "team", "total -", "half"}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func resolveHandicap(m models.OddsMap, side market.Side, handicap float64) (float64, bool) {
	sideToken := "home"
	title := "Home"
	if side == market.SideAway {
		sideToken = "away"
		title = "Away"
	}
	literals := handicapLiterals(handicap)
	if v, ok := scan(m, func(key string) bool {
		k := strings.ToLower(key)
		if !strings.Contains(k, "handicap") && !strings.Contains(k, "asian") {
			return false
		}
		return strings.Contains(k, sideToken) && containsAnyLiteral(k, literals)
	}); ok {
		return v, true
	}
	keys := make([]string, 0, len(literals))
	for _, l := range literals {
		keys = append(keys, title+" "+l)
	}
	return lookup(m, keys)
}

// handicapLiterals lists the spellings a line may appear under: "+1.5"/"1.5", "-0.5", "0".
func handicapLiterals(h float64) []string {
	plain := formatThreshold(h)
	if h > 0 {
		return []string{"+" + plain, plain}
	}
	return []string{plain}
}

func containsAnyLiteral(key string, literals []string) bool {
	for _, l := range literals {
		if containsNumber(key, l) {
			return true
		}
	}
	return false
}

// containsNumber reports whether num occurs in key as a whole number, so "2" does not match "Over 2.5".
func containsNumber(key, num string) bool {
	for from := 0; from < len(key); {
		i := strings.Index(key[from:], num)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(num)
		if !isNumberByte(key, start-1, true) && !isNumberByte(key, end, false) {
			return true
		}
		from = start + 1
	}
	return false
}

func isNumberByte(s string, i int, signed bool) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	c := s[i]
	if signed && (c == '-' || c == '+') {
		return true
	}
	return (c >= '0' && c <= '9') || c == '.'
}

func lookup(m models.OddsMap, keys []string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && isUsable(v) {
			return Clamp(v), true
		}
	}
	return 0, false
}

// scan walks keys in sorted order so the result does not depend on map iteration.
func scan(m models.OddsMap, match func(key string) bool) (float64, bool) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !match(k) {
			continue
		}
		if v := m[k]; isUsable(v) {
			return Clamp(v), true
		}
	}
	return 0, false
}

func isUsable(v float64) bool {
	return v > 1 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
