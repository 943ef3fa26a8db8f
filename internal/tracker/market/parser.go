package market

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	correctScoreRe = regexp.MustCompile(`(?:score exact|correct score)\s*:?\s*(\d+)\s*[-:]\s*(\d+)`)
	overRe         = regexp.MustCompile(`(?:plus de|over)\s*(\d+(?:[.,]\d+)?)`)
	underRe        = regexp.MustCompile(`(?:moins de|under)\s*(\d+(?:[.,]\d+)?)`)
	signedNumberRe = regexp.MustCompile(`[+-]?\d+(?:[.,]\d+)?`)
)

var (
	homeTokens = []string{"domicile", "home"}
	awayTokens = []string{"extérieur", "exterieur", "away"}
	drawTokens = []string{"nul", "draw"}
	bttsTokens = []string{"btts", "deux équipes marquent", "deux equipes marquent", "both teams to score", "both teams score"}
	yesTokens  = []string{"oui", "yes"}
	winTokens  = []string{"victoire", "win"}

	drawNoBetTokens = []string{"no bet", "draw no", "rembours", "dnb"}
)

// Parse classifies a free-text bet-option phrase (French or English).
// Rules are ordered and the first match wins; phrases matching nothing yield Unknown.
func Parse(phrase string) Descriptor {
	s := strings.ToLower(strings.Join(strings.Fields(phrase), " "))
	if s == "" {
		return Unknown()
	}

	if m := correctScoreRe.FindStringSubmatch(s); m != nil {
		home, _ := strconv.Atoi(m[1])
		away, _ := strconv.Atoi(m[2])
		return CorrectScore(home, away)
	}

	if strings.Contains(s, "double") {
		return parseDoubleChance(s)
	}

	if strings.Contains(s, "handicap") {
		return parseHandicap(s)
	}

	if m := overRe.FindStringSubmatch(s); m != nil {
		if t, ok := parseNumber(m[1]); ok {
			return Over(t)
		}
	}
	if m := underRe.FindStringSubmatch(s); m != nil {
		if t, ok := parseNumber(m[1]); ok {
			return Under(t)
		}
	}

	if containsAny(s, bttsTokens) {
		return BTTS(containsAny(s, yesTokens))
	}

	switch s {
	case "1", "win 1":
		return Winner(SideHome)
	case "2", "win 2":
		return Winner(SideAway)
	case "x":
		return Draw()
	}

	// "draw no bet" and "remboursé si nul" are a different market.
	if containsAny(s, drawNoBetTokens) {
		return Unknown()
	}

	if containsAny(s, winTokens) {
		if containsAny(s, awayTokens) {
			return Winner(SideAway)
		}
		return Winner(SideHome)
	}

	if containsAny(s, drawTokens) {
		return Draw()
	}

	return Unknown()
}

func parseDoubleChance(s string) Descriptor {
	home := containsAny(s, homeTokens)
	away := containsAny(s, awayTokens)
	draw := containsAny(s, drawTokens)
	switch {
	case strings.Contains(s, "1x") || (home && draw):
		return DoubleChance(HomeOrDraw)
	case strings.Contains(s, "x2") || (away && draw):
		return DoubleChance(DrawOrAway)
	case strings.Contains(s, "12") || (home && away):
		return DoubleChance(HomeOrAway)
	default:
		return Unknown()
	}
}

func parseHandicap(s string) Descriptor {
	side := SideHome
	if containsAny(s, awayTokens) {
		side = SideAway
	}
	m := signedNumberRe.FindString(s)
	if m == "" {
		return Unknown()
	}
	h, ok := parseNumber(m)
	if !ok {
		return Unknown()
	}
	return AsianHandicap(side, h)
}

func parseNumber(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
