package market

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind is the bet market a phrase was classified into.
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindWinner        Kind = "winner"
	KindDraw          Kind = "draw"
	KindDoubleChance  Kind = "double_chance"
	KindOver          Kind = "over"
	KindUnder         Kind = "under"
	KindBTTS          Kind = "btts"
	KindAsianHandicap Kind = "asian_handicap"
	KindCorrectScore  Kind = "correct_score"
)

// Side is the team a Winner or AsianHandicap bet is placed on.
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// Pair is the two 1X2 outcomes covered by a double chance bet.
type Pair string

const (
	HomeOrDraw Pair = "1X"
	DrawOrAway Pair = "X2"
	HomeOrAway Pair = "12"
)

// Descriptor is the typed form of a bet-option phrase. Only the fields relevant
// to Kind are set; the zero value of the others keeps descriptors comparable with ==.
type Descriptor struct {
	Kind      Kind
	Side      Side    // Winner, AsianHandicap
	Pair      Pair    // DoubleChance
	Threshold float64 // Over, Under
	Yes       bool    // BTTS
	Handicap  float64 // AsianHandicap
	HomeGoals int     // CorrectScore
	AwayGoals int     // CorrectScore
}

func Unknown() Descriptor { return Descriptor{Kind: KindUnknown} }

func Winner(side Side) Descriptor { return Descriptor{Kind: KindWinner, Side: side} }

func Draw() Descriptor { return Descriptor{Kind: KindDraw} }

func DoubleChance(pair Pair) Descriptor { return Descriptor{Kind: KindDoubleChance, Pair: pair} }

func Over(threshold float64) Descriptor { return Descriptor{Kind: KindOver, Threshold: threshold} }

func Under(threshold float64) Descriptor { return Descriptor{Kind: KindUnder, Threshold: threshold} }

func BTTS(yes bool) Descriptor { return Descriptor{Kind: KindBTTS, Yes: yes} }

func AsianHandicap(side Side, handicap float64) Descriptor {
	return Descriptor{Kind: KindAsianHandicap, Side: side, Handicap: handicap}
}

func CorrectScore(home, away int) Descriptor {
	return Descriptor{Kind: KindCorrectScore, HomeGoals: home, AwayGoals: away}
}

// IsUnknown reports a phrase that matched no rule.
func (d Descriptor) IsUnknown() bool {
	return d.Kind == KindUnknown || d.Kind == ""
}

// String renders the canonical phrase; Parse(d.String()) == d.
func (d Descriptor) String() string {
	switch d.Kind {
	case KindWinner:
		if d.Side == SideAway {
			return "Victoire extérieur"
		}
		return "Victoire domicile"
	case KindDraw:
		return "Match nul"
	case KindDoubleChance:
		return "Double chance " + string(d.Pair)
	case KindOver:
		return "Plus de " + formatNumber(d.Threshold) + " buts"
	case KindUnder:
		return "Moins de " + formatNumber(d.Threshold) + " buts"
	case KindBTTS:
		if d.Yes {
			return "Les deux équipes marquent - Oui"
		}
		return "Les deux équipes marquent - Non"
	case KindAsianHandicap:
		return fmt.Sprintf("Asian handicap %s %s", d.side(), formatSigned(d.Handicap))
	case KindCorrectScore:
		return fmt.Sprintf("Score exact %d-%d", d.HomeGoals, d.AwayGoals)
	default:
		return ""
	}
}

// MarketKey is a stable machine key for the market, e.g. "over_2.5" or "double_chance_x2".
func (d Descriptor) MarketKey() string {
	switch d.Kind {
	case KindWinner:
		return "winner_" + string(d.side())
	case KindDraw:
		return "draw"
	case KindDoubleChance:
		switch d.Pair {
		case HomeOrDraw:
			return "double_chance_1x"
		case DrawOrAway:
			return "double_chance_x2"
		default:
			return "double_chance_12"
		}
	case KindOver:
		return "over_" + formatNumber(d.Threshold)
	case KindUnder:
		return "under_" + formatNumber(d.Threshold)
	case KindBTTS:
		if d.Yes {
			return "btts_yes"
		}
		return "btts_no"
	case KindAsianHandicap:
		return "asian_handicap_" + string(d.side()) + "_" + formatSigned(d.Handicap)
	case KindCorrectScore:
		return fmt.Sprintf("correct_score_%d-%d", d.HomeGoals, d.AwayGoals)
	default:
		return "unknown"
	}
}

func (d Descriptor) side() Side {
	if d.Side == SideAway {
		return SideAway
	}
	return SideHome
}

// MarshalJSON emits only the parameters of the descriptor's kind.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	out := map[string]any{"kind": d.Kind}
	switch d.Kind {
	case KindWinner:
		out["side"] = d.side()
	case KindDoubleChance:
		out["pair"] = d.Pair
	case KindOver, KindUnder:
		out["threshold"] = d.Threshold
	case KindBTTS:
		out["yes"] = d.Yes
	case KindAsianHandicap:
		out["side"] = d.side()
		out["handicap"] = d.Handicap
	case KindCorrectScore:
		out["home"] = d.HomeGoals
		out["away"] = d.AwayGoals
	case "":
		out["kind"] = KindUnknown
	}
	return json.Marshal(out)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatSigned(v float64) string {
	if v > 0 {
		return "+" + formatNumber(v)
	}
	return formatNumber(v)
}

// Covers reports whether a double chance pair includes the 1X2 result of the score.
func (p Pair) Covers(home, away int) bool {
	switch p {
	case HomeOrDraw:
		return home >= away
	case DrawOrAway:
		return away >= home
	case HomeOrAway:
		return home != away
	}
	return false
}

// AdjustedScore is the goal difference from the backed side's point of view
// once the handicap is applied. Zero is a push.
func (d Descriptor) AdjustedScore(home, away int) float64 {
	if d.Side == SideAway {
		return float64(away) + d.Handicap - float64(home)
	}
	return float64(home) + d.Handicap - float64(away)
}
