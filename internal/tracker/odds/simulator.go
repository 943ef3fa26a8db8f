package odds

import (
	"math"

	"github.com/Vodeneev/livebet/internal/pkg/models"
	"github.com/Vodeneev/livebet/internal/tracker/market"
)

const (
	settledWinningFactor = 0.1
	settledLosingFactor  = 10.0
)

// Simulate derives a deterministic in-play price from the pre-match price when the
// bookmaker does not quote the market live. The multiplicative factor depends on the
// market, the score and the match progress.
func Simulate(d market.Descriptor, original float64, state models.GameState) float64 {
	f := clampFactor(simulationFactor(d, state))
	return Clamp(original * f)
}

func simulationFactor(d market.Descriptor, state models.GameState) float64 {
	h, a := state.Home, state.Away
	p := state.Progress()

	switch d.Kind {
	case market.KindWinner:
		if d.Side == market.SideAway {
			h, a = a, h
		}
		return winnerFactor(h, a, p)

	case market.KindDraw:
		if h == a {
			return 0.8 - 0.4*p
		}
		return 2 + 1*p + 0.5*math.Abs(float64(h-a))

	case market.KindDoubleChance:
		if d.Pair.Covers(h, a) {
			return 0.8 - 0.3*p
		}
		return 1.5 + 0.5*p + 0.2*math.Abs(float64(h-a))

	case market.KindOver:
		total := float64(h + a)
		if total > d.Threshold {
			return settledWinningFactor
		}
		return 1 + p*(math.Ceil(d.Threshold)-total+1)*0.3

	case market.KindUnder:
		if float64(h+a) >= math.Ceil(d.Threshold) {
			return settledLosingFactor
		}
		return 0.8 - 0.3*p

	case market.KindBTTS:
		bothScored := h > 0 && a > 0
		if d.Yes {
			switch {
			case bothScored:
				return settledWinningFactor
			case h > 0 || a > 0:
				return 0.7 - 0.2*p
			default:
				return 1 + 0.5*p
			}
		}
		if bothScored {
			return settledLosingFactor
		}
		return 0.6 - 0.3*p

	case market.KindAsianHandicap:
		adj := d.AdjustedScore(h, a)
		switch {
		case adj > 0:
			return 0.7 - 0.3*p
		case adj < 0:
			return 1.5 + 0.5*p
		default:
			return 1
		}

	case market.KindCorrectScore:
		switch {
		case h == d.HomeGoals && a == d.AwayGoals:
			return 0.6 - 0.3*p
		case h > d.HomeGoals || a > d.AwayGoals:
			return settledLosingFactor
		default:
			missing := float64(d.HomeGoals - h + d.AwayGoals - a)
			return 1 + p*missing*0.5
		}

	default:
		return 1
	}
}

func winnerFactor(own, other int, p float64) float64 {
	switch {
	case own > other:
		return 0.6 - 0.3*p - 0.1*float64(own-other)
	case own < other:
		return 1.5 + 0.5*p + 0.2*float64(other-own)
	default:
		return 1 + 0.2*p
	}
}

// Anchor is the reference pre-match price used to simulate a hedge market that the
// bookmaker does not quote. It returns false for markets without an anchor.
func Anchor(d market.Descriptor) (float64, bool) {
	switch d.Kind {
	case market.KindWinner:
		if d.Side == market.SideAway {
			return 3.20, true
		}
		return 2.40, true
	case market.KindDraw:
		return 3.30, true
	case market.KindDoubleChance:
		switch d.Pair {
		case market.HomeOrDraw:
			return 1.35, true
		case market.DrawOrAway:
			return 1.45, true
		case market.HomeOrAway:
			return 1.30, true
		}
	case market.KindOver:
		return totalAnchor(overAnchors, d.Threshold), true
	case market.KindUnder:
		return totalAnchor(underAnchors, d.Threshold), true
	case market.KindBTTS:
		if d.Yes {
			return 1.85, true
		}
		return 1.95, true
	}
	return 0, false
}

var (
	overAnchors  = map[float64]float64{0.5: 1.10, 1.5: 1.35, 2.5: 1.90, 3.5: 2.80, 4.5: 4.50}
	underAnchors = map[float64]float64{0.5: 6.00, 1.5: 3.00, 2.5: 1.95, 3.5: 1.40, 4.5: 1.15}
)

const defaultTotalAnchor = 1.90

func totalAnchor(table map[float64]float64, threshold float64) float64 {
	if v, ok := table[threshold]; ok {
		return v
	}
	return defaultTotalAnchor
}

// Current returns the market price of d when quoted, otherwise the simulated one.
func Current(d market.Descriptor, original float64, m models.OddsMap, state models.GameState) (float64, Source) {
	if v, ok := Resolve(d, m); ok {
		return v, SourceMarket
	}
	return Simulate(d, original, state), SourceSimulated
}
