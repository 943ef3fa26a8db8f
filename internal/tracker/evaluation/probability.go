package evaluation

import (
	"math"

	"github.com/Vodeneev/livebet/internal/pkg/models"
	"github.com/Vodeneev/livebet/internal/tracker/market"
	"github.com/Vodeneev/livebet/internal/tracker/odds"
)

// Trend is the direction the market moved the option's chances since it was placed.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// Confidence bands the dynamic probability.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Probability is the in-play estimate for a held option.
type Probability struct {
	Percent    int        `json:"percent"`
	Trend      Trend      `json:"trend"`
	Confidence Confidence `json:"confidence"`
}

// Fraction returns Percent as a value in [0,1].
func (p Probability) Fraction() float64 {
	return float64(p.Percent) / 100
}

const (
	minProbability = 0.05
	maxProbability = 0.95

	trendThresholdPct = 5.0
	upMultiplier      = 1.1
	downMultiplier    = 0.9

	goalsPerMatch = 2.5
	matchMinutes  = 90.0
)

// Quote is the price pair the trend is read from.
type Quote struct {
	Original float64
	Current  float64
	Source   odds.Source
}

// DynamicProbability estimates the option's chance of winning from the score,
// the minute and the price movement. A settled option reports 0 or 100.
// Simulated prices are derived from the score, so they do not move the estimate.
func DynamicProbability(d market.Descriptor, state models.GameState, s Settlement, q Quote) Probability {
	trend := trendOf(q.Original, q.Current)

	var p float64
	switch s.Status {
	case StatusWon:
		p = 1
	case StatusLost:
		p = 0
	default:
		p = clampProbability(baseProbability(d, state))
		if q.Source == odds.SourceMarket {
			switch trend {
			case TrendUp:
				p = clampProbability(p * upMultiplier)
			case TrendDown:
				p = clampProbability(p * downMultiplier)
			}
		}
	}

	return Probability{
		Percent:    int(math.Round(p * 100)),
		Trend:      trend,
		Confidence: confidenceOf(p),
	}
}

func trendOf(original, current float64) Trend {
	if original <= 0 || current <= 0 {
		return TrendStable
	}
	delta := (original - current) / original * 100
	switch {
	case delta > trendThresholdPct:
		return TrendUp
	case delta < -trendThresholdPct:
		return TrendDown
	default:
		return TrendStable
	}
}

func confidenceOf(p float64) Confidence {
	switch {
	case p > 0.7:
		return ConfidenceHigh
	case p > 0.4:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func clampProbability(p float64) float64 {
	return math.Max(minProbability, math.Min(maxProbability, p))
}

func baseProbability(d market.Descriptor, state models.GameState) float64 {
	h, a := state.Home, state.Away
	p := state.Progress()

	switch d.Kind {
	case market.KindWinner:
		diff := h - a
		if d.Side == market.SideAway {
			diff = -diff
		}
		switch {
		case diff > 0:
			return 0.6 + 0.15*float64(diff) + 0.15*p
		case diff < 0:
			return 0.4 - 0.15*float64(-diff) - 0.1*p
		default:
			return 0.35 - 0.1*p
		}

	case market.KindDraw:
		if h == a {
			return 0.4 + 0.3*p
		}
		return 0.3 - 0.15*math.Abs(float64(h-a)) - 0.1*p

	case market.KindBTTS:
		yes := bttsYesProbability(h, a, p)
		if d.Yes {
			return yes
		}
		return 1 - yes

	case market.KindOver:
		total := h + a
		if float64(total) > d.Threshold {
			return 1
		}
		elapsed := math.Max(0, math.Min(matchMinutes, float64(state.Elapsed)))
		expected := goalsPerMatch / matchMinutes * (matchMinutes - elapsed)
		needed := math.Max(1, math.Ceil(d.Threshold+0.5)-float64(total))
		return math.Min(0.9, expected/needed)

	case market.KindUnder:
		if float64(h+a) >= math.Ceil(d.Threshold) {
			return 0
		}
		return 0.5 + 0.4*p

	case market.KindDoubleChance:
		if d.Pair.Covers(h, a) {
			return 0.65 + 0.25*p
		}
		return 0.3 - 0.1*math.Abs(float64(h-a)) - 0.15*p

	case market.KindAsianHandicap:
		adj := d.AdjustedScore(h, a)
		switch {
		case adj > 0:
			return 0.6 + 0.15*p + 0.05*math.Min(adj, 3)
		case adj < 0:
			return 0.35 - 0.1*p
		default:
			return 0.45
		}

	case market.KindCorrectScore:
		switch {
		case h == d.HomeGoals && a == d.AwayGoals:
			return 0.15 + 0.35*p
		case h > d.HomeGoals || a > d.AwayGoals:
			return 0
		default:
			return 0.1 * (1 - p)
		}

	default:
		return 0.5
	}
}

func bttsYesProbability(h, a int, p float64) float64 {
	switch {
	case h > 0 && a > 0:
		return 1
	case h > 0 || a > 0:
		return 0.5 + 0.3*(1-p)
	default:
		return 0.4 - 0.2*p
	}
}
