// Package odds resolves the current price of a market from a bookmaker odds map
// and, when the market is missing, simulates a plausible in-play price.
package odds

import "math"

const (
	MinOdds = 1.01
	MaxOdds = 50.0

	minFactor = 0.1
	maxFactor = 10.0
)

// Source tells where a current odds value came from.
type Source string

const (
	SourceMarket    Source = "market"
	SourceSimulated Source = "simulated"
)

// Clamp bounds an odds value to [MinOdds, MaxOdds] and rounds it to two decimals.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return MinOdds
	}
	v = math.Max(MinOdds, math.Min(MaxOdds, v))
	return round2(v)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampFactor(f float64) float64 {
	return math.Max(minFactor, math.Min(maxFactor, f))
}

// Change describes how a price moved since the bet was placed.
type Change struct {
	Original      float64 `json:"original"`
	Current       float64 `json:"current"`
	Diff          float64 `json:"diff"`
	PctChange     float64 `json:"pct_change"`
	Direction     string  `json:"direction"`
	IsSignificant bool    `json:"is_significant"`
}

const significantDiff = 0.05

// Compare builds the odds change from the original to the current price.
func Compare(original, current float64) Change {
	diff := round2(current - original)
	pct := 0.0
	if original > 0 {
		pct = round2(diff / original * 100)
	}
	direction := "stable"
	switch {
	case diff > 0:
		direction = "up"
	case diff < 0:
		direction = "down"
	}
	return Change{
		Original:      original,
		Current:       current,
		Diff:          diff,
		PctChange:     pct,
		Direction:     direction,
		IsSignificant: math.Abs(diff) > significantDiff,
	}
}
