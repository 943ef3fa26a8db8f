package models

import "github.com/Vodeneev/livebet/internal/tracker/market"

// HeldOption is a bet the user already placed: the phrase they picked, its parsed
// market, the price they got and the amount staked.
type HeldOption struct {
	Phrase       string            `json:"phrase"`
	Descriptor   market.Descriptor `json:"descriptor"`
	OriginalOdds float64           `json:"original_odds"`
	Stake        float64           `json:"stake"`
}

// NewHeldOption parses phrase into its market. Unrecognised phrases keep an unknown market.
func NewHeldOption(phrase string, originalOdds, stake float64) HeldOption {
	return HeldOption{
		Phrase:       phrase,
		Descriptor:   market.Parse(phrase),
		OriginalOdds: originalOdds,
		Stake:        stake,
	}
}
