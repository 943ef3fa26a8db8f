// Package hedging proposes the complementary market for each held option once
// the match is far enough along for a hedge to make sense.
package hedging

import (
	"github.com/shopspring/decimal"

	"github.com/Vodeneev/livebet/internal/pkg/models"
	"github.com/Vodeneev/livebet/internal/tracker/market"
	"github.com/Vodeneev/livebet/internal/tracker/odds"
)

// Type groups hedge suggestions by the market family of the hedge.
type Type string

const (
	TypeDoubleChance Type = "double_chance"
	TypeOverUnder    Type = "over_under"
	TypeBTTS         Type = "btts"
	TypeWinner       Type = "winner"
)

// Suggestion is a hedge for one held option.
type Suggestion struct {
	OriginalBet    string            `json:"original_bet"`
	HedgeBet       string            `json:"hedge_bet"`
	HedgeMarketKey string            `json:"hedge_market_key"`
	Hedge          market.Descriptor `json:"hedge"`
	CurrentOdds    float64           `json:"current_odds"`
	OddsSource     odds.Source       `json:"odds_source"`
	Type           Type              `json:"type"`
	// HedgeStake returns the original payout if the hedge wins.
	HedgeStake float64 `json:"hedge_stake"`
}

// Plan returns at most one suggestion per option. Nothing is proposed before
// hedging can be activated, and options whose hedge market has neither a quote
// nor an anchor price are skipped.
func Plan(snapshot models.MatchSnapshot, options []models.HeldOption, m models.OddsMap) []Suggestion {
	suggestions := make([]Suggestion, 0, len(options))
	if !snapshot.CanActivateHedging() {
		return suggestions
	}

	state := snapshot.State()
	for _, opt := range options {
		hedge, typ, ok := Counter(opt.Descriptor)
		if !ok {
			continue
		}

		price, source, ok := hedgePrice(hedge, m, state)
		if !ok {
			continue
		}

		suggestions = append(suggestions, Suggestion{
			OriginalBet:    opt.Phrase,
			HedgeBet:       hedge.String(),
			HedgeMarketKey: hedge.MarketKey(),
			Hedge:          hedge,
			CurrentOdds:    price,
			OddsSource:     source,
			Type:           typ,
			HedgeStake:     coverStake(opt.Stake, opt.OriginalOdds, price),
		})
	}
	return suggestions
}

// Counter maps a held market to the market that wins when it loses.
func Counter(d market.Descriptor) (market.Descriptor, Type, bool) {
	switch d.Kind {
	case market.KindWinner, market.KindAsianHandicap:
		if d.Side == market.SideAway {
			return market.DoubleChance(market.HomeOrDraw), TypeDoubleChance, true
		}
		return market.DoubleChance(market.DrawOrAway), TypeDoubleChance, true
	case market.KindDraw:
		return market.DoubleChance(market.HomeOrAway), TypeDoubleChance, true
	case market.KindOver:
		return market.Under(d.Threshold), TypeOverUnder, true
	case market.KindUnder:
		return market.Over(d.Threshold), TypeOverUnder, true
	case market.KindBTTS:
		return market.BTTS(!d.Yes), TypeBTTS, true
	case market.KindDoubleChance:
		switch d.Pair {
		case market.HomeOrDraw:
			return market.Winner(market.SideAway), TypeWinner, true
		case market.DrawOrAway:
			return market.Winner(market.SideHome), TypeWinner, true
		case market.HomeOrAway:
			return market.Draw(), TypeWinner, true
		}
	}
	return market.Descriptor{}, "", false
}

func hedgePrice(hedge market.Descriptor, m models.OddsMap, state models.GameState) (float64, odds.Source, bool) {
	if v, ok := odds.Resolve(hedge, m); ok {
		return v, odds.SourceMarket, true
	}
	anchor, ok := odds.Anchor(hedge)
	if !ok {
		return 0, "", false
	}
	return odds.Simulate(hedge, anchor, state), odds.SourceSimulated, true
}

func coverStake(stake, originalOdds, hedgeOdds float64) float64 {
	if stake <= 0 || originalOdds <= 0 || hedgeOdds <= 0 {
		return 0
	}
	payout := decimal.NewFromFloat(stake).Mul(decimal.NewFromFloat(originalOdds))
	return payout.Div(decimal.NewFromFloat(hedgeOdds)).Round(0).InexactFloat64()
}
