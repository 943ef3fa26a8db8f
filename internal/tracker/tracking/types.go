package tracking

import (
	"time"

	"github.com/Vodeneev/livebet/internal/pkg/models"
	"github.com/Vodeneev/livebet/internal/tracker/evaluation"
	"github.com/Vodeneev/livebet/internal/tracker/hedging"
	"github.com/Vodeneev/livebet/internal/tracker/market"
	"github.com/Vodeneev/livebet/internal/tracker/odds"
)

// Request is one full live tracking call.
type Request struct {
	FixtureID int64
	Options   []models.HeldOption
	Bookmaker string
	Capital   float64
	KellyCap  float64
}

// OptionResult is the live evaluation of one held option.
type OptionResult struct {
	Phrase       string            `json:"phrase"`
	Descriptor   market.Descriptor `json:"descriptor"`
	MarketKey    string            `json:"market_key"`
	Stake        float64           `json:"stake"`
	OriginalOdds float64           `json:"original_odds"`
	CurrentOdds  float64           `json:"current_odds"`
	OddsSource   odds.Source       `json:"odds_source"`
	OddsChange   odds.Change       `json:"odds_change"`

	DynamicProbability    int                   `json:"dynamic_probability"`
	ProbabilityTrend      evaluation.Trend      `json:"probability_trend"`
	ProbabilityConfidence evaluation.Confidence `json:"probability_confidence"`
	CurrentStatus         evaluation.Status     `json:"current_status"`
	StaticProbability     int                   `json:"static_probability"`
	SuggestedStake        evaluation.Stake      `json:"suggested_stake"`
}

// VerdictStatus is the overall outlook of all held options.
type VerdictStatus string

const (
	VerdictPending     VerdictStatus = "pending"
	VerdictWon         VerdictStatus = "won"
	VerdictLost        VerdictStatus = "lost"
	VerdictPartialLoss VerdictStatus = "partial_loss"
	VerdictPartialWin  VerdictStatus = "partial_win"
	VerdictFavorable   VerdictStatus = "favorable"
	VerdictUnfavorable VerdictStatus = "unfavorable"
	VerdictNeutral     VerdictStatus = "neutral"
)

type GlobalVerdict struct {
	Status         VerdictStatus `json:"status"`
	Won            int           `json:"won"`
	Lost           int           `json:"lost"`
	Winning        int           `json:"winning"`
	Losing         int           `json:"losing"`
	Pending        int           `json:"pending"`
	Total          int           `json:"total"`
	AvgProbability int           `json:"avg_probability"`
	Message        string        `json:"message"`
}

// OddsFeed tells which provider feed the odds map came from.
type OddsFeed string

const (
	FeedLive     OddsFeed = "live"
	FeedPrematch OddsFeed = "prematch"
	FeedNone     OddsFeed = "none"
)

// Tracking is the consolidated live picture of a fixture and the options held on it.
// On failure only the envelope fields (Error, Message) and the identifiers are set.
type Tracking struct {
	ID          string    `json:"id"`
	FixtureID   int64     `json:"fixture_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Bookmaker   string    `json:"bookmaker,omitempty"`
	BookmakerID int       `json:"bookmaker_id,omitempty"`

	Match            *models.MatchSnapshot   `json:"match,omitempty"`
	Events           []models.FixtureEvent   `json:"events,omitempty"`
	Statistics       []models.TeamStatistics `json:"statistics,omitempty"`
	OddsFeed         OddsFeed                `json:"odds_feed,omitempty"`
	Options          []OptionResult          `json:"options,omitempty"`
	HedgingAvailable bool                    `json:"hedging_available"`
	Hedging          []hedging.Suggestion    `json:"hedging,omitempty"`
	Verdict          *GlobalVerdict          `json:"verdict,omitempty"`
	Warnings         []string                `json:"warnings,omitempty"`

	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Failed reports an error envelope.
func (t *Tracking) Failed() bool {
	return t.Error != ""
}
