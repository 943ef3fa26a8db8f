// Package evaluation settles held options against the live score and estimates
// their chance of winning and the stake worth holding on them.
package evaluation

import (
	"math"

	"github.com/Vodeneev/livebet/internal/pkg/models"
	"github.com/Vodeneev/livebet/internal/tracker/market"
)

// Status is the settlement state of an option at the current score.
type Status string

const (
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
	StatusWinning Status = "winning"
	StatusLosing  Status = "losing"
	StatusPending Status = "pending"
)

// IsSettled reports a final won/lost status.
func (s Status) IsSettled() bool {
	return s == StatusWon || s == StatusLost
}

// Settlement is the evaluator verdict with its coarse probability in percent.
type Settlement struct {
	Status      Status `json:"status"`
	Probability int    `json:"probability"`
}

const tiedDrawProbability = 40

// Settle evaluates d against the score in state. Unknown markets and markets
// that only settle at full time stay pending while the match is live.
// A winner bet on a level score is pending in play but lost once the match is
// finished, since a draw can no longer turn into a win.
func Settle(d market.Descriptor, state models.GameState) Settlement {
	h, a := state.Home, state.Away
	finished := state.Finished

	switch d.Kind {
	case market.KindWinner:
		own, other := h, a
		if d.Side == market.SideAway {
			own, other = a, h
		}
		switch {
		case own > other:
			return progressing(true, finished)
		case own < other:
			return progressing(false, finished)
		case finished:
			return settled(false)
		default:
			return pending()
		}

	case market.KindDraw:
		if h != a {
			return progressing(false, finished)
		}
		if finished {
			return settled(true)
		}
		return Settlement{Status: StatusPending, Probability: tiedDrawProbability}

	case market.KindOver:
		switch {
		case float64(h+a) > d.Threshold:
			return settled(true)
		case finished:
			return settled(false)
		default:
			return pending()
		}

	case market.KindUnder:
		switch {
		case float64(h+a) >= math.Ceil(d.Threshold):
			return settled(false)
		case finished:
			return settled(true)
		default:
			return pending()
		}

	case market.KindBTTS:
		both := h > 0 && a > 0
		switch {
		case both:
			return settled(d.Yes)
		case finished:
			return settled(!d.Yes)
		default:
			return pending()
		}

	case market.KindDoubleChance:
		if !finished {
			return pending()
		}
		return settled(d.Pair.Covers(h, a))

	case market.KindAsianHandicap:
		if !finished {
			return pending()
		}
		adj := d.AdjustedScore(h, a)
		if adj == 0 {
			// push: the stake is refunded
			return pending()
		}
		return settled(adj > 0)

	case market.KindCorrectScore:
		if !finished {
			return pending()
		}
		return settled(h == d.HomeGoals && a == d.AwayGoals)

	default:
		return pending()
	}
}

func settled(won bool) Settlement {
	if won {
		return Settlement{Status: StatusWon, Probability: 100}
	}
	return Settlement{Status: StatusLost, Probability: 0}
}

func progressing(ahead, finished bool) Settlement {
	if finished {
		return settled(ahead)
	}
	if ahead {
		return Settlement{Status: StatusWinning, Probability: 75}
	}
	return Settlement{Status: StatusLosing, Probability: 25}
}

func pending() Settlement {
	return Settlement{Status: StatusPending, Probability: 50}
}
