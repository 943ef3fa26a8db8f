package enums

import "strings"

// MatchStatus is the short status code reported by the fixtures provider (NS, 1H, HT, FT, ...).
type MatchStatus string

const (
	StatusTBD         MatchStatus = "TBD"
	StatusNotStarted  MatchStatus = "NS"
	StatusFirstHalf   MatchStatus = "1H"
	StatusHalftime    MatchStatus = "HT"
	StatusSecondHalf  MatchStatus = "2H"
	StatusExtraTime   MatchStatus = "ET"
	StatusBreakTime   MatchStatus = "BT"
	StatusPenalties   MatchStatus = "P"
	StatusLive        MatchStatus = "LIVE"
	StatusFinished    MatchStatus = "FT"
	StatusAfterET     MatchStatus = "AET"
	StatusAfterPens   MatchStatus = "PEN"
	StatusSuspended   MatchStatus = "SUSP"
	StatusInterrupted MatchStatus = "INT"
	StatusPostponed   MatchStatus = "PST"
	StatusCancelled   MatchStatus = "CANC"
	StatusAbandoned   MatchStatus = "ABD"
	StatusAwarded     MatchStatus = "AWD"
	StatusWalkover    MatchStatus = "WO"
)

// StatusCategory groups provider codes into lifecycle phases.
type StatusCategory string

const (
	CategoryNotStarted StatusCategory = "not_started"
	CategoryLive       StatusCategory = "live"
	CategoryHalftime   StatusCategory = "halftime"
	CategoryFinished   StatusCategory = "finished"
	CategorySuspended  StatusCategory = "suspended"
	CategoryPostponed  StatusCategory = "postponed"
)

// hedgingMinMinute is the earliest live minute at which hedges are proposed.
const hedgingMinMinute = 40

// ParseMatchStatus normalizes a raw provider code.
func ParseMatchStatus(code string) MatchStatus {
	return MatchStatus(strings.ToUpper(strings.TrimSpace(code)))
}

// Category classifies the code. Unknown codes are treated as not started.
func (s MatchStatus) Category() StatusCategory {
	switch s {
	case StatusTBD, StatusNotStarted:
		return CategoryNotStarted
	case StatusFirstHalf, StatusSecondHalf, StatusExtraTime, StatusBreakTime, StatusPenalties, StatusLive:
		return CategoryLive
	case StatusHalftime:
		return CategoryHalftime
	case StatusFinished, StatusAfterET, StatusAfterPens:
		return CategoryFinished
	case StatusSuspended, StatusInterrupted:
		return CategorySuspended
	case StatusPostponed, StatusCancelled, StatusAbandoned, StatusAwarded, StatusWalkover:
		return CategoryPostponed
	default:
		return CategoryNotStarted
	}
}

// IsKnown reports whether the code belongs to the provider's closed enumeration.
func (s MatchStatus) IsKnown() bool {
	switch s {
	case StatusTBD, StatusNotStarted,
		StatusFirstHalf, StatusSecondHalf, StatusExtraTime, StatusBreakTime, StatusPenalties, StatusLive,
		StatusHalftime,
		StatusFinished, StatusAfterET, StatusAfterPens,
		StatusSuspended, StatusInterrupted,
		StatusPostponed, StatusCancelled, StatusAbandoned, StatusAwarded, StatusWalkover:
		return true
	default:
		return false
	}
}

// String returns string representation
func (s MatchStatus) String() string {
	return string(s)
}

// HasStarted is true once the match is live, at the break or over.
// Suspended and postponed matches are not counted as started.
func (s MatchStatus) HasStarted() bool {
	switch s.Category() {
	case CategoryLive, CategoryHalftime, CategoryFinished:
		return true
	default:
		return false
	}
}

// IsHalftimeOrLater is true from the half-time whistle onwards.
func (s MatchStatus) IsHalftimeOrLater() bool {
	if s == StatusSecondHalf || s == StatusExtraTime {
		return true
	}
	c := s.Category()
	return c == CategoryHalftime || c == CategoryFinished
}

// IsFinished reports a final whistle.
func (s MatchStatus) IsFinished() bool {
	return s.Category() == CategoryFinished
}

// CanActivateHedging is true late in the first half, at the break and in the second half.
func (s MatchStatus) CanActivateHedging(elapsed int) bool {
	switch {
	case s.Category() == CategoryLive && elapsed >= hedgingMinMinute:
		return true
	case s.Category() == CategoryHalftime:
		return true
	case s == StatusSecondHalf:
		return true
	default:
		return false
	}
}
