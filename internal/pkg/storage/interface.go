package storage

import (
	"context"
	"time"
)

// OptionSnapshot is the state of one held option at one watch tick.
type OptionSnapshot struct {
	TrackingID     string
	FixtureID      int64
	Phrase         string
	MarketKey      string
	Status         string
	Odds           float64
	OddsSource     string
	Probability    int
	HedgeAvailable bool
	Minute         int
	ScoreHome      int
	ScoreAway      int
	RecordedAt     time.Time
}

// TrackingStorage keeps the latest snapshot per (fixture, option) plus a history of snapshots.
type TrackingStorage interface {
	// StoreOptionSnapshot upserts the latest row and appends one history point.
	StoreOptionSnapshot(ctx context.Context, snap OptionSnapshot) error
	// LastOptionSnapshot returns the latest snapshot; ok is false when none was stored yet.
	LastOptionSnapshot(ctx context.Context, fixtureID int64, phrase string) (snap OptionSnapshot, ok bool, err error)
	// OptionHistory returns recent points, oldest first, at most limit.
	OptionHistory(ctx context.Context, fixtureID int64, phrase string, limit int) ([]OptionSnapshot, error)
	// CleanFinished removes rows of fixtures not updated since before.
	CleanFinished(ctx context.Context, before time.Time) error
	Close() error
}
