package validation

import (
	"errors"
	"fmt"
	"math"
)

const (
	minOdds    = 1.01
	maxOdds    = 1000.0
	maxOptions = 50
)

var (
	ErrInvalidFixture = errors.New("fixture id must be positive")
	ErrNoOptions      = errors.New("at least one option is required")
	ErrTooManyOptions = fmt.Errorf("at most %d options per tracking", maxOptions)
)

// Option is an incoming held option before it is parsed.
type Option struct {
	Phrase string
	Odds   float64
	Stake  float64
}

// ValidateFixtureID validates a provider fixture id.
func ValidateFixtureID(id int64) error {
	if id <= 0 {
		return ErrInvalidFixture
	}
	return nil
}

// ValidateOption validates one held option
func ValidateOption(o Option) error {
	if SanitizePhrase(o.Phrase) == "" {
		return fmt.Errorf("phrase cannot be empty")
	}
	if !isFinite(o.Odds) || o.Odds < minOdds || o.Odds > maxOdds {
		return fmt.Errorf("odds must be between %.2f and %.0f: %v", minOdds, maxOdds, o.Odds)
	}
	if !isFinite(o.Stake) || o.Stake < 0 {
		return fmt.Errorf("stake cannot be negative: %v", o.Stake)
	}
	return nil
}

// ValidateTracking validates a tracking request body.
func ValidateTracking(fixtureID int64, options []Option, capital, kellyCap float64) error {
	if err := ValidateFixtureID(fixtureID); err != nil {
		return err
	}
	if len(options) == 0 {
		return ErrNoOptions
	}
	if len(options) > maxOptions {
		return ErrTooManyOptions
	}
	for i, o := range options {
		if err := ValidateOption(o); err != nil {
			return fmt.Errorf("option %d: %w", i, err)
		}
	}

	// zero means "use the default"
	if !isFinite(capital) || capital < 0 {
		return fmt.Errorf("capital cannot be negative: %v", capital)
	}
	if !isFinite(kellyCap) || kellyCap < 0 || kellyCap > 1 {
		return fmt.Errorf("kelly_cap must be between 0 and 1: %v", kellyCap)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
