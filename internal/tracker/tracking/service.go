// Package tracking composes the provider snapshot and the per-option evaluations
// into one live tracking result with hedges and a global verdict.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Vodeneev/livebet/internal/pkg/enums"
	"github.com/Vodeneev/livebet/internal/pkg/metrics"
	"github.com/Vodeneev/livebet/internal/pkg/models"
	"github.com/Vodeneev/livebet/internal/tracker/evaluation"
	"github.com/Vodeneev/livebet/internal/tracker/hedging"
	"github.com/Vodeneev/livebet/internal/tracker/odds"
	"github.com/Vodeneev/livebet/internal/tracker/provider"
)

// Provider is the subset of the upstream client the tracker reads from.
type Provider interface {
	Fixture(ctx context.Context, fixtureID int64) (models.MatchSnapshot, error)
	Statistics(ctx context.Context, fixtureID int64) ([]models.TeamStatistics, error)
	Events(ctx context.Context, fixtureID int64) ([]models.FixtureEvent, error)
	LiveOdds(ctx context.Context, fixtureID int64, bookmakerID int) (models.OddsMap, error)
	PrematchOdds(ctx context.Context, fixtureID int64, bookmakerID int) (models.OddsMap, error)
}

// Service runs full live trackings.
type Service struct {
	provider   Provider
	bookmakers enums.BookmakerTable
	bookmaker  string
	capital    float64
	kellyCap   float64
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

type Option func(*Service)

func WithBookmakers(table enums.BookmakerTable) Option {
	return func(s *Service) { s.bookmakers = table }
}

// WithDefaults sets the bookmaker, capital and Kelly cap used when a request leaves them empty.
func WithDefaults(bookmaker string, capital, kellyCap float64) Option {
	return func(s *Service) {
		s.bookmaker = bookmaker
		s.capital = capital
		s.kellyCap = kellyCap
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(p Provider, opts ...Option) *Service {
	s := &Service{
		provider:   p,
		bookmakers: enums.DefaultBookmakerTable(),
		bookmaker:  enums.Xbet1.String(),
		capital:    evaluation.DefaultCapital,
		kellyCap:   evaluation.DefaultKellyCap,
		logger:     slog.Default(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// snapshotParts is what the concurrent provider fetches produce.
type snapshotParts struct {
	match      models.MatchSnapshot
	matchErr   error
	statistics []models.TeamStatistics
	statsErr   error
	events     []models.FixtureEvent
	eventsErr  error
	odds       models.OddsMap
	feed       OddsFeed
	oddsErr    error
}

// Track fetches the fixture snapshot and evaluates every option against it.
// Provider failures are reported in the result envelope; the error return is
// reserved for a missing provider and a canceled context.
func (s *Service) Track(ctx context.Context, req Request) (result *Tracking, err error) {
	if s.provider == nil {
		return nil, provider.ErrConfigMissing
	}

	start := s.now()
	req = s.withDefaults(req)
	result = &Tracking{
		ID:          s.newID(),
		FixtureID:   req.FixtureID,
		GeneratedAt: start,
		Bookmaker:   req.Bookmaker,
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tracking panicked", "fixture_id", req.FixtureID, "panic", r)
			result = s.failure(result, provider.KindTrackingFailed, fmt.Sprintf("tracking failed: %v", r))
			err = nil
		}
		if err == nil {
			outcome := "ok"
			if result.Failed() {
				outcome = result.Error
			}
			s.metrics.ObserveTracking(outcome, s.now().Sub(start))
		}
	}()

	bookmakerID, known := s.bookmakers.ID(req.Bookmaker)
	if !known {
		result.Warnings = append(result.Warnings, fmt.Sprintf("unknown bookmaker %q, using provider default", req.Bookmaker))
	}
	result.BookmakerID = bookmakerID

	parts := s.fetch(ctx, req.FixtureID, bookmakerID)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	if parts.matchErr != nil {
		kind := provider.ErrorKind(parts.matchErr)
		s.logger.Warn("fixture unavailable", "fixture_id", req.FixtureID, "error", parts.matchErr)
		return s.failure(result, kind, parts.matchErr.Error()), nil
	}

	for _, w := range []struct {
		name string
		err  error
	}{
		{"statistics", parts.statsErr},
		{"events", parts.eventsErr},
		{"odds", parts.oddsErr},
	} {
		if w.err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s unavailable: %v", w.name, w.err))
		}
	}

	match := parts.match
	result.Match = &match
	result.Statistics = parts.statistics
	result.Events = parts.events
	result.OddsFeed = parts.feed

	state := match.State()
	result.Options = make([]OptionResult, 0, len(req.Options))
	for _, opt := range req.Options {
		r := EvaluateOption(opt, state, parts.odds, req.Capital, req.KellyCap)
		s.metrics.ObserveOddsSource(string(r.OddsSource))
		result.Options = append(result.Options, r)
	}

	result.Hedging = hedging.Plan(match, req.Options, parts.odds)
	result.HedgingAvailable = match.CanActivateHedging() && len(result.Hedging) > 0

	verdict := Verdict(result.Options)
	result.Verdict = &verdict

	s.logger.Info("tracking done",
		"fixture_id", req.FixtureID,
		"status", match.Status,
		"minute", match.Minute(),
		"options", len(result.Options),
		"verdict", verdict.Status,
		"odds_feed", parts.feed)

	return result, nil
}

func (s *Service) withDefaults(req Request) Request {
	if req.Bookmaker == "" {
		req.Bookmaker = s.bookmaker
	}
	if req.Capital <= 0 {
		req.Capital = s.capital
	}
	if req.KellyCap <= 0 {
		req.KellyCap = s.kellyCap
	}
	return req
}

func (s *Service) failure(t *Tracking, kind, message string) *Tracking {
	return &Tracking{
		ID:          t.ID,
		FixtureID:   t.FixtureID,
		GeneratedAt: t.GeneratedAt,
		Bookmaker:   t.Bookmaker,
		BookmakerID: t.BookmakerID,
		Error:       kind,
		Message:     message,
	}
}

// fetch runs the four provider calls concurrently. Each call recovers its own
// panic so one broken decoder does not take the others down.
func (s *Service) fetch(ctx context.Context, fixtureID int64, bookmakerID int) snapshotParts {
	var (
		parts snapshotParts
		wg    sync.WaitGroup
	)

	run := func(name string, dst *error, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					*dst = fmt.Errorf("%s panicked: %v", name, r)
				}
			}()
			*dst = fn()
		}()
	}

	run("fixture", &parts.matchErr, func() (err error) {
		parts.match, err = s.provider.Fixture(ctx, fixtureID)
		return err
	})
	run("statistics", &parts.statsErr, func() (err error) {
		parts.statistics, err = s.provider.Statistics(ctx, fixtureID)
		return err
	})
	run("events", &parts.eventsErr, func() (err error) {
		parts.events, err = s.provider.Events(ctx, fixtureID)
		return err
	})
	run("odds", &parts.oddsErr, func() (err error) {
		parts.odds, parts.feed, err = s.fetchOdds(ctx, fixtureID, bookmakerID)
		return err
	})

	wg.Wait()
	if parts.feed == "" {
		parts.feed = FeedNone
	}
	return parts
}

// fetchOdds prefers the in-play feed and falls back to pre-match prices.
func (s *Service) fetchOdds(ctx context.Context, fixtureID int64, bookmakerID int) (models.OddsMap, OddsFeed, error) {
	live, liveErr := s.provider.LiveOdds(ctx, fixtureID, bookmakerID)
	if liveErr == nil && len(live) > 0 {
		return live, FeedLive, nil
	}
	if liveErr != nil {
		s.logger.Debug("live odds unavailable", "fixture_id", fixtureID, "error", liveErr)
	}

	prematch, err := s.provider.PrematchOdds(ctx, fixtureID, bookmakerID)
	if err != nil {
		if liveErr != nil {
			return nil, FeedNone, errors.Join(liveErr, err)
		}
		return nil, FeedNone, err
	}
	if len(prematch) == 0 {
		return nil, FeedNone, nil
	}
	return prematch, FeedPrematch, nil
}

// EvaluateOption prices, settles and sizes one held option against state.
func EvaluateOption(opt models.HeldOption, state models.GameState, m models.OddsMap, capital, kellyCap float64) OptionResult {
	current, source := odds.Current(opt.Descriptor, opt.OriginalOdds, m, state)
	settlement := evaluation.Settle(opt.Descriptor, state)
	prob := evaluation.DynamicProbability(opt.Descriptor, state, settlement, evaluation.Quote{
		Original: opt.OriginalOdds,
		Current:  current,
		Source:   source,
	})

	return OptionResult{
		Phrase:                opt.Phrase,
		Descriptor:            opt.Descriptor,
		MarketKey:             opt.Descriptor.MarketKey(),
		Stake:                 opt.Stake,
		OriginalOdds:          opt.OriginalOdds,
		CurrentOdds:           current,
		OddsSource:            source,
		OddsChange:            odds.Compare(opt.OriginalOdds, current),
		DynamicProbability:    prob.Percent,
		ProbabilityTrend:      prob.Trend,
		ProbabilityConfidence: prob.Confidence,
		CurrentStatus:         settlement.Status,
		StaticProbability:     settlement.Probability,
		SuggestedStake:        evaluation.KellyStake(prob.Fraction(), current, capital, kellyCap),
	}
}
