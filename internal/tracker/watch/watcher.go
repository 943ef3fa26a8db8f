// Package watch re-tracks configured fixtures on a ticker and raises alerts when
// an option changes status, a hedge opens up or the match ends.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Vodeneev/livebet/internal/pkg/config"
	"github.com/Vodeneev/livebet/internal/pkg/metrics"
	"github.com/Vodeneev/livebet/internal/pkg/models"
	"github.com/Vodeneev/livebet/internal/pkg/storage"
	"github.com/Vodeneev/livebet/internal/tracker/tracking"
)

const defaultInterval = 60 * time.Second

var ErrNoFixtures = errors.New("no fixtures to watch")

// Tracker runs one full tracking.
type Tracker interface {
	Track(ctx context.Context, req tracking.Request) (*tracking.Tracking, error)
}

// Fixture is a watched fixture with the options held on it.
type Fixture struct {
	FixtureID int64
	Bookmaker string
	Options   []models.HeldOption
}

// FixturesFromConfig parses the configured option phrases.
func FixturesFromConfig(cfg []config.WatchedFixture) []Fixture {
	out := make([]Fixture, 0, len(cfg))
	for _, f := range cfg {
		fx := Fixture{FixtureID: f.FixtureID, Bookmaker: f.Bookmaker}
		for _, o := range f.Options {
			fx.Options = append(fx.Options, models.NewHeldOption(o.Phrase, o.Odds, o.Stake))
		}
		out = append(out, fx)
	}
	return out
}

type optionKey struct {
	fixtureID int64
	phrase    string
}

// Watcher polls the tracker for every fixture. Start/Stop may be called repeatedly.
type Watcher struct {
	tracker  Tracker
	fixtures []Fixture
	interval time.Duration
	store    storage.TrackingStorage
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	cancel   context.CancelFunc
	loopDone chan struct{}

	stateMu  sync.Mutex
	last     map[optionKey]storage.OptionSnapshot
	finished map[int64]bool
}

type Option func(*Watcher)

// WithStorage persists option snapshots; without it the watcher only keeps them in memory.
func WithStorage(s storage.TrackingStorage) Option {
	return func(w *Watcher) { w.store = s }
}

func WithNotifier(n Notifier) Option {
	return func(w *Watcher) { w.notifier = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Watcher) { w.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(w *Watcher) { w.now = now }
}

func New(tracker Tracker, fixtures []Fixture, interval time.Duration, opts ...Option) *Watcher {
	if interval <= 0 {
		interval = defaultInterval
	}
	w := &Watcher{
		tracker:  tracker,
		fixtures: fixtures,
		interval: interval,
		logger:   slog.Default(),
		now:      time.Now,
		last:     make(map[optionKey]storage.OptionSnapshot),
		finished: make(map[int64]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.notifier == nil {
		w.notifier = LogNotifier{Logger: w.logger}
	}
	return w
}

// Running reports whether the polling loop is active.
func (w *Watcher) Running() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cancel != nil
}

// Start launches the polling loop under ctx. It returns false when the loop was already running.
func (w *Watcher) Start(ctx context.Context) (bool, error) {
	if len(w.fixtures) == 0 {
		return false, ErrNoFixtures
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return false, nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.cancel = cancel
	w.loopDone = done

	w.logger.Info("watch: starting", "interval", w.interval, "fixtures", len(w.fixtures))
	go func() {
		defer close(done)
		w.run(loopCtx)

		// parent context ended without Stop
		w.mu.Lock()
		if w.loopDone == done {
			w.cancel, w.loopDone = nil, nil
		}
		w.mu.Unlock()
		cancel()
	}()
	return true, nil
}

// Stop cancels the loop and waits for the current tick to finish. It returns false when nothing was running.
func (w *Watcher) Stop() bool {
	w.mu.Lock()
	cancel, done := w.cancel, w.loopDone
	w.cancel, w.loopDone = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	<-done
	w.logger.Info("watch: stopped")
	return true
}

func (w *Watcher) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick tracks every unfinished fixture once and returns the alerts it raised.
func (w *Watcher) Tick(ctx context.Context) []Alert {
	var alerts []Alert
	for _, fx := range w.fixtures {
		if ctx.Err() != nil {
			break
		}
		if w.isFinished(fx.FixtureID) {
			continue
		}

		res, err := w.tracker.Track(ctx, tracking.Request{
			FixtureID: fx.FixtureID,
			Options:   fx.Options,
			Bookmaker: fx.Bookmaker,
		})
		switch {
		case err != nil:
			w.metrics.ObserveWatchTick("error")
			w.logger.Warn("watch: tracking failed", "fixture_id", fx.FixtureID, "error", err)
			continue
		case res.Failed():
			w.metrics.ObserveWatchTick("error")
			w.logger.Warn("watch: tracking failed", "fixture_id", fx.FixtureID, "kind", res.Error, "message", res.Message)
			continue
		}
		w.metrics.ObserveWatchTick("ok")

		for _, a := range w.diff(ctx, res) {
			if err := w.notifier.Notify(ctx, a); err != nil {
				w.logger.Warn("watch: notify failed", "fixture_id", a.FixtureID, "kind", a.Kind, "error", err)
				continue
			}
			w.metrics.ObserveAlert(string(a.Kind))
			alerts = append(alerts, a)
		}
	}
	return alerts
}

// diff compares the tracking with the previous snapshots and stores the new ones.
func (w *Watcher) diff(ctx context.Context, res *tracking.Tracking) []Alert {
	match := res.Match
	now := w.now()
	state := match.State()

	hedged := make(map[string]bool, len(res.Hedging))
	for _, h := range res.Hedging {
		hedged[h.OriginalBet] = true
	}

	base := Alert{
		FixtureID: res.FixtureID,
		Minute:    state.Elapsed,
		ScoreHome: state.Home,
		ScoreAway: state.Away,
		At:        now,
	}

	var alerts []Alert
	for _, opt := range res.Options {
		snap := storage.OptionSnapshot{
			TrackingID:     res.ID,
			FixtureID:      res.FixtureID,
			Phrase:         opt.Phrase,
			MarketKey:      opt.MarketKey,
			Status:         string(opt.CurrentStatus),
			Odds:           opt.CurrentOdds,
			OddsSource:     string(opt.OddsSource),
			Probability:    opt.DynamicProbability,
			HedgeAvailable: hedged[opt.Phrase],
			Minute:         state.Elapsed,
			ScoreHome:      state.Home,
			ScoreAway:      state.Away,
			RecordedAt:     now,
		}

		prev, seen := w.previous(ctx, res.FixtureID, opt.Phrase)
		if seen && prev.Status != snap.Status {
			a := base
			a.Kind, a.Phrase, a.From, a.To = AlertStatusChange, opt.Phrase, prev.Status, snap.Status
			alerts = append(alerts, a)
		}
		if snap.HedgeAvailable && (!seen || !prev.HedgeAvailable) {
			a := base
			a.Kind, a.Phrase = AlertHedgeAvailable, opt.Phrase
			alerts = append(alerts, a)
		}

		w.remember(ctx, snap)
	}

	if state.Finished {
		w.stateMu.Lock()
		w.finished[res.FixtureID] = true
		w.stateMu.Unlock()

		a := base
		a.Kind = AlertFinished
		if res.Verdict != nil {
			a.Detail = res.Verdict.Message
		}
		alerts = append(alerts, a)
	}
	return alerts
}

func (w *Watcher) isFinished(fixtureID int64) bool {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.finished[fixtureID]
}

func (w *Watcher) previous(ctx context.Context, fixtureID int64, phrase string) (storage.OptionSnapshot, bool) {
	key := optionKey{fixtureID, phrase}
	w.stateMu.Lock()
	snap, ok := w.last[key]
	w.stateMu.Unlock()
	if ok || w.store == nil {
		return snap, ok
	}

	snap, ok, err := w.store.LastOptionSnapshot(ctx, fixtureID, phrase)
	if err != nil {
		w.logger.Warn("watch: failed to load last snapshot", "fixture_id", fixtureID, "phrase", phrase, "error", err)
		return storage.OptionSnapshot{}, false
	}
	return snap, ok
}

func (w *Watcher) remember(ctx context.Context, snap storage.OptionSnapshot) {
	w.stateMu.Lock()
	w.last[optionKey{snap.FixtureID, snap.Phrase}] = snap
	w.stateMu.Unlock()

	if w.store == nil {
		return
	}
	if err := w.store.StoreOptionSnapshot(ctx, snap); err != nil {
		w.logger.Warn("watch: failed to store snapshot", "fixture_id", snap.FixtureID, "phrase", snap.Phrase, "error", err)
	}
}
