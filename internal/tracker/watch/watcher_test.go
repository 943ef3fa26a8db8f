package watch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Vodeneev/livebet/internal/pkg/enums"
	"github.com/Vodeneev/livebet/internal/pkg/models"
	"github.com/Vodeneev/livebet/internal/pkg/storage"
	"github.com/Vodeneev/livebet/internal/tracker/evaluation"
	"github.com/Vodeneev/livebet/internal/tracker/hedging"
	"github.com/Vodeneev/livebet/internal/tracker/tracking"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// scriptedTracker returns the next result on every call and repeats the last one.
type scriptedTracker struct {
	mu      sync.Mutex
	results []*tracking.Tracking
	errs    []error
	calls   int
}

func (s *scriptedTracker) Track(_ context.Context, req tracking.Request) (*tracking.Tracking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return nil, err
	}
	res := *s.results[i]
	res.FixtureID = req.FixtureID
	return &res, nil
}

func (s *scriptedTracker) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []Alert
}

func (r *recordingNotifier) Notify(_ context.Context, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

func (r *recordingNotifier) Stop() {}

type memoryStore struct {
	mu      sync.Mutex
	last    map[string]storage.OptionSnapshot
	history []storage.OptionSnapshot
}

func newMemoryStore() *memoryStore {
	return &memoryStore{last: make(map[string]storage.OptionSnapshot)}
}

func (m *memoryStore) StoreOptionSnapshot(_ context.Context, snap storage.OptionSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last[snap.Phrase] = snap
	m.history = append(m.history, snap)
	return nil
}

func (m *memoryStore) LastOptionSnapshot(_ context.Context, _ int64, phrase string) (storage.OptionSnapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.last[phrase]
	return snap, ok, nil
}

func (m *memoryStore) OptionHistory(context.Context, int64, string, int) ([]storage.OptionSnapshot, error) {
	return nil, nil
}

func (m *memoryStore) CleanFinished(context.Context, time.Time) error { return nil }

func (m *memoryStore) Close() error { return nil }

func trackingAt(status enums.MatchStatus, elapsed, home, away int, optStatus evaluation.Status, hedged bool) *tracking.Tracking {
	match := models.MatchSnapshot{
		Status:         status,
		StatusCategory: status.Category(),
		Elapsed:        &elapsed,
		Score:          models.Score{Home: home, Away: away},
	}
	res := &tracking.Tracking{
		ID:      "trk",
		Match:   &match,
		Options: []tracking.OptionResult{{Phrase: "Victoire domicile", CurrentStatus: optStatus, CurrentOdds: 1.5}},
	}
	if hedged {
		res.Hedging = []hedging.Suggestion{{OriginalBet: "Victoire domicile", HedgeBet: "Double chance X2"}}
	}
	verdict := tracking.Verdict(res.Options)
	res.Verdict = &verdict
	return res
}

func watchedFixtures() []Fixture {
	return []Fixture{{FixtureID: 1035, Options: []models.HeldOption{models.NewHeldOption("Victoire domicile", 2.00, 100)}}}
}

func kinds(alerts []Alert) []AlertKind {
	out := make([]AlertKind, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.Kind)
	}
	return out
}

func equalKinds(got, want []AlertKind) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestTickAlerts(t *testing.T) {
	tracker := &scriptedTracker{results: []*tracking.Tracking{
		trackingAt(enums.StatusFirstHalf, 30, 0, 0, evaluation.StatusPending, false),
		trackingAt(enums.StatusSecondHalf, 60, 1, 0, evaluation.StatusWinning, true),
		trackingAt(enums.StatusSecondHalf, 70, 1, 0, evaluation.StatusWinning, true),
		trackingAt(enums.StatusFinished, 90, 1, 0, evaluation.StatusWon, false),
	}}
	notifier := &recordingNotifier{}
	store := newMemoryStore()
	w := New(tracker, watchedFixtures(), time.Minute, WithNotifier(notifier), WithStorage(store), WithLogger(discard))

	steps := [][]AlertKind{
		nil,
		{AlertStatusChange, AlertHedgeAvailable},
		nil,
		{AlertStatusChange, AlertFinished},
	}
	for i, want := range steps {
		got := kinds(w.Tick(context.Background()))
		if !equalKinds(got, want) {
			t.Errorf("tick %d alerts = %v, want %v", i+1, got, want)
		}
	}

	if got := w.Tick(context.Background()); len(got) != 0 {
		t.Errorf("tick after finish alerts = %v, want none", kinds(got))
	}
	if tracker.Calls() != 4 {
		t.Errorf("tracker calls = %d, want 4 (finished fixtures are skipped)", tracker.Calls())
	}
	if len(store.history) != 4 {
		t.Errorf("stored snapshots = %d, want 4", len(store.history))
	}
	if len(notifier.alerts) != 4 {
		t.Errorf("notified alerts = %d, want 4", len(notifier.alerts))
	}

	change := notifier.alerts[0]
	if change.From != "pending" || change.To != "winning" || change.Minute != 60 || change.ScoreHome != 1 {
		t.Errorf("status change alert = %+v", change)
	}
	if finished := notifier.alerts[3]; finished.Detail == "" {
		t.Errorf("finished alert has no verdict detail")
	}
}

func TestTickResumesFromStorage(t *testing.T) {
	store := newMemoryStore()
	_ = store.StoreOptionSnapshot(context.Background(), storage.OptionSnapshot{
		FixtureID:      1035,
		Phrase:         "Victoire domicile",
		Status:         "pending",
		HedgeAvailable: true,
	})

	tracker := &scriptedTracker{results: []*tracking.Tracking{
		trackingAt(enums.StatusSecondHalf, 60, 1, 0, evaluation.StatusWinning, true),
	}}
	w := New(tracker, watchedFixtures(), time.Minute, WithNotifier(&recordingNotifier{}), WithStorage(store), WithLogger(discard))

	got := kinds(w.Tick(context.Background()))
	if want := []AlertKind{AlertStatusChange}; !equalKinds(got, want) {
		t.Errorf("alerts = %v, want %v", got, want)
	}
}

func TestTickSkipsFailedTrackings(t *testing.T) {
	failed := &tracking.Tracking{Error: "match_not_found", Message: "fixture 1035: match not found"}
	tracker := &scriptedTracker{
		results: []*tracking.Tracking{failed, failed},
		errs:    []error{errors.New("canceled"), nil},
	}
	w := New(tracker, watchedFixtures(), time.Minute, WithNotifier(&recordingNotifier{}), WithLogger(discard))

	for i := 0; i < 2; i++ {
		if got := w.Tick(context.Background()); len(got) != 0 {
			t.Errorf("tick %d alerts = %v, want none", i+1, kinds(got))
		}
	}
}

func TestStartStop(t *testing.T) {
	tracker := &scriptedTracker{results: []*tracking.Tracking{
		trackingAt(enums.StatusFirstHalf, 30, 0, 0, evaluation.StatusPending, false),
	}}
	w := New(tracker, watchedFixtures(), 10*time.Millisecond, WithNotifier(&recordingNotifier{}), WithLogger(discard))

	started, err := w.Start(context.Background())
	if err != nil || !started {
		t.Fatalf("Start() = %v, %v, want true, nil", started, err)
	}
	if again, _ := w.Start(context.Background()); again {
		t.Errorf("second Start() = true, want false")
	}
	if !w.Running() {
		t.Errorf("Running() = false after Start")
	}

	deadline := time.Now().Add(2 * time.Second)
	for tracker.Calls() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if tracker.Calls() < 2 {
		t.Errorf("tracker calls = %d, want at least 2", tracker.Calls())
	}

	if !w.Stop() {
		t.Errorf("Stop() = false, want true")
	}
	if w.Running() {
		t.Errorf("Running() = true after Stop")
	}
	if w.Stop() {
		t.Errorf("second Stop() = true, want false")
	}
}

func TestStartWithoutFixtures(t *testing.T) {
	w := New(&scriptedTracker{}, nil, time.Minute, WithLogger(discard))
	if _, err := w.Start(context.Background()); !errors.Is(err, ErrNoFixtures) {
		t.Errorf("Start() error = %v, want ErrNoFixtures", err)
	}
}

func TestStartEndsWithParentContext(t *testing.T) {
	tracker := &scriptedTracker{results: []*tracking.Tracking{
		trackingAt(enums.StatusFirstHalf, 30, 0, 0, evaluation.StatusPending, false),
	}}
	w := New(tracker, watchedFixtures(), time.Hour, WithNotifier(&recordingNotifier{}), WithLogger(discard))

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for w.Running() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if w.Running() {
		t.Errorf("Running() = true after parent context was canceled")
	}
}

func TestFixturesFromConfig(t *testing.T) {
	got := FixturesFromConfig(nil)
	if len(got) != 0 {
		t.Errorf("FixturesFromConfig(nil) = %v, want empty", got)
	}
}
