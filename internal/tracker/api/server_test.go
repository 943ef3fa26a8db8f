package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Vodeneev/livebet/internal/pkg/metrics"
	"github.com/Vodeneev/livebet/internal/pkg/models"
	"github.com/Vodeneev/livebet/internal/pkg/storage"
	"github.com/Vodeneev/livebet/internal/tracker/provider"
	"github.com/Vodeneev/livebet/internal/tracker/tracking"
)

type fakeTracker struct {
	got tracking.Request
	res *tracking.Tracking
	err error
}

func (f *fakeTracker) Track(_ context.Context, req tracking.Request) (*tracking.Tracking, error) {
	f.got = req
	return f.res, f.err
}

type fakeFixtures struct {
	lineups []models.Lineup
	err     error
}

func (f *fakeFixtures) Lineups(context.Context, int64) ([]models.Lineup, error) {
	return f.lineups, f.err
}

func (f *fakeFixtures) Status(context.Context) (provider.AccountStatus, error) {
	var s provider.AccountStatus
	s.Subscription.Plan = "Free"
	s.Requests.Current = 12
	s.Requests.LimitDay = 100
	return s, f.err
}

type fakeWatcher struct {
	running bool
	err     error
}

func (f *fakeWatcher) Start(context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.running {
		return false, nil
	}
	f.running = true
	return true, nil
}

func (f *fakeWatcher) Stop() bool {
	was := f.running
	f.running = false
	return was
}

func (f *fakeWatcher) Running() bool { return f.running }

type historyStore struct {
	storage.TrackingStorage
	points []storage.OptionSnapshot
	limit  int
}

func (h *historyStore) OptionHistory(_ context.Context, _ int64, _ string, limit int) ([]storage.OptionSnapshot, error) {
	h.limit = limit
	return h.points, nil
}

func newTestServer(deps Deps) http.Handler {
	deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(deps).Router()
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]any{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: invalid JSON %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, out
}

func TestPingAndHealth(t *testing.T) {
	h := newTestServer(Deps{Tracker: &fakeTracker{}, Watcher: &fakeWatcher{running: true}})

	rec, _ := do(t, h, http.MethodGet, "/ping", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "pong\n" {
		t.Errorf("GET /ping = %d %q", rec.Code, rec.Body.String())
	}

	rec, body := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || body["status"] != "ok" || body["watching"] != true {
		t.Errorf("GET /health = %d %v", rec.Code, body)
	}
}

func TestMetricsRoute(t *testing.T) {
	m := metrics.New()
	m.ObserveTracking("ok", 10*time.Millisecond)

	rec, _ := do(t, newTestServer(Deps{Tracker: &fakeTracker{}, Metrics: m}), http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "livebet_trackings_total") {
		t.Errorf("GET /metrics = %d, body lacks livebet_trackings_total", rec.Code)
	}

	rec, _ = do(t, newTestServer(Deps{Tracker: &fakeTracker{}}), http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /metrics without registry = %d, want 404", rec.Code)
	}
}

func TestTracking(t *testing.T) {
	const body = `{"fixture_id":1035,"bookmaker":" Bet365 ","options":[{"phrase":"  Plus de  2.5 buts","odds":1.9,"stake":100}]}`

	tests := []struct {
		name     string
		body     string
		res      *tracking.Tracking
		err      error
		wantCode int
		wantErr  string
	}{
		{"ok", body, &tracking.Tracking{ID: "trk-1", FixtureID: 1035}, nil, http.StatusOK, ""},
		{"match not found", body, &tracking.Tracking{Error: provider.KindMatchNotFound, Message: "fixture 1035: match not found"}, nil, http.StatusNotFound, provider.KindMatchNotFound},
		{"tracking failed", body, &tracking.Tracking{Error: provider.KindTrackingFailed}, nil, http.StatusInternalServerError, provider.KindTrackingFailed},
		{"upstream down", body, &tracking.Tracking{Error: provider.KindFetchFailed, Message: "fetch fixtures: unexpected status 503: down"}, nil, http.StatusBadGateway, provider.KindFetchFailed},
		{"provider envelope", body, &tracking.Tracking{Error: provider.KindProviderError}, nil, http.StatusBadGateway, provider.KindProviderError},
		{"config missing", body, nil, provider.ErrConfigMissing, http.StatusServiceUnavailable, provider.KindConfigMissing},
		{"malformed json", `{"fixture_id":`, nil, nil, http.StatusBadRequest, "invalid_request"},
		{"unknown field", `{"fixture":1}`, nil, nil, http.StatusBadRequest, "invalid_request"},
		{"no options", `{"fixture_id":1035,"options":[]}`, nil, nil, http.StatusBadRequest, "invalid_request"},
		{"bad odds", `{"fixture_id":1035,"options":[{"phrase":"1","odds":0.5}]}`, nil, nil, http.StatusBadRequest, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTracker{res: tt.res, err: tt.err}
			rec, out := do(t, newTestServer(Deps{Tracker: tr}), http.MethodPost, "/api/v1/tracking", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("POST /api/v1/tracking = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if got, _ := out["error"].(string); got != tt.wantErr {
				t.Errorf("error = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestTrackingSanitizesRequest(t *testing.T) {
	tr := &fakeTracker{res: &tracking.Tracking{}}
	body := `{"fixture_id":1035,"bookmaker":" Bet365 ","kelly_cap":0.1,"options":[{"phrase":"  Plus de  2.5 buts","odds":1.9,"stake":100}]}`
	do(t, newTestServer(Deps{Tracker: tr}), http.MethodPost, "/api/v1/tracking", body)

	if tr.got.FixtureID != 1035 || tr.got.Bookmaker != "Bet365" || tr.got.KellyCap != 0.1 {
		t.Errorf("request = %+v", tr.got)
	}
	if len(tr.got.Options) != 1 {
		t.Fatalf("options = %d, want 1", len(tr.got.Options))
	}
	opt := tr.got.Options[0]
	if opt.Phrase != "Plus de 2.5 buts" || opt.Descriptor.MarketKey() != "over_2.5" {
		t.Errorf("option = %q (%s), want %q (over_2.5)", opt.Phrase, opt.Descriptor.MarketKey(), "Plus de 2.5 buts")
	}
}

func TestParseOption(t *testing.T) {
	h := newTestServer(Deps{Tracker: &fakeTracker{}})

	rec, out := do(t, h, http.MethodPost, "/api/v1/options/parse", `{"phrase":"Double chance 1X"}`)
	if rec.Code != http.StatusOK || out["recognized"] != true || out["market_key"] != "double_chance_1x" {
		t.Errorf("parse 1X = %d %v", rec.Code, out)
	}

	rec, out = do(t, h, http.MethodPost, "/api/v1/options/parse", `{"phrase":"Premier buteur"}`)
	if rec.Code != http.StatusOK || out["recognized"] != false || out["warning"] != "parse_unknown_option" {
		t.Errorf("parse unknown = %d %v", rec.Code, out)
	}

	rec, _ = do(t, h, http.MethodPost, "/api/v1/options/parse", `{"phrase":" "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("parse empty = %d, want 400", rec.Code)
	}
}

func TestLineupsAndStatus(t *testing.T) {
	tests := []struct {
		name     string
		fixtures FixtureSource
		path     string
		wantCode int
	}{
		{"lineups", &fakeFixtures{lineups: []models.Lineup{{}, {}}}, "/api/v1/fixtures/1035/lineups", http.StatusOK},
		{"bad id", &fakeFixtures{}, "/api/v1/fixtures/abc/lineups", http.StatusBadRequest},
		{"not found", &fakeFixtures{err: provider.ErrMatchNotFound}, "/api/v1/fixtures/1035/lineups", http.StatusNotFound},
		{"upstream down", &fakeFixtures{err: &provider.FetchError{Endpoint: "lineups", StatusCode: 502}}, "/api/v1/fixtures/1035/lineups", http.StatusBadGateway},
		{"no provider", nil, "/api/v1/fixtures/1035/lineups", http.StatusServiceUnavailable},
		{"status", &fakeFixtures{}, "/api/v1/provider/status", http.StatusOK},
		{"status without provider", nil, "/api/v1/provider/status", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := do(t, newTestServer(Deps{Tracker: &fakeTracker{}, Fixtures: tt.fixtures}), http.MethodGet, tt.path, "")
			if rec.Code != tt.wantCode {
				t.Errorf("GET %s = %d, want %d (%s)", tt.path, rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

func TestHistory(t *testing.T) {
	store := &historyStore{points: []storage.OptionSnapshot{{Phrase: "1", Status: "winning"}}}
	h := newTestServer(Deps{Tracker: &fakeTracker{}, History: store})

	rec, out := do(t, h, http.MethodGet, "/api/v1/fixtures/1035/history?phrase=1&limit=9999", "")
	if rec.Code != http.StatusOK || out["count"] != float64(1) {
		t.Errorf("GET history = %d %v", rec.Code, out)
	}
	if store.limit != defaultHistoryLimit {
		t.Errorf("limit = %d, want %d", store.limit, defaultHistoryLimit)
	}

	rec, _ = do(t, h, http.MethodGet, "/api/v1/fixtures/1035/history", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET history without phrase = %d, want 400", rec.Code)
	}

	rec, _ = do(t, newTestServer(Deps{Tracker: &fakeTracker{}}), http.MethodGet, "/api/v1/fixtures/1035/history?phrase=1", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET history without storage = %d, want 503", rec.Code)
	}
}

func TestWatchStartStop(t *testing.T) {
	w := &fakeWatcher{}
	h := newTestServer(Deps{Tracker: &fakeTracker{}, Watcher: w})

	steps := []struct {
		path   string
		status string
	}{
		{"/api/v1/watch/start", "started"},
		{"/api/v1/watch/start", "already_running"},
		{"/api/v1/watch/stop", "stopped"},
		{"/api/v1/watch/stop", "already_stopped"},
	}
	for _, s := range steps {
		rec, out := do(t, h, http.MethodPost, s.path, "")
		if rec.Code != http.StatusOK || out["status"] != s.status {
			t.Errorf("POST %s = %d %v, want status %q", s.path, rec.Code, out, s.status)
		}
	}

	failing := newTestServer(Deps{Tracker: &fakeTracker{}, Watcher: &fakeWatcher{err: errors.New("no fixtures to watch")}})
	if rec, _ := do(t, failing, http.MethodPost, "/api/v1/watch/start", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("POST watch/start with failing watcher = %d, want 400", rec.Code)
	}

	disabled := newTestServer(Deps{Tracker: &fakeTracker{}})
	if rec, _ := do(t, disabled, http.MethodPost, "/api/v1/watch/start", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("POST watch/start without watcher = %d, want 503", rec.Code)
	}
}

func TestAddrFor(t *testing.T) {
	if addr, err := AddrFor(8080); err != nil || addr != ":8080" {
		t.Errorf("AddrFor(8080) = %q, %v", addr, err)
	}
	if _, err := AddrFor(0); err == nil {
		t.Errorf("AddrFor(0) error = nil, want error")
	}
}
