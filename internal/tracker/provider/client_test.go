package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Vodeneev/livebet/internal/pkg/config"
	"github.com/Vodeneev/livebet/internal/pkg/enums"
)

const fixtureBody = `{
  "errors": [],
  "results": 1,
  "response": [{
    "fixture": {"id": 1035037, "date": "2024-05-19T15:00:00+00:00",
      "status": {"long": "Second Half", "short": "2H", "elapsed": 75}},
    "league": {"name": "Ligue 1"},
    "teams": {"home": {"id": 85, "name": "Paris Saint Germain", "logo": "psg.png"},
              "away": {"id": 81, "name": "Marseille", "logo": "om.png"}},
    "goals": {"home": 2, "away": 1},
    "score": {"halftime": {"home": 1, "away": 0}, "fulltime": {"home": null, "away": null}}
  }]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		BaseURL:       srv.URL,
		Host:          "v3.football.api-sports.io",
		APIKey:        "secret",
		RateLimit:     1000,
		Burst:         10,
		RetryAttempts: 3,
		RetryBackoff:  time.Millisecond,
	}, opts...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://localhost"})
	if !errors.Is(err, ErrConfigMissing) {
		t.Fatalf("NewClient() error = %v, want ErrConfigMissing", err)
	}
	if got := ErrorKind(err); got != KindConfigMissing {
		t.Errorf("ErrorKind() = %q, want %q", got, KindConfigMissing)
	}
}

func TestFixture(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fixtures" || r.URL.Query().Get("id") != "1035037" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if r.Header.Get("x-rapidapi-key") != "secret" || r.Header.Get("x-rapidapi-host") != "v3.football.api-sports.io" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		_, _ = w.Write([]byte(fixtureBody))
	})

	snap, err := c.Fixture(context.Background(), 1035037)
	if err != nil {
		t.Fatalf("Fixture() error = %v", err)
	}
	if snap.Status != enums.StatusSecondHalf || snap.StatusCategory != enums.CategoryLive {
		t.Errorf("status = %s/%s, want 2H/live", snap.Status, snap.StatusCategory)
	}
	if snap.Minute() != 75 || snap.Score.Home != 2 || snap.Score.Away != 1 {
		t.Errorf("minute/score = %d %d-%d, want 75 2-1", snap.Minute(), snap.Score.Home, snap.Score.Away)
	}
	if snap.Score.Halftime == nil || snap.Score.Halftime.Home != 1 {
		t.Errorf("halftime = %+v, want 1-0", snap.Score.Halftime)
	}
	if snap.Score.Fulltime != nil {
		t.Errorf("fulltime = %+v, want nil", snap.Score.Fulltime)
	}
	if snap.Teams.Home.Name != "Paris Saint Germain" || snap.League != "Ligue 1" {
		t.Errorf("teams/league = %+v / %q", snap.Teams, snap.League)
	}
	if !snap.Kickoff.Equal(time.Date(2024, 5, 19, 15, 0, 0, 0, time.UTC)) {
		t.Errorf("kickoff = %v", snap.Kickoff)
	}
}

func TestFixtureFinishedHasFullTime(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors": [], "response": [{"fixture": {"id": 7,
			"status": {"short": "FT", "elapsed": null}}, "goals": {"home": 0, "away": 0}}]}`))
	})

	snap, err := c.Fixture(context.Background(), 7)
	if err != nil {
		t.Fatalf("Fixture() error = %v", err)
	}
	if snap.StatusCategory != enums.CategoryFinished || snap.Minute() != 90 {
		t.Errorf("got %s at %d', want finished at 90'", snap.StatusCategory, snap.Minute())
	}
}

func TestFixtureErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind string
		wantHits int32
	}{
		{"not found", http.StatusOK, `{"errors": [], "results": 0, "response": []}`, KindMatchNotFound, 1},
		{"errors object", http.StatusOK, `{"errors": {"token": "Error/Missing application key."}, "response": []}`, KindProviderError, 1},
		{"errors array", http.StatusOK, `{"errors": ["rate limit"], "response": []}`, KindProviderError, 1},
		{"forbidden", http.StatusForbidden, `forbidden`, KindFetchFailed, 1},
		{"upstream down", http.StatusBadGateway, `bad gateway`, KindFetchFailed, 3},
		{"garbage", http.StatusOK, `<html>`, KindFetchFailed, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Fixture(context.Background(), 1)
			if err == nil {
				t.Fatal("Fixture() error = nil")
			}
			if got := ErrorKind(err); got != tt.wantKind {
				t.Errorf("ErrorKind(%v) = %q, want %q", err, got, tt.wantKind)
			}
			if got := hits.Load(); got != tt.wantHits {
				t.Errorf("requests = %d, want %d", got, tt.wantHits)
			}
		})
	}
}

func TestRetryRecovers(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(fixtureBody))
	})

	if _, err := c.Fixture(context.Background(), 1035037); err != nil {
		t.Fatalf("Fixture() error = %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("requests = %d, want 2", hits.Load())
	}
}

func TestLiveOdds(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/odds/live" || r.URL.Query().Get("bookmaker") != "80" {
			t.Errorf("unexpected request %s", r.URL)
		}
		_, _ = w.Write([]byte(`{"errors": [], "response": [{"odds": [
			{"id": 59, "name": "Fulltime Result", "values": [
				{"value": "Home", "odd": "1.30", "handicap": null, "suspended": false},
				{"value": "Draw", "odd": "4.50", "handicap": null, "suspended": false},
				{"value": "Away", "odd": "9.00", "handicap": null, "suspended": true}]},
			{"id": 36, "name": "Over/Under Line", "values": [
				{"value": "Over", "odd": "1.75", "handicap": "3.5", "suspended": false},
				{"value": "Under", "odd": "2.05", "handicap": "3.5", "suspended": false}]},
			{"id": 33, "name": "Asian Handicap", "values": [
				{"value": "Home", "odd": "1.90", "handicap": "-1.5", "suspended": false}]},
			{"id": 69, "name": "Both Teams To Score", "values": [
				{"value": "Yes", "odd": "n/a", "handicap": null, "suspended": false}]}
		]}]}`))
	})

	got, err := c.LiveOdds(context.Background(), 1035037, 80)
	if err != nil {
		t.Fatalf("LiveOdds() error = %v", err)
	}
	want := map[string]float64{
		"Home":                      1.30,
		"Fulltime Result Home":      1.30,
		"Draw":                      4.50,
		"Over 3.5":                  1.75,
		"Over/Under Line Under 3.5": 2.05,
		"Home -1.5":                 1.90,
		"Asian Handicap Home -1.5":  1.90,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("odds[%q] = %v, want %v", k, got[k], v)
		}
	}
	if _, ok := got["Away"]; ok {
		t.Error("suspended outcome should be dropped")
	}
	if _, ok := got["Yes"]; ok {
		t.Error("unparsable price should be dropped")
	}
}

func TestPrematchOddsPicksBookmaker(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors": [], "response": [{"bookmakers": [
			{"id": 6, "name": "Bwin", "bets": [{"id": 1, "name": "Match Winner", "values": [{"value": "Home", "odd": "2.00"}]}]},
			{"id": 8, "name": "Bet365", "bets": [{"id": 1, "name": "Match Winner", "values": [{"value": "Home", "odd": "2.10"}]},
				{"id": 12, "name": "Double Chance", "values": [{"value": "Draw/Away", "odd": "1.72"}]}]}
		]}]}`))
	})

	got, err := c.PrematchOdds(context.Background(), 1, 8)
	if err != nil {
		t.Fatalf("PrematchOdds() error = %v", err)
	}
	if got["Home"] != 2.10 || got["Draw/Away"] != 1.72 {
		t.Errorf("odds = %v, want bet365 prices", got)
	}

	got, err = c.PrematchOdds(context.Background(), 1, 99)
	if err != nil {
		t.Fatalf("PrematchOdds() error = %v", err)
	}
	if got["Home"] != 2.00 {
		t.Errorf("fallback odds = %v, want first bookmaker", got)
	}
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func TestCachedResponses(t *testing.T) {
	var hits atomic.Int32
	cache := newMemoryCache()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(fixtureBody))
	}, WithCache(cache))

	for i := 0; i < 3; i++ {
		if _, err := c.Fixture(context.Background(), 1035037); err != nil {
			t.Fatalf("Fixture() error = %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("requests = %d, want 1", hits.Load())
	}
	if ttl := cache.ttls["apifootball:/fixtures?id=1035037"]; ttl != defaultShortTTL {
		t.Errorf("live fixture ttl = %v, want %v", ttl, defaultShortTTL)
	}
}

func TestStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors": [], "response": {
			"account": {"firstname": "Ada", "lastname": "L", "email": "ada@example.com"},
			"subscription": {"plan": "Free", "end": "2026-12-01T00:00:00+00:00", "active": true},
			"requests": {"current": 12, "limit_day": 100}}}`))
	})

	status, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Subscription.Plan != "Free" || status.Requests.Current != 12 || status.Requests.LimitDay != 100 {
		t.Errorf("status = %+v", status)
	}
}

func TestCanceledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fixtureBody))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fixture(ctx, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Fixture() error = %v, want context.Canceled", err)
	}
}

func TestConfigFrom(t *testing.T) {
	got := ConfigFrom(
		config.ProviderConfig{BaseURL: "https://example.test", APIKey: "k", RateLimit: 2, RetryAttempts: 4},
		config.RedisConfig{LiveTTL: 10 * time.Second, FinishedTTL: time.Hour},
	)
	if got.BaseURL != "https://example.test" || got.APIKey != "k" || got.RateLimit != 2 || got.RetryAttempts != 4 {
		t.Errorf("ConfigFrom() = %+v", got)
	}
	if got.ShortTTL != 10*time.Second || got.LongTTL != time.Hour {
		t.Errorf("ConfigFrom() TTLs = %v/%v, want 10s/1h", got.ShortTTL, got.LongTTL)
	}
}
