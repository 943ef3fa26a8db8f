// Package provider is the client of the football data API (API-Football v3):
// fixtures, statistics, events, lineups and odds.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Vodeneev/livebet/internal/pkg/config"
	"github.com/Vodeneev/livebet/internal/pkg/metrics"
	"github.com/Vodeneev/livebet/internal/pkg/models"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultRateLimit     = 5.0
	defaultBurst         = 5
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 300 * time.Millisecond
	defaultShortTTL      = 15 * time.Second
	defaultLongTTL       = 24 * time.Hour

	maxErrorBody = 512
	cachePrefix  = "apifootball:"
)

// Config controls how the client reaches the upstream API.
type Config struct {
	BaseURL       string
	Host          string
	APIKey        string
	Timeout       time.Duration
	RateLimit     float64
	Burst         int
	RetryAttempts int
	RetryBackoff  time.Duration
	// ShortTTL caches live data, LongTTL data that no longer changes.
	ShortTTL time.Duration
	LongTTL  time.Duration
}

// ConfigFrom builds the client config from the provider and cache sections of the service config.
func ConfigFrom(p config.ProviderConfig, r config.RedisConfig) Config {
	return Config{
		BaseURL:       p.BaseURL,
		Host:          p.Host,
		APIKey:        p.APIKey,
		Timeout:       p.Timeout,
		RateLimit:     p.RateLimit,
		Burst:         p.Burst,
		RetryAttempts: p.RetryAttempts,
		RetryBackoff:  p.RetryBackoff,
		ShortTTL:      r.LiveTTL,
		LongTTL:       r.FinishedTTL,
	}
}

// ResponseCache stores raw provider bodies.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches fixture data and odds. It is safe for concurrent use.
type Client struct {
	baseURL     string
	host        string
	apiKey      string
	httpClient  httpDoer
	limiter     *rate.Limiter
	maxAttempts int
	backoff     time.Duration
	shortTTL    time.Duration
	longTTL     time.Duration
	cache       ResponseCache
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(doer httpDoer) Option {
	return func(c *Client) { c.httpClient = doer }
}

func WithCache(cache ResponseCache) Option {
	return func(c *Client) { c.cache = cache }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient builds a client. It fails with ErrConfigMissing when no API key is set.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrConfigMissing
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = defaultRateLimit
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}

	c := &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		host:        cfg.Host,
		apiKey:      cfg.APIKey,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		maxAttempts: orDefault(cfg.RetryAttempts, defaultRetryAttempts),
		backoff:     orDefaultDuration(cfg.RetryBackoff, defaultRetryBackoff),
		shortTTL:    orDefaultDuration(cfg.ShortTTL, defaultShortTTL),
		longTTL:     orDefaultDuration(cfg.LongTTL, defaultLongTTL),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDefaultDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

// Fixture returns the snapshot of one fixture, or ErrMatchNotFound.
func (c *Client) Fixture(ctx context.Context, fixtureID int64) (models.MatchSnapshot, error) {
	var items []fixtureItem
	ttl := func() time.Duration {
		if len(items) > 0 && mapFixture(items[0]).Status.IsFinished() {
			return c.longTTL
		}
		return c.shortTTL
	}
	if err := c.fetch(ctx, "fixtures", "/fixtures", idParams("id", fixtureID), &items, ttl); err != nil {
		return models.MatchSnapshot{}, err
	}
	if len(items) == 0 {
		return models.MatchSnapshot{}, fmt.Errorf("fixture %d: %w", fixtureID, ErrMatchNotFound)
	}
	return mapFixture(items[0]), nil
}

func (c *Client) Statistics(ctx context.Context, fixtureID int64) ([]models.TeamStatistics, error) {
	var items []statisticsItem
	if err := c.fetch(ctx, "statistics", "/fixtures/statistics", idParams("fixture", fixtureID), &items, c.short); err != nil {
		return nil, err
	}
	return mapStatistics(items), nil
}

func (c *Client) Events(ctx context.Context, fixtureID int64) ([]models.FixtureEvent, error) {
	var items []eventItem
	if err := c.fetch(ctx, "events", "/fixtures/events", idParams("fixture", fixtureID), &items, c.short); err != nil {
		return nil, err
	}
	return mapEvents(items), nil
}

func (c *Client) Lineups(ctx context.Context, fixtureID int64) ([]models.Lineup, error) {
	var items []lineupItem
	if err := c.fetch(ctx, "lineups", "/fixtures/lineups", idParams("fixture", fixtureID), &items, c.long); err != nil {
		return nil, err
	}
	return mapLineups(items), nil
}

// LiveOdds returns the in-play odds map of a fixture. bookmakerID <= 0 leaves the
// bookmaker to the provider.
func (c *Client) LiveOdds(ctx context.Context, fixtureID int64, bookmakerID int) (models.OddsMap, error) {
	params := idParams("fixture", fixtureID)
	if bookmakerID > 0 {
		params.Set("bookmaker", strconv.Itoa(bookmakerID))
	}
	var items []liveOddsItem
	if err := c.fetch(ctx, "odds_live", "/odds/live", params, &items, c.short); err != nil {
		return nil, err
	}
	var bets []oddBet
	for _, item := range items {
		bets = append(bets, item.Odds...)
	}
	return flattenBets(bets), nil
}

// PrematchOdds returns the pre-match odds of the requested bookmaker, or of the
// first bookmaker listed when that one is absent.
func (c *Client) PrematchOdds(ctx context.Context, fixtureID int64, bookmakerID int) (models.OddsMap, error) {
	params := idParams("fixture", fixtureID)
	if bookmakerID > 0 {
		params.Set("bookmaker", strconv.Itoa(bookmakerID))
	}
	var items []prematchOddsItem
	if err := c.fetch(ctx, "odds", "/odds", params, &items, c.long); err != nil {
		return nil, err
	}

	var fallback []oddBet
	for _, item := range items {
		for _, bm := range item.Bookmakers {
			if bm.ID == bookmakerID {
				return flattenBets(bm.Bets), nil
			}
			if fallback == nil {
				fallback = bm.Bets
			}
		}
	}
	return flattenBets(fallback), nil
}

// Status returns the account plan and request quota. It is never cached.
func (c *Client) Status(ctx context.Context) (AccountStatus, error) {
	var status AccountStatus
	if err := c.fetch(ctx, "status", "/status", nil, &status, nil); err != nil {
		return AccountStatus{}, err
	}
	return status, nil
}

func (c *Client) short() time.Duration { return c.shortTTL }
func (c *Client) long() time.Duration  { return c.longTTL }

func idParams(name string, id int64) url.Values {
	params := url.Values{}
	params.Set(name, strconv.FormatInt(id, 10))
	return params
}

// fetch decodes the response field of endpoint into out. Bodies are served from
// the cache when possible; fresh bodies are cached for ttl() once decoded. A nil
// ttl disables caching.
func (c *Client) fetch(ctx context.Context, endpoint, path string, params url.Values, out any, ttl func() time.Duration) error {
	key := cachePrefix + path + "?" + params.Encode()

	if c.cache != nil && ttl != nil {
		body, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.logger.Warn("provider cache read failed", "key", key, "error", err)
		}
		c.metrics.ObserveCacheLookup(ok)
		if ok {
			if err := decodeBody(endpoint, body, out); err == nil {
				return nil
			}
		}
	}

	body, err := c.getWithRetry(ctx, endpoint, path, params)
	if err != nil {
		return err
	}
	if err := decodeBody(endpoint, body, out); err != nil {
		return err
	}

	if c.cache != nil && ttl != nil {
		if err := c.cache.Set(ctx, key, body, ttl()); err != nil {
			c.logger.Warn("provider cache write failed", "key", key, "error", err)
		}
	}
	return nil
}

func (c *Client) getWithRetry(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		body, err := c.get(ctx, endpoint, path, params)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) || !fetchErr.retryable() || attempt == c.maxAttempts {
			break
		}

		c.logger.Warn("provider fetch retry", "endpoint", endpoint, "attempt", attempt, "max_attempts", c.maxAttempts, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * c.backoff):
		}
	}
	return nil, lastErr
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-rapidapi-key", c.apiKey)
	if c.host != "" {
		req.Header.Set("x-rapidapi-host", c.host)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveProviderRequest(endpoint, "error", time.Since(start))
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.metrics.ObserveProviderRequest(endpoint, "status_"+strconv.Itoa(resp.StatusCode), time.Since(start))
		return nil, &FetchError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveProviderRequest(endpoint, "error", time.Since(start))
		return nil, &FetchError{Endpoint: endpoint, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	c.metrics.ObserveProviderRequest(endpoint, "ok", time.Since(start))
	return body, nil
}

func decodeBody(endpoint string, body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &FetchError{Endpoint: endpoint, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if msgs := envelopeErrors(env.Errors); len(msgs) > 0 {
		return &ProviderError{Endpoint: endpoint, Messages: msgs}
	}
	if len(bytes.TrimSpace(env.Response)) == 0 || string(env.Response) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return &FetchError{Endpoint: endpoint, Err: fmt.Errorf("failed to decode response field: %w", err)}
	}
	return nil
}

// envelopeErrors flattens the errors field, which is either an object
// ({"token": "Error/Missing application key."}) or an array.
func envelopeErrors(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	switch raw[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return []string{string(raw)}
		}
		msgs := make([]string, 0, len(obj))
		for field, v := range obj {
			msgs = append(msgs, field+": "+rawString(v))
		}
		sort.Strings(msgs)
		return msgs
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err != nil {
			return []string{string(raw)}
		}
		msgs := make([]string, 0, len(arr))
		for _, v := range arr {
			if s := rawString(v); s != "" {
				msgs = append(msgs, s)
			}
		}
		return msgs
	default:
		return nil
	}
}
