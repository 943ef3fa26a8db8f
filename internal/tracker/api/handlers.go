package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Vodeneev/livebet/internal/pkg/models"
	"github.com/Vodeneev/livebet/internal/pkg/validation"
	"github.com/Vodeneev/livebet/internal/tracker/market"
	"github.com/Vodeneev/livebet/internal/tracker/provider"
	"github.com/Vodeneev/livebet/internal/tracker/tracking"
)

const (
	maxBodyBytes        = 1 << 20
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type optionBody struct {
	Phrase string  `json:"phrase"`
	Odds   float64 `json:"odds"`
	Stake  float64 `json:"stake"`
}

type trackingBody struct {
	FixtureID int64        `json:"fixture_id"`
	Bookmaker string       `json:"bookmaker"`
	Capital   float64      `json:"capital"`
	KellyCap  float64      `json:"kelly_cap"`
	Options   []optionBody `json:"options"`
}

func handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pong\n"))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	watching := s.deps.Watcher != nil && s.deps.Watcher.Running()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   s.deps.Service,
		"watching":  watching,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleTracking(w http.ResponseWriter, r *http.Request) {
	var body trackingBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	opts := make([]validation.Option, 0, len(body.Options))
	for _, o := range body.Options {
		opts = append(opts, validation.Option{Phrase: o.Phrase, Odds: o.Odds, Stake: o.Stake})
	}
	if err := validation.ValidateTracking(body.FixtureID, opts, body.Capital, body.KellyCap); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	held := make([]models.HeldOption, 0, len(opts))
	for _, o := range opts {
		held = append(held, models.NewHeldOption(validation.SanitizePhrase(o.Phrase), o.Odds, o.Stake))
	}

	res, err := s.deps.Tracker.Track(r.Context(), tracking.Request{
		FixtureID: body.FixtureID,
		Options:   held,
		Bookmaker: validation.SanitizeBookmaker(body.Bookmaker),
		Capital:   body.Capital,
		KellyCap:  body.KellyCap,
	})
	switch {
	case errors.Is(err, provider.ErrConfigMissing):
		respondError(w, http.StatusServiceUnavailable, provider.KindConfigMissing, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusServiceUnavailable, "request_canceled", err.Error())
		return
	}

	respondJSON(w, trackingStatus(res), res)
}

// trackingStatus maps the envelope error kind to an HTTP status.
func trackingStatus(res *tracking.Tracking) int {
	switch res.Error {
	case "":
		return http.StatusOK
	case provider.KindMatchNotFound:
		return http.StatusNotFound
	case provider.KindConfigMissing:
		return http.StatusServiceUnavailable
	case provider.KindTrackingFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleParseOption(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Phrase string `json:"phrase"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	phrase := validation.SanitizePhrase(body.Phrase)
	if phrase == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "phrase cannot be empty")
		return
	}

	d := market.Parse(phrase)
	resp := map[string]any{
		"phrase":     phrase,
		"descriptor": d,
		"market_key": d.MarketKey(),
		"canonical":  d.String(),
		"recognized": !d.IsUnknown(),
	}
	if d.IsUnknown() {
		resp["warning"] = "parse_unknown_option"
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLineups(w http.ResponseWriter, r *http.Request) {
	if s.deps.Fixtures == nil {
		respondError(w, http.StatusServiceUnavailable, provider.KindConfigMissing, provider.ErrConfigMissing.Error())
		return
	}
	id, err := fixtureIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	lineups, err := s.deps.Fixtures.Lineups(r.Context(), id)
	if err != nil {
		s.respondProviderError(w, "lineups", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"fixture_id": id,
		"lineups":    lineups,
		"count":      len(lineups),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		respondError(w, http.StatusServiceUnavailable, "storage_disabled", "snapshot storage is not configured")
		return
	}
	id, err := fixtureIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	phrase := validation.SanitizePhrase(r.URL.Query().Get("phrase"))
	if phrase == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "phrase query parameter is required")
		return
	}
	limit := parseIntParam(r, "limit", defaultHistoryLimit)
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	points, err := s.deps.History.OptionHistory(r.Context(), id, phrase, limit)
	if err != nil {
		s.deps.Logger.Error("failed to read option history", "fixture_id", id, "phrase", phrase, "error", err)
		respondError(w, http.StatusInternalServerError, "storage_error", "failed to read option history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"fixture_id": id,
		"phrase":     phrase,
		"points":     points,
		"count":      len(points),
	})
}

func (s *Server) handleProviderStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Fixtures == nil {
		respondError(w, http.StatusServiceUnavailable, provider.KindConfigMissing, provider.ErrConfigMissing.Error())
		return
	}
	status, err := s.deps.Fixtures.Status(r.Context())
	if err != nil {
		s.respondProviderError(w, "status", err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleWatchStart(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Watcher == nil {
		respondError(w, http.StatusServiceUnavailable, "watch_disabled", "watch is not configured")
		return
	}
	started, err := s.deps.Watcher.Start(s.watchCtx)
	if err != nil {
		respondError(w, http.StatusBadRequest, "watch_start_failed", err.Error())
		return
	}
	if !started {
		respondJSON(w, http.StatusOK, map[string]string{
			"status":  "already_running",
			"message": "Watch is already running",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "started",
		"message": "Watch started",
	})
}

func (s *Server) handleWatchStop(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Watcher == nil {
		respondError(w, http.StatusServiceUnavailable, "watch_disabled", "watch is not configured")
		return
	}
	if !s.deps.Watcher.Stop() {
		respondJSON(w, http.StatusOK, map[string]string{
			"status":  "already_stopped",
			"message": "Watch is not running",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "stopped",
		"message": "Watch stopped",
	})
}

func (s *Server) respondProviderError(w http.ResponseWriter, endpoint string, err error) {
	kind := provider.ErrorKind(err)
	s.deps.Logger.Warn("provider request failed", "endpoint", endpoint, "kind", kind, "error", err)

	status := http.StatusBadGateway
	switch {
	case errors.Is(err, provider.ErrMatchNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	respondError(w, status, kind, err.Error())
}

func fixtureIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, validation.ErrInvalidFixture
	}
	return id, validation.ValidateFixtureID(id)
}

func parseIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, kind, message string) {
	respondJSON(w, status, map[string]string{
		"error":   kind,
		"message": message,
	})
}
