package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfigMissing means no API key was configured.
	ErrConfigMissing = errors.New("provider API key is not configured")
	// ErrMatchNotFound means the fixture request returned no fixture.
	ErrMatchNotFound = errors.New("match not found")
)

// Error kinds reported in tracking envelopes.
const (
	KindConfigMissing  = "config_missing"
	KindFetchFailed    = "fetch_failed"
	KindProviderError  = "provider_error"
	KindMatchNotFound  = "match_not_found"
	KindTrackingFailed = "tracking_failed"
)

// FetchError is a transport failure or a non-2xx response.
type FetchError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d: %s", e.Endpoint, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// retryable reports upstream failures worth another attempt: transport errors, 429 and 5xx.
func (e *FetchError) retryable() bool {
	if e.StatusCode == 0 {
		return !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, context.DeadlineExceeded)
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// ProviderError is a 2xx response whose errors envelope is not empty.
type ProviderError struct {
	Endpoint string
	Messages []string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error on %s: %s", e.Endpoint, strings.Join(e.Messages, "; "))
}

// ErrorKind classifies err into one of the envelope kinds.
func ErrorKind(err error) string {
	var fetchErr *FetchError
	var providerErr *ProviderError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfigMissing):
		return KindConfigMissing
	case errors.Is(err, ErrMatchNotFound):
		return KindMatchNotFound
	case errors.As(err, &providerErr):
		return KindProviderError
	case errors.As(err, &fetchErr):
		return KindFetchFailed
	default:
		return KindTrackingFailed
	}
}
