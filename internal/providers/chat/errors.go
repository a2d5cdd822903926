package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is returned before any network call when the
	// configured API key is empty.
	ErrMissingCredential = errors.New("API key not configured")
	// ErrProviderUnavailable is returned while the provider's circuit breaker
	// is open.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrRelayClosed is returned by Chat after Shutdown.
	ErrRelayClosed = errors.New("chat relay is shut down")
	// ErrStreamRead marks a read failure that ended a stream early.
	ErrStreamRead = errors.New("stream read failed")
)

// ProviderHTTPError is a non-2xx provider response. The stream is never
// started.
type ProviderHTTPError struct {
	StatusCode int
	Body       string
}

func (e *ProviderHTTPError) Error() string {
	return fmt.Sprintf("API error: %d - %s", e.StatusCode, e.Body)
}
