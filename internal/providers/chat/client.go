package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Gingaoyuzhan/Ging-IDE/internal/infrastructure/resilience"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxErrorBody = 64 << 10

const (
	retryWaitMin = 200 * time.Millisecond
	retryWaitMax = 5 * time.Second
)

// ClientConfig configures the provider HTTP client.
type ClientConfig struct {
	// HeaderTimeout bounds the wait for response headers. Streams have no
	// overall deadline.
	HeaderTimeout time.Duration
	// Retries is the number of resends after a transport error.
	Retries int
	// RequestsPerSecond limits outbound calls; <= 0 means unlimited.
	RequestsPerSecond float64
	// Breaker overrides the per-family circuit breaker settings.
	Breaker *resilience.Settings
}

// Streamer opens a provider stream. *Client implements it.
type Streamer interface {
	Stream(ctx context.Context, family Family, req *Request) (io.ReadCloser, error)
}

// Client sends provider requests with rate limiting and a circuit breaker per
// provider family.
type Client struct {
	resty    *resty.Client
	limiter  *rate.Limiter
	breakers map[Family]*resilience.Breaker
	log      *zap.Logger
}

// NewClient creates a provider client. log may be nil.
func NewClient(cfg ClientConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = retryWaitMin
	retryClient.RetryWaitMax = retryWaitMax
	retryClient.CheckRetry = retryTransportErrors
	if t, ok := retryClient.HTTPClient.Transport.(*http.Transport); ok && cfg.HeaderTimeout > 0 {
		t.ResponseHeaderTimeout = cfg.HeaderTimeout
	}

	restyClient := resty.NewWithClient(retryClient.StandardClient()).
		SetLogger(log.Sugar()).
		SetHeader("User-Agent", "Ging-IDE-Relay/1.0").
		SetHeader("Accept", "text/event-stream").
		SetHeader("Accept-Encoding", "gzip")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	settings := defaultBreakerSettings(log)
	if cfg.Breaker != nil {
		settings = *cfg.Breaker
	}

	return &Client{
		resty:   restyClient,
		limiter: limiter,
		breakers: map[Family]*resilience.Breaker{
			FamilyAnthropic: resilience.New(FamilyAnthropic.String(), settings),
			FamilyOpenAI:    resilience.New(FamilyOpenAI.String(), settings),
		},
		log: log,
	}
}

// retryTransportErrors resends only when no response arrived. Any HTTP status,
// including 5xx and 429, is returned to the caller as is.
func retryTransportErrors(ctx context.Context, _ *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return err != nil, nil
}

func defaultBreakerSettings(log *zap.Logger) resilience.Settings {
	return resilience.Settings{
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: isProviderHealthy,
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("Provider circuit breaker changed state",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
}

// isProviderHealthy treats caller cancellation and 4xx answers as evidence
// that the provider is reachable.
func isProviderHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var httpErr *ProviderHTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode < http.StatusInternalServerError
	}
	return false
}

// Stream sends req and returns the decoded response body. Non-2xx responses
// are returned as *ProviderHTTPError with the body consumed.
func (c *Client) Stream(ctx context.Context, family Family, req *Request) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	breaker := c.breakers[family]
	resp, err := resilience.Call(breaker, func() (*resty.Response, error) {
		resp, err := c.resty.R().
			SetContext(ctx).
			SetDoNotParseResponse(true).
			SetHeaderMultiValues(req.Header).
			SetBody(req.Body).
			Post(req.URL)
		if err != nil {
			return nil, fmt.Errorf("request %s: %w", req.URL, err)
		}
		if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
			return nil, readHTTPError(resp)
		}
		return resp, nil
	})
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s: %w", ErrProviderUnavailable, family, err)
	}
	if err != nil {
		return nil, err
	}

	body, err := decodeBody(resp.RawBody(), resp.Header().Get("Content-Encoding"))
	if err != nil {
		_ = resp.RawBody().Close()
		return nil, err
	}
	return body, nil
}

// BreakerState returns the breaker state for family.
func (c *Client) BreakerState(family Family) resilience.State {
	return c.breakers[family].State()
}

func readHTTPError(resp *resty.Response) error {
	raw := resp.RawBody()
	defer raw.Close()

	body, _ := io.ReadAll(io.LimitReader(raw, maxErrorBody))
	return &ProviderHTTPError{StatusCode: resp.StatusCode(), Body: string(body)}
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }

func decodeBody(body io.ReadCloser, encoding string) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return body, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("open gzip body: %w", err)
		}
		return readCloser{Reader: zr, close: func() error {
			_ = zr.Close()
			return body.Close()
		}}, nil
	case "zstd":
		zr, err := zstd.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("open zstd body: %w", err)
		}
		return readCloser{Reader: zr, close: func() error {
			zr.Close()
			return body.Close()
		}}, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}
