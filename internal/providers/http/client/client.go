package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/tracing"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrUnavailable is returned while the breaker is open
var ErrUnavailable = errors.New("external service unavailable: circuit breaker open")

// StatusError is returned for non-2xx responses
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Config configures a Client
type Config struct {
	// Name labels the breaker, spans and metrics
	Name         string
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RateLimit is requests per second. Zero means unlimited.
	RateLimit float64
	UserAgent string
}

// DefaultConfig returns settings suited to a public JSON API
func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		Timeout:      5 * time.Second,
		RetryMax:     2,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
		UserAgent:    "SolarSense/1.0",
	}
}

// Client wraps resty with retries, rate limiting and a circuit breaker
type Client struct {
	Resty   *resty.Client
	Limiter *rate.Limiter
	Breaker *resilience.Breaker
	Mu      sync.RWMutex

	name    string
	logger  *zap.Logger
	tracer  *tracing.Tracer
	metrics *monitoring.Metrics
}

// NewClient creates a client. Retries of 5xx, 429 and connection errors
// happen in the retryablehttp transport; resty itself does not retry.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Name == "" {
		cfg.Name = "http-external"
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = leveledLogger{logger.Sugar()}
	retryClient.ErrorHandler = keepLastResponse

	restyClient := resty.NewWithClient(retryClient.StandardClient())
	restyClient.
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json")

	breaker := resilience.New(cfg.Name, resilience.Settings{
		MaxRequests:   1,
		Interval:      60 * time.Second,
		Timeout:       30 * time.Second,
		ReadyToTrip:   func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 5 },
		IsFailure:     IsUpstreamFailure,
		OnStateChange: resilience.LogStateChanges(logger),
	})

	c := &Client{
		Resty:   restyClient,
		Limiter: rate.NewLimiter(rate.Inf, 0),
		Breaker: breaker,
		name:    cfg.Name,
		logger:  logger,
	}
	c.SetRateLimit(cfg.RateLimit)
	return c
}

// WithTracer opens a span per request
func (c *Client) WithTracer(t *tracing.Tracer) *Client {
	c.tracer = t
	return c
}

// WithMetrics records requests as upstream calls
func (c *Client) WithMetrics(m *monitoring.Metrics) *Client {
	c.metrics = m
	return c
}

// IsUpstreamFailure reports whether err says the upstream is unhealthy.
// 4xx answers other than 429 are the caller's fault.
func IsUpstreamFailure(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 || se.StatusCode == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled)
}

// SetHeader adds default header
func (c *Client) SetHeader(key, value string) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	c.Resty.SetHeader(key, value)
}

// SetTimeout configures request timeout
func (c *Client) SetTimeout(duration time.Duration) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	c.Resty.SetTimeout(duration)
}

// SetRateLimit configures rate limiting (requests per second)
func (c *Client) SetRateLimit(rps float64) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	if rps <= 0 {
		c.Limiter = rate.NewLimiter(rate.Inf, 0)
	} else {
		c.Limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// Request creates a new request after the breaker and rate limiter agree
func (c *Client) Request(ctx context.Context) (*resty.Request, error) {
	if c.Breaker.State() == resilience.StateOpen {
		return nil, ErrUnavailable
	}

	c.Mu.RLock()
	limiter := c.Limiter
	c.Mu.RUnlock()

	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.Resty.R().SetContext(ctx), nil
}

// Get performs a GET through the breaker. Non-2xx answers come back as
// *StatusError alongside the response.
func (c *Client) Get(ctx context.Context, operation, url string, query map[string]string) (*resty.Response, error) {
	timer := monitoring.NewTimer(c.metrics, c.name, operation)
	var span *tracing.Span
	if c.tracer != nil {
		span, ctx = c.tracer.StartSpan(ctx, c.name+"."+operation)
	}

	resp, err := resilience.Do(c.Breaker, func() (*resty.Response, error) {
		req, err := c.Request(ctx)
		if err != nil {
			return nil, err
		}
		tracing.Inject(ctx, req.Header)

		resp, err := req.SetQueryParams(query).Get(url)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return resp, &StatusError{StatusCode: resp.StatusCode(), Body: truncate(resp.String(), 256)}
		}
		return resp, nil
	})
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		err = ErrUnavailable
	}

	timer.Stop(err)
	if span != nil {
		if resp != nil {
			span.SetStatus(resp.StatusCode())
		}
		c.tracer.End(span, err)
	}
	return resp, err
}

// BreakerState returns the current circuit breaker state
func (c *Client) BreakerState() resilience.State {
	return c.Breaker.State()
}

// BreakerStatus returns circuit breaker name, state and counts
func (c *Client) BreakerStatus() resilience.Status {
	return c.Breaker.Snapshot()
}

// keepLastResponse hands the final response back once retries run out, so
// callers see the upstream status instead of a "giving up" error.
func keepLastResponse(resp *http.Response, err error, _ int) (*http.Response, error) {
	if resp != nil {
		return resp, nil
	}
	return nil, err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
