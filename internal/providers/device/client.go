// Package device talks to the tracker board: an ESP microcontroller that
// exposes the servos over plain HTTP GET endpoints on the local network.
package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/utils"
	"github.com/rs/dnscache"
	"go.uber.org/zap"
)

// DefaultURL is the board's address on the reference rig
const DefaultURL = "http://192.168.63.219"

// Board endpoints
const (
	pathBase  = "/baseServo"
	pathPanel = "/panelServo"
	pathAuto  = "/autoPosition"
	pathPing  = "/"
)

var (
	ErrUnavailable = errors.New("tracker device unavailable")
	ErrInvalidURL  = errors.New("invalid device URL")
)

// StatusError is returned when the board answers with anything but 200
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ESP responded with code: %d", e.StatusCode)
}

// Retryable reports whether the request may succeed if repeated
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client sends servo commands to the board
type Client struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
	timeout    time.Duration

	mu      sync.RWMutex
	baseURL string // Protected by mu

	breakers *breakers
	tracer   *tracing.Tracer
	metrics  *monitoring.Metrics
	logger   *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. The DNS cache is bypassed.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.client = c
	}
}

// WithMaxRetries sets how often 5xx and 429 answers are retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = max(0, n)
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = d
	}
}

// WithTimeout bounds each request to the board.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithTracer opens a span for every board call.
func WithTracer(t *tracing.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

// WithMetrics records board calls as upstream metrics.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a board client. Close releases the DNS refresher.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	normalized, err := NormalizeURL(baseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		userAgent:  "solarsense/1.0",
		maxRetries: 2,
		baseDelay:  250 * time.Millisecond,
		timeout:    5 * time.Second,
		baseURL:    normalized,
		breakers:   newBreakers(),
		logger:     zap.NewNop(),
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = c.cachingClient()
	}
	return c, nil
}

// cachingClient builds an HTTP client whose dialer resolves through a DNS
// cache refreshed every five minutes.
func (c *Client) cachingClient() *http.Client {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				resolver.Refresh(true)
			case <-c.stop:
				return
			}
		}
	}()

	dialer := &net.Dialer{
		Timeout:   c.timeout,
		KeepAlive: 30 * time.Second,
	}

	return &http.Client{
		Timeout: c.timeout,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, err
				}
				ips, err := resolver.LookupHost(ctx, host)
				if err != nil {
					return nil, err
				}
				for _, ip := range ips {
					conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
					if err == nil {
						return conn, nil
					}
				}
				return nil, fmt.Errorf("failed to dial any resolved IP for %s", host)
			},
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: c.timeout,
		},
	}
}

// Close stops background work
func (c *Client) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// NormalizeURL checks a board address. Bare hosts get an http:// scheme
// and trailing slashes are dropped.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if err := utils.ValidateString(raw, "device url", 1, utils.MaxURLLength, true); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	u.RawQuery, u.Fragment = "", ""
	return strings.TrimRight(u.String(), "/"), nil
}

// BaseURL returns the board address
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL points the client at another board
func (c *Client) SetBaseURL(raw string) (string, error) {
	normalized, err := NormalizeURL(raw)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	prev := c.baseURL
	c.baseURL = normalized
	c.mu.Unlock()

	if prev != normalized {
		c.logger.Info("Device URL updated", zap.String("from", prev), zap.String("to", normalized))
	}
	return normalized, nil
}

// SetBase moves the base servo
func (c *Client) SetBase(ctx context.Context, angle int) error {
	_, err := c.call(ctx, "base", pathBase, url.Values{"angle": {strconv.Itoa(angle)}})
	return err
}

// SetPanel moves the panel servo
func (c *Client) SetPanel(ctx context.Context, angle int) error {
	_, err := c.call(ctx, "panel", pathPanel, url.Values{"angle": {strconv.Itoa(angle)}})
	return err
}

// AutoPosition hands positioning to the board's own tracking routine
func (c *Client) AutoPosition(ctx context.Context, lat, lon float64) error {
	_, err := c.call(ctx, "auto_position", pathAuto, url.Values{
		"lat": {strconv.FormatFloat(lat, 'f', 6, 64)},
		"lon": {strconv.FormatFloat(lon, 'f', 6, 64)},
	})
	return err
}

// Ping checks the board is reachable and returns its greeting
func (c *Client) Ping(ctx context.Context) (string, error) {
	body, err := c.call(ctx, "ping", pathPing, nil)
	return strings.TrimSpace(body), err
}

// BreakerStates reports the breaker for every board host used so far
func (c *Client) BreakerStates() map[string]string {
	return c.breakers.states()
}

func (c *Client) call(ctx context.Context, op, path string, query url.Values) (string, error) {
	base := c.BaseURL()
	target := base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	timer := monitoring.NewTimer(c.metrics, "device", op)
	var span *tracing.Span
	if c.tracer != nil {
		span, ctx = c.tracer.StartSpan(ctx, "device."+op)
		span.SetTag("device.url", target)
	}

	var body string
	err := c.breakers.call(hostOf(base), func() error {
		var err error
		body, err = c.fetch(ctx, target)
		return err
	})

	timer.Stop(err)
	if span != nil {
		var se *StatusError
		if errors.As(err, &se) {
			span.SetStatus(se.StatusCode)
		}
		c.tracer.End(span, err)
	}
	if err != nil {
		c.logger.Debug("Device call failed", zap.String("op", op), zap.String("url", target), zap.Error(err))
	}
	return body, err
}

// fetch performs the GET with retries on 5xx and 429
func (c *Client) fetch(ctx context.Context, target string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff with 10% jitter
			delay := c.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			delay += time.Duration(float64(delay) * (rand.Float64() * 0.1))

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		body, err := c.doFetch(ctx, target)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) && se.Retryable() {
			continue
		}
		return "", err
	}

	return "", lastErr
}

func (c *Client) doFetch(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	tracing.Inject(ctx, req.Header)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("contacting device: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, URL: target}
	}
	return string(body), nil
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return parsed.Host
}
