package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/resilience"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig("test")
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 5 * time.Millisecond
	return cfg
}

func TestGetSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "London", r.URL.Query().Get("q"))
		assert.Equal(t, "SolarSense/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	metrics := monitoring.NewMetrics()
	c := NewClient(testConfig(), nil).WithMetrics(metrics)

	resp, err := c.Get(context.Background(), "current", srv.URL, map[string]string{"q": "London"})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, resp.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UpstreamCalls.WithLabelValues("test", "current", "success")))
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	c := NewClient(testConfig(), nil)
	_, err := c.Get(context.Background(), "current", srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetStatusErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		wantCalls   int32
		countsAsBad bool
	}{
		{"not found", http.StatusNotFound, 1, false},
		{"unauthorized", http.StatusUnauthorized, 1, false},
		{"server error after retries", http.StatusInternalServerError, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"nope"}`))
			}))
			defer srv.Close()

			c := NewClient(testConfig(), nil)
			resp, err := c.Get(context.Background(), "current", srv.URL, nil)

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Contains(t, se.Body, "nope")
			require.NotNil(t, resp)
			assert.Equal(t, tt.wantCalls, calls.Load())

			failures := c.BreakerStatus().Counts.ConsecutiveFailures
			if tt.countsAsBad {
				assert.Equal(t, uint32(1), failures)
			} else {
				assert.Zero(t, failures)
			}
		})
	}
}

func TestBreakerOpensAndShortCircuits(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.RetryMax = 0
	c := NewClient(cfg, nil)

	for i := 0; i < 5; i++ {
		_, _ = c.Get(context.Background(), "current", srv.URL, nil)
	}
	require.Equal(t, resilience.StateOpen, c.BreakerState())

	_, err := c.Get(context.Background(), "current", srv.URL, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(5), calls.Load())

	_, err = c.Request(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRateLimitHonoursContext(t *testing.T) {
	c := NewClient(testConfig(), nil)
	c.SetRateLimit(1)

	ctx := context.Background()
	_, err := c.Request(ctx)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = c.Request(short)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit error")
}

func TestIsUpstreamFailure(t *testing.T) {
	assert.False(t, IsUpstreamFailure(nil))
	assert.False(t, IsUpstreamFailure(&StatusError{StatusCode: 404}))
	assert.False(t, IsUpstreamFailure(context.Canceled))
	assert.True(t, IsUpstreamFailure(&StatusError{StatusCode: 429}))
	assert.True(t, IsUpstreamFailure(&StatusError{StatusCode: 503}))
	assert.True(t, IsUpstreamFailure(errors.New("connection refused")))
}
