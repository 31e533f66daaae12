package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var errUpstream = errors.New("upstream failed")

// fakeClock is advanced by hand
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC)}
}

func fail() error    { return errUpstream }
func succeed() error { return nil }

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		requests      []func() error
		expectedState State
	}{
		{"stays closed on successes", []func() error{succeed, succeed, succeed}, StateClosed},
		{"stays closed below threshold", []func() error{fail, fail, succeed, fail}, StateClosed},
		{"opens after consecutive failures", []func() error{fail, fail, fail}, StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := New("test", Settings{
				ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 3 },
			})
			for _, req := range tt.requests {
				_ = breaker.Call(req)
			}
			assert.Equal(t, tt.expectedState, breaker.State())
		})
	}
}

func TestBreakerCounts(t *testing.T) {
	breaker := New("test", Settings{})

	require.NoError(t, breaker.Call(succeed))
	counts := breaker.Counts()
	assert.Equal(t, uint32(1), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.ConsecutiveSuccesses)

	assert.ErrorIs(t, breaker.Call(fail), errUpstream)
	counts = breaker.Counts()
	assert.Equal(t, uint32(2), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalFailures)
	assert.Equal(t, uint32(1), counts.ConsecutiveFailures)
	assert.Equal(t, uint32(0), counts.ConsecutiveSuccesses)
}

func TestBreakerOpenRejectsAndRecovers(t *testing.T) {
	clock := newClock()
	breaker := New("test", Settings{
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 2 },
		Now:         clock.Now,
	})

	_ = breaker.Call(fail)
	_ = breaker.Call(fail)
	require.Equal(t, StateOpen, breaker.State())

	called := false
	err := breaker.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	clock.Advance(31 * time.Second)
	assert.Equal(t, StateHalfOpen, breaker.State())

	require.NoError(t, breaker.Call(succeed))
	assert.Equal(t, StateHalfOpen, breaker.State())
	require.NoError(t, breaker.Call(succeed))
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := newClock()
	breaker := New("test", Settings{
		MaxRequests: 1,
		Timeout:     time.Second,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		Now:         clock.Now,
	})

	_ = breaker.Call(fail)
	clock.Advance(2 * time.Second)
	require.Equal(t, StateHalfOpen, breaker.State())

	_ = breaker.Call(fail)
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerIsFailure(t *testing.T) {
	errCaller := errors.New("bad input")
	breaker := New("test", Settings{
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		IsFailure:   func(err error) bool { return err != nil && !errors.Is(err, errCaller) },
	})

	assert.ErrorIs(t, breaker.Call(func() error { return errCaller }), errCaller)
	assert.Equal(t, StateClosed, breaker.State())

	_ = breaker.Call(fail)
	assert.Equal(t, StateOpen, breaker.State())
}

func TestDoReturnsResult(t *testing.T) {
	breaker := New("test", Settings{})

	v, err := Do(breaker, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = Do(breaker, func() (int, error) { return 7, errUpstream })
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, 7, v)
}

func TestDoPanicCountsAsFailure(t *testing.T) {
	breaker := New("test", Settings{})

	assert.Panics(t, func() {
		_, _ = Do(breaker, func() (int, error) { panic("boom") })
	})
	assert.Equal(t, uint32(1), breaker.Counts().ConsecutiveFailures)
}

func TestSnapshotAndStateChangeLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	breaker := New("weather", Settings{
		ReadyToTrip:   func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		OnStateChange: LogStateChanges(zap.New(core)),
	})

	_ = breaker.Call(fail)

	status := breaker.Snapshot()
	assert.Equal(t, "weather", status.Name)
	assert.Equal(t, StateOpen, status.State)

	entries := logs.FilterMessage("Circuit breaker opened").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "weather", entries[0].ContextMap()["breaker"])

	text, err := StateHalfOpen.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "half-open", string(text))
}

func TestBreakerConcurrentCalls(t *testing.T) {
	breaker := New("test", Settings{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = breaker.Call(succeed)
		}()
	}
	wg.Wait()

	assert.Equal(t, uint32(50), breaker.Counts().TotalSuccesses)
}
