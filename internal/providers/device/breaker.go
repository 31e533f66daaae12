package device

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// breakers holds one circuit breaker per board host
type breakers struct {
	mu sync.RWMutex
	m  map[string]*circuit.Breaker
}

func newBreakers() *breakers {
	return &breakers{m: make(map[string]*circuit.Breaker)}
}

func (b *breakers) get(host string) *circuit.Breaker {
	b.mu.RLock()
	breaker, ok := b.m[host]
	b.mu.RUnlock()
	if ok {
		return breaker
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if breaker, ok := b.m[host]; ok {
		return breaker
	}

	// Trips after 5 consecutive failures, then backs off from 30s to 5m
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.MaxElapsedTime = 0
	expBackoff.Reset()

	breaker = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ConsecutiveTripFunc(5),
	})
	b.m[host] = breaker
	return breaker
}

// call runs fn through the host's breaker. Client errors (4xx) are passed
// back to the caller without counting against the board.
func (b *breakers) call(host string, fn func() error) error {
	var clientErr error
	err := b.get(host).Call(func() error {
		err := fn()
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests {
			clientErr = err
			return nil
		}
		return err
	}, 0)

	if errors.Is(err, circuit.ErrBreakerOpen) {
		return fmt.Errorf("circuit breaker open for %s: %w", host, ErrUnavailable)
	}
	if err != nil {
		return err
	}
	return clientErr
}

func (b *breakers) states() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	states := make(map[string]string, len(b.m))
	for host, breaker := range b.m {
		if breaker.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}
