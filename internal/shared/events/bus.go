// Package events is the in-process publish/subscribe bus that carries tracker
// activity (servo moves, tracking updates, weather alerts) to stream clients.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/id"
)

// Type names an event kind
type Type string

const (
	ServoMoved      Type = "servo.moved"
	TrackingStarted Type = "tracking.started"
	TrackingStopped Type = "tracking.stopped"
	TrackingUpdated Type = "tracking.updated"
	TrackingFailed  Type = "tracking.failed"
	WeatherAlert    Type = "weather.alert"
	LocationChanged Type = "location.changed"
	DeviceChanged   Type = "device.changed"
	CommandHandled  Type = "command.handled"
)

// Event is a single notification on the bus
type Event struct {
	ID        id.EventID     `json:"id"`
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Publisher is what domain services need to emit events
type Publisher interface {
	Publish(t Type, data map[string]any)
}

// DefaultBuffer is the per-subscriber queue length
const DefaultBuffer = 64

// Bus fans published events out to subscribers. Slow subscribers lose events
// instead of blocking publishers.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	next    int
	buffer  int
	dropped atomic.Uint64
	closed  bool
}

// NewBus creates a bus with the given per-subscriber buffer
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{
		subs:   make(map[int]chan Event),
		buffer: buffer,
	}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	key := b.next
	b.next++
	b.subs[key] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[key]; ok {
				delete(b.subs, key)
				close(c)
			}
		})
	}
}

// Publish stamps and delivers an event to every subscriber
func (b *Bus) Publish(t Type, data map[string]any) {
	evt := Event{
		ID:        id.NewEventID(),
		Type:      t,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of active subscribers
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was full
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close unregisters and closes all subscribers
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for key, ch := range b.subs {
		delete(b.subs, key)
		close(ch)
	}
}

// Nop discards events
type Nop struct{}

func (Nop) Publish(Type, map[string]any) {}
