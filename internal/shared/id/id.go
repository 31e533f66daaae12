// Package id provides ULID generation for the tracker backend.
//
// IDs are lexicographically sortable and carry a short prefix naming what
// they identify, so logs and the event stream stay readable:
//
//	evt_01J9Z3...   tracker events
//	req_01J9Z3...   HTTP requests
//	cmd_01J9Z3...   parsed commands
//	run_01J9Z3...   tracking sessions
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventID identifies a published event
type EventID string

// RequestID identifies an API request
type RequestID string

// CommandID identifies a parsed text command
type CommandID string

// RunID identifies one auto-tracking session (start to stop)
type RunID string

const (
	EventPrefix   = "evt"
	RequestPrefix = "req"
	CommandPrefix = "cmd"
	RunPrefix     = "run"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
	now       func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand with monotonic
// entropy, so IDs minted within the same millisecond still sort in order.
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source
// and clock. Used by tests that need deterministic IDs.
func NewGeneratorWithEntropy(entropy io.Reader, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{entropy: entropy, now: now}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

func NewEventID() EventID {
	return EventID(Default().GenerateWithPrefix(EventPrefix))
}

func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func NewCommandID() CommandID {
	return CommandID(Default().GenerateWithPrefix(CommandPrefix))
}

func NewRunID() RunID {
	return RunID(Default().GenerateWithPrefix(RunPrefix))
}

func (id EventID) String() string   { return string(id) }
func (id RequestID) String() string { return string(id) }
func (id CommandID) String() string { return string(id) }
func (id RunID) String() string     { return string(id) }

// Split separates a prefixed ID into its prefix and ULID parts. Unprefixed
// IDs return an empty prefix.
func Split(id string) (prefix, raw string) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		return id[:i], id[i+1:]
	}
	return "", id
}

// IsValid reports whether id is a ULID, with or without a prefix
func IsValid(id string) bool {
	_, raw := Split(id)
	_, err := ulid.Parse(raw)
	return err == nil
}

// Parse parses a ULID string, ignoring any prefix
func Parse(id string) (ulid.ULID, error) {
	_, raw := Split(id)
	return ulid.Parse(raw)
}

// Timestamp extracts the creation time from an ID
func Timestamp(id string) (time.Time, error) {
	parsed, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
