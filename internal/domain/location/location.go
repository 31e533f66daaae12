// Package location keeps the tracker's current position. Fixes arrive from
// several sources (device GPS, network positioning, a manually entered
// coordinate pair, or a geocoded place name) and the freshest one wins.
package location

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/solar"
)

// Source identifies where a fix came from
type Source string

const (
	SourceGPS      Source = "gps"
	SourceNetwork  Source = "network"
	SourceManual   Source = "manual"
	SourceGeocoded Source = "geocoded"
)

const (
	earthRadiusMeters = 6371008.8

	// DefaultMinDistance is the movement below which a new fix from the same
	// source only refreshes the timestamp.
	DefaultMinDistance = 10.0
)

var (
	ErrNoFix         = errors.New("no location available")
	ErrInvalidSource = errors.New("invalid location source")
)

// ParseSource validates a source name
func ParseSource(s string) (Source, error) {
	switch src := Source(strings.ToLower(strings.TrimSpace(s))); src {
	case SourceGPS, SourceNetwork, SourceManual, SourceGeocoded:
		return src, nil
	case "":
		return SourceManual, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSource, s)
	}
}

// Coordinates is a latitude/longitude pair in degrees
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks the coordinate ranges
func (c Coordinates) Validate() error {
	return solar.ValidateCoordinates(c.Lat, c.Lon)
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f, %.6f", c.Lat, c.Lon)
}

// DistanceTo returns the great-circle distance in meters
func (c Coordinates) DistanceTo(o Coordinates) float64 {
	lat1, lat2 := c.Lat*math.Pi/180, o.Lat*math.Pi/180
	dLat := lat2 - lat1
	dLon := (o.Lon - c.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Fix is a position reported by one source
type Fix struct {
	Coordinates
	Source    Source    `json:"source"`
	Place     string    `json:"place,omitempty"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Store holds the latest fix per source
type Store struct {
	mu          sync.RWMutex
	fixes       map[Source]Fix
	minDistance float64
	now         func() time.Time
}

// NewStore creates a store. minDistance <= 0 uses DefaultMinDistance.
func NewStore(minDistance float64) *Store {
	if minDistance <= 0 {
		minDistance = DefaultMinDistance
	}
	return &Store{
		fixes:       make(map[Source]Fix),
		minDistance: minDistance,
		now:         time.Now,
	}
}

// WithClock overrides the store's clock
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Update records a fix and reports whether the position moved. A fix within
// the minimum distance of the previous fix from the same source keeps the
// previous coordinates and only refreshes the timestamp.
func (s *Store) Update(fix Fix) (Fix, bool, error) {
	if err := fix.Validate(); err != nil {
		return Fix{}, false, err
	}
	if fix.Source == "" {
		fix.Source = SourceManual
	}
	if fix.Timestamp.IsZero() {
		fix.Timestamp = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.fixes[fix.Source]; ok && prev.DistanceTo(fix.Coordinates) < s.minDistance {
		prev.Timestamp = fix.Timestamp
		if fix.Place != "" {
			prev.Place = fix.Place
		}
		s.fixes[fix.Source] = prev
		return prev, false, nil
	}

	s.fixes[fix.Source] = fix
	return fix, true, nil
}

// Current returns the most recent fix across all sources
func (s *Store) Current() (Fix, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best Fix
	found := false
	for _, f := range s.fixes {
		if !found || f.Timestamp.After(best.Timestamp) {
			best = f
			found = true
		}
	}
	if !found {
		return Fix{}, ErrNoFix
	}
	return best, nil
}

// Get returns the fix from one source
func (s *Store) Get(src Source) (Fix, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.fixes[src]
	return f, ok
}

// Fixes returns every stored fix
func (s *Store) Fixes() map[Source]Fix {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Source]Fix, len(s.fixes))
	for k, v := range s.fixes {
		out[k] = v
	}
	return out
}

// Clear forgets all fixes
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixes = make(map[Source]Fix)
}

// Status describes which sources currently have a fix
func (s *Store) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, gps := s.fixes[SourceGPS]
	_, network := s.fixes[SourceNetwork]
	switch {
	case gps && network:
		return "GPS and Network location available"
	case gps:
		return "GPS location available"
	case network:
		return "Network location available"
	case len(s.fixes) > 0:
		return "Using entered location"
	default:
		return "No location available"
	}
}
