// Package tracking runs auto mode: on a fixed interval it computes where the
// sun is for the tracker's location and points the panel at it, stowing the
// panel flat instead when a thunderstorm is reported.
package tracking

import (
	"context"
	"errors"
	"time"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/location"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/servo"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/solar"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/weather"
	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/id"
)

// Mode selects who computes the servo angles
type Mode string

const (
	// ModeLocal computes angles here and sends both servos
	ModeLocal Mode = "local"
	// ModeDevice sends the coordinates and lets the board position itself
	ModeDevice Mode = "device"
)

// DefaultInterval between tracking updates
const DefaultInterval = 5 * time.Minute

var (
	ErrNoLocation     = errors.New("no location available for auto mode: enable GPS or enter location")
	ErrAlreadyRunning = errors.New("auto tracking already running")
)

// Servos is the part of the servo controller tracking drives
type Servos interface {
	SetAuto(ctx context.Context, base, panel int) (servo.State, error)
	Stow(ctx context.Context) (servo.State, error)
	SetAutoMode(on bool)
}

// Device positions the panel on the board itself
type Device interface {
	AutoPosition(ctx context.Context, lat, lon float64) error
}

// Weather reports current conditions at a coordinate pair
type Weather interface {
	CurrentAt(ctx context.Context, lat, lon float64) (weather.Data, error)
}

// Geocoder resolves a place name
type Geocoder interface {
	Locate(ctx context.Context, place string) (location.Fix, error)
}

// Options configures a Manager
type Options struct {
	Interval     time.Duration
	Mode         Mode
	WeatherGuard bool
}

// StartRequest says where to track. Coordinates win over Place.
type StartRequest struct {
	Coordinates *location.Coordinates `json:"coordinates,omitempty"`
	Place       string                `json:"place,omitempty"`
}

// Result describes one tracking update
type Result struct {
	At          time.Time         `json:"at"`
	Location    location.Fix      `json:"location"`
	Position    solar.Position    `json:"position"`
	Angles      solar.ServoAngles `json:"angles"`
	Daylight    bool              `json:"daylight"`
	Description string            `json:"description"`
	Mode        Mode              `json:"mode"`
	Weather     *weather.Data     `json:"weather,omitempty"`
	Alerts      []weather.Alert   `json:"alerts,omitempty"`
	Stowed      bool              `json:"stowed"`
	Error       string            `json:"error,omitempty"`
}

// Status is the tracking state exposed over the API
type Status struct {
	Active     bool          `json:"active"`
	RunID      id.RunID      `json:"run_id,omitempty"`
	Mode       Mode          `json:"mode"`
	Interval   string        `json:"interval"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	Location   *location.Fix `json:"location,omitempty"`
	Updates    int           `json:"updates"`
	Failures   int           `json:"failures"`
	LastUpdate *Result       `json:"last_update,omitempty"`
}
