// Package servo owns the tracker's two servos: the base, which turns the
// panel about the vertical axis, and the panel tilt. It keeps the commanded
// position, enforces the auto-mode lock on manual moves, and forwards every
// move to a Driver.
package servo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/solar"
)

// Servo names one of the two axes
type Servo string

const (
	Base  Servo = "base"
	Panel Servo = "panel"
)

// Direction is a base rotation direction
type Direction string

const (
	Clockwise        Direction = "clockwise"
	CounterClockwise Direction = "counter-clockwise"
)

// Preset is a named end stop
type Preset string

const (
	PresetZero Preset = "zero"
	PresetMax  Preset = "max"
)

const (
	DefaultStep  = 40
	DefaultAngle = 90
)

// Move modes, used in events and metrics
const (
	ModeManual = "manual"
	ModeAuto   = "auto"
	ModeSafety = "safety"
)

var (
	ErrAutoMode         = errors.New("manual control disabled in auto mode")
	ErrUnknownServo     = errors.New("unknown servo")
	ErrUnknownDirection = errors.New("unknown direction")
	ErrUnknownPreset    = errors.New("unknown preset")
)

// ParseServo accepts "base" or "panel" in any case
func ParseServo(s string) (Servo, error) {
	switch sv := Servo(strings.ToLower(strings.TrimSpace(s))); sv {
	case Base, Panel:
		return sv, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownServo, s)
	}
}

// ParseDirection accepts the usual spellings of both directions
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clockwise", "cw", "right":
		return Clockwise, nil
	case "counter-clockwise", "counterclockwise", "counter", "anti-clockwise", "anticlockwise", "ccw", "left":
		return CounterClockwise, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
}

// ParsePreset accepts "zero" or "max"
func ParsePreset(s string) (Preset, error) {
	switch p := Preset(strings.ToLower(strings.TrimSpace(s))); p {
	case PresetZero, PresetMax:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPreset, s)
	}
}

// Angle returns the servo angle the preset stands for
func (p Preset) Angle() int {
	if p == PresetMax {
		return solar.MaxAngle
	}
	return solar.MinAngle
}

// Driver moves the physical servos
type Driver interface {
	SetBase(ctx context.Context, angle int) error
	SetPanel(ctx context.Context, angle int) error
}

// State is the commanded position of the tracker
type State struct {
	Base      int       `json:"base"`
	Panel     int       `json:"panel"`
	AutoMode  bool      `json:"auto_mode"`
	UpdatedAt time.Time `json:"updated_at"`
	LastError string    `json:"last_error,omitempty"`
}

// Angle returns the commanded angle of s
func (st State) Angle(s Servo) int {
	if s == Base {
		return st.Base
	}
	return st.Panel
}

// Options configures a Controller. A zero Step and nil rest angles take
// the defaults; 0 is a valid rest angle.
type Options struct {
	Step         int
	DefaultBase  *int
	DefaultPanel *int
}
