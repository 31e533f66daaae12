package command

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/location"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/servo"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/tracking"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/weather"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/events"
	"go.uber.org/zap"
)

var (
	ErrNoPlace            = errors.New("no location given: say 'weather for <place>' or enter a location")
	ErrWeatherUnavailable = errors.New("weather lookups are not configured")
)

// Servos is the manual part of the servo controller
type Servos interface {
	Set(ctx context.Context, s servo.Servo, angle int) (servo.State, error)
	Adjust(ctx context.Context, s servo.Servo, delta int) (servo.State, error)
	Preset(ctx context.Context, s servo.Servo, p servo.Preset) (servo.State, error)
}

// Tracker starts and stops auto mode
type Tracker interface {
	Start(ctx context.Context, req tracking.StartRequest) (tracking.Status, error)
	Stop() tracking.Status
}

// Weather checks conditions and acts on alerts
type Weather interface {
	ForPlace(ctx context.Context, place string) (weather.Check, error)
	ForCoordinates(ctx context.Context, lat, lon float64) (weather.Check, error)
}

// Locations is the location store as commands see it
type Locations interface {
	Current() (location.Fix, error)
	Clear()
}

// Outcome is the result of an executed command
type Outcome struct {
	Command  Command          `json:"command"`
	Message  string           `json:"message"`
	Servo    *servo.State     `json:"servo,omitempty"`
	Tracking *tracking.Status `json:"tracking,omitempty"`
	Weather  *weather.Check   `json:"weather,omitempty"`
}

// Dispatcher parses and executes commands
type Dispatcher struct {
	parser    *Parser
	servos    Servos
	tracker   Tracker
	weather   Weather
	locations Locations
	logger    *zap.Logger
	metrics   *monitoring.Metrics
	events    events.Publisher

	mu        sync.Mutex
	lastPlace string // Protected by mu
}

// NewDispatcher creates a dispatcher. weather may be nil.
func NewDispatcher(parser *Parser, servos Servos, tracker Tracker, locations Locations, logger *zap.Logger) *Dispatcher {
	if parser == nil {
		parser = NewParser(DefaultStep)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		parser:    parser,
		servos:    servos,
		tracker:   tracker,
		locations: locations,
		logger:    logger,
		events:    events.Nop{},
	}
}

// WithWeather enables weather commands
func (d *Dispatcher) WithWeather(w Weather) *Dispatcher {
	d.weather = w
	return d
}

// WithMetrics enables command metrics
func (d *Dispatcher) WithMetrics(m *monitoring.Metrics) *Dispatcher {
	d.metrics = m
	return d
}

// WithEvents publishes handled commands to p
func (d *Dispatcher) WithEvents(p events.Publisher) *Dispatcher {
	if p != nil {
		d.events = p
	}
	return d
}

// Parser returns the dispatcher's parser
func (d *Dispatcher) Parser() *Parser {
	return d.parser
}

// LastPlace is the place used by the last successful weather or tracking command
func (d *Dispatcher) LastPlace() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastPlace
}

// SetLastPlace remembers a place entered elsewhere, such as the API
func (d *Dispatcher) SetLastPlace(place string) {
	d.mu.Lock()
	d.lastPlace = place
	d.mu.Unlock()
}

// Handle parses text and executes it
func (d *Dispatcher) Handle(ctx context.Context, text string) (Outcome, error) {
	cmd, err := d.parser.Parse(text)
	if err != nil {
		action := "unknown"
		if errors.Is(err, ErrInvalidCommand) {
			action = "invalid"
		}
		d.metrics.RecordCommand(action, err)
		d.publish(cmd, err)
		return Outcome{Command: cmd}, err
	}
	return d.Execute(ctx, cmd)
}

// Execute runs a parsed command
func (d *Dispatcher) Execute(ctx context.Context, cmd Command) (Outcome, error) {
	out, err := d.execute(ctx, cmd)
	out.Command = cmd

	d.metrics.RecordCommand(string(cmd.Action), err)
	d.publish(cmd, err)

	logger := d.logger.With(
		zap.String("command_id", cmd.ID.String()),
		zap.String("action", string(cmd.Action)))
	if err != nil {
		logger.Warn("Command failed", zap.String("text", cmd.Text), zap.Error(err))
		return out, err
	}
	logger.Info("Command handled", zap.String("message", out.Message))
	return out, nil
}

func (d *Dispatcher) execute(ctx context.Context, cmd Command) (Outcome, error) {
	switch cmd.Action {
	case ActionRotate:
		st, err := d.servos.Adjust(ctx, servo.Base, cmd.Delta)
		return servoOutcome(st, err, fmt.Sprintf("Base rotated %s to %d°", cmd.Direction, st.Base))

	case ActionTilt:
		dir := "up"
		if cmd.Delta < 0 {
			dir = "down"
		}
		st, err := d.servos.Adjust(ctx, servo.Panel, cmd.Delta)
		return servoOutcome(st, err, fmt.Sprintf("Panel tilted %s to %d°", dir, st.Panel))

	case ActionPreset:
		st, err := d.servos.Preset(ctx, cmd.Servo, cmd.Preset)
		return servoOutcome(st, err, fmt.Sprintf("%s set to %s (%d°)", title(cmd.Servo), cmd.Preset, st.Angle(cmd.Servo)))

	case ActionSetAngle:
		st, err := d.servos.Set(ctx, cmd.Servo, cmd.Angle)
		return servoOutcome(st, err, fmt.Sprintf("%s set to %d°", title(cmd.Servo), st.Angle(cmd.Servo)))

	case ActionAutoOn:
		status, err := d.tracker.Start(ctx, tracking.StartRequest{Place: d.LastPlace()})
		if err != nil {
			return Outcome{Tracking: &status}, err
		}
		return Outcome{Message: "Auto mode enabled", Tracking: &status}, nil

	case ActionAutoOff:
		status := d.tracker.Stop()
		return Outcome{Message: "Auto mode disabled", Tracking: &status}, nil

	case ActionWeather:
		return d.checkWeather(ctx, cmd.Place)

	case ActionResetLocation:
		d.locations.Clear()
		d.SetLastPlace("")
		d.events.Publish(events.LocationChanged, map[string]any{"cleared": true})
		return Outcome{Message: "Location reset"}, nil

	case ActionHelp:
		return Outcome{Message: Help()}, nil

	default:
		return Outcome{}, fmt.Errorf("%w: action %q", ErrUnknownCommand, cmd.Action)
	}
}

// checkWeather looks up place, falling back to the last place used and
// then to the current location fix.
func (d *Dispatcher) checkWeather(ctx context.Context, place string) (Outcome, error) {
	if d.weather == nil {
		return Outcome{}, ErrWeatherUnavailable
	}

	if place == "" {
		place = d.LastPlace()
	}

	var (
		check weather.Check
		err   error
	)
	switch {
	case place != "":
		check, err = d.weather.ForPlace(ctx, place)
	default:
		fix, ferr := d.locations.Current()
		if ferr != nil {
			return Outcome{}, ErrNoPlace
		}
		check, err = d.weather.ForCoordinates(ctx, fix.Lat, fix.Lon)
	}
	if err != nil {
		return Outcome{}, err
	}

	if place != "" {
		d.SetLastPlace(place)
	}
	msg := check.Report
	if check.Stowed {
		msg += "\n\nPanel stowed flat for safety"
	}
	return Outcome{Message: msg, Weather: &check}, nil
}

func (d *Dispatcher) publish(cmd Command, err error) {
	data := map[string]any{
		"command_id": cmd.ID.String(),
		"action":     string(cmd.Action),
		"text":       cmd.Text,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	d.events.Publish(events.CommandHandled, data)
}

func servoOutcome(st servo.State, err error, msg string) (Outcome, error) {
	if err != nil {
		return Outcome{Servo: &st}, err
	}
	return Outcome{Message: msg, Servo: &st}, nil
}

func title(s servo.Servo) string {
	if s == servo.Base {
		return "Base"
	}
	return "Panel"
}
