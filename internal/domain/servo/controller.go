package servo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/solar"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/events"
	"go.uber.org/zap"
)

// Controller serialises servo moves and tracks the commanded position
type Controller struct {
	driver  Driver
	logger  *zap.Logger
	metrics *monitoring.Metrics
	events  events.Publisher
	step    int
	now     func() time.Time

	mu    sync.RWMutex
	state State // Protected by mu

	// sendMu keeps device calls in command order
	sendMu sync.Mutex
}

// NewController creates a controller resting at the configured defaults
func NewController(driver Driver, opts Options, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Step <= 0 {
		opts.Step = DefaultStep
	}
	base, panel := DefaultAngle, DefaultAngle
	if opts.DefaultBase != nil {
		base = solar.Clamp(*opts.DefaultBase)
	}
	if opts.DefaultPanel != nil {
		panel = solar.Clamp(*opts.DefaultPanel)
	}

	return &Controller{
		driver: driver,
		logger: logger,
		events: events.Nop{},
		step:   opts.Step,
		now:    time.Now,
		state:  State{Base: base, Panel: panel},
	}
}

// WithMetrics adds metrics tracking to the controller
func (c *Controller) WithMetrics(metrics *monitoring.Metrics) *Controller {
	c.metrics = metrics
	return c
}

// WithEvents publishes servo moves to p
func (c *Controller) WithEvents(p events.Publisher) *Controller {
	if p != nil {
		c.events = p
	}
	return c
}

// Step returns the base rotation step in degrees
func (c *Controller) Step() int {
	return c.step
}

// State returns a copy of the current state
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// AutoMode reports whether tracking owns the servos
func (c *Controller) AutoMode() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.AutoMode
}

// SetAutoMode locks or unlocks manual control
func (c *Controller) SetAutoMode(on bool) {
	c.mu.Lock()
	changed := c.state.AutoMode != on
	c.state.AutoMode = on
	c.mu.Unlock()

	if changed {
		c.logger.Info("Auto mode changed", zap.Bool("auto_mode", on))
	}
}

// Set moves a servo to an absolute angle, clamped to 0..180
func (c *Controller) Set(ctx context.Context, s Servo, angle int) (State, error) {
	return c.manual(ctx, s, func(State) int { return angle })
}

// Adjust moves a servo by delta degrees, clamped to 0..180
func (c *Controller) Adjust(ctx context.Context, s Servo, delta int) (State, error) {
	return c.manual(ctx, s, func(st State) int { return st.Angle(s) + delta })
}

// Rotate turns the base by one step. The base servo is mounted reversed,
// so clockwise lowers the angle.
func (c *Controller) Rotate(ctx context.Context, d Direction) (State, error) {
	var delta int
	switch d {
	case Clockwise:
		delta = -c.step
	case CounterClockwise:
		delta = c.step
	default:
		return c.State(), fmt.Errorf("%w: %q", ErrUnknownDirection, d)
	}
	return c.Adjust(ctx, Base, delta)
}

// Preset moves a servo to one of its end stops
func (c *Controller) Preset(ctx context.Context, s Servo, p Preset) (State, error) {
	if p != PresetZero && p != PresetMax {
		return c.State(), fmt.Errorf("%w: %q", ErrUnknownPreset, p)
	}
	return c.Set(ctx, s, p.Angle())
}

// SetAuto positions both servos for tracking. It ignores the auto-mode
// lock. The panel is only sent once the base move succeeded.
func (c *Controller) SetAuto(ctx context.Context, base, panel int) (State, error) {
	if err := c.move(ctx, Base, solar.Clamp(base), ModeAuto); err != nil {
		return c.State(), fmt.Errorf("base servo: %w", err)
	}
	if err := c.move(ctx, Panel, solar.Clamp(panel), ModeAuto); err != nil {
		return c.State(), fmt.Errorf("panel servo: %w", err)
	}
	return c.State(), nil
}

// Stow lays the panel flat, whatever the mode
func (c *Controller) Stow(ctx context.Context) (State, error) {
	err := c.move(ctx, Panel, solar.MinAngle, ModeSafety)
	if err != nil {
		err = fmt.Errorf("panel servo: %w", err)
	}
	return c.State(), err
}

func (c *Controller) manual(ctx context.Context, s Servo, target func(State) int) (State, error) {
	if s != Base && s != Panel {
		return c.State(), fmt.Errorf("%w: %q", ErrUnknownServo, s)
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	if c.state.AutoMode {
		c.mu.Unlock()
		return c.State(), ErrAutoMode
	}
	angle := solar.Clamp(target(c.state))
	c.commit(s, angle)
	c.mu.Unlock()

	err := c.send(ctx, s, angle, ModeManual)
	return c.State(), err
}

func (c *Controller) move(ctx context.Context, s Servo, angle int, mode string) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	c.commit(s, angle)
	c.mu.Unlock()

	return c.send(ctx, s, angle, mode)
}

// commit records the commanded angle. Caller holds mu.
func (c *Controller) commit(s Servo, angle int) {
	if s == Base {
		c.state.Base = angle
	} else {
		c.state.Panel = angle
	}
	c.state.UpdatedAt = c.now()
}

// send forwards the move to the driver. Caller holds sendMu.
func (c *Controller) send(ctx context.Context, s Servo, angle int, mode string) error {
	var err error
	if c.driver != nil {
		if s == Base {
			err = c.driver.SetBase(ctx, angle)
		} else {
			err = c.driver.SetPanel(ctx, angle)
		}
	}

	c.mu.Lock()
	if err != nil {
		c.state.LastError = err.Error()
	} else {
		c.state.LastError = ""
	}
	c.mu.Unlock()

	c.metrics.RecordServoCommand(string(s), mode, angle, err)

	data := map[string]any{
		"servo": string(s),
		"angle": angle,
		"mode":  mode,
	}
	if err != nil {
		data["error"] = err.Error()
		c.logger.Warn("Servo move failed",
			zap.String("servo", string(s)),
			zap.Int("angle", angle),
			zap.String("mode", mode),
			zap.Error(err))
	} else {
		c.logger.Debug("Servo moved",
			zap.String("servo", string(s)),
			zap.Int("angle", angle),
			zap.String("mode", mode))
	}
	c.events.Publish(events.ServoMoved, data)

	return err
}
