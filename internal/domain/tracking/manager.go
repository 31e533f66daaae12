package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/location"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/solar"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/weather"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/events"
	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/id"
	"go.uber.org/zap"
)

// Manager owns the auto tracking loop
type Manager struct {
	servos   Servos
	device   Device
	weather  Weather
	geocoder Geocoder
	store    *location.Store
	opts     Options
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	events   events.Publisher
	now      func() time.Time

	// lifecycle serialises Start and Stop, including Stop's wait for the
	// loop to exit, so auto mode always matches the running session
	lifecycle sync.Mutex

	mu       sync.Mutex
	run      *session // Protected by mu
	last     *Result  // Protected by mu
	updates  int      // Protected by mu
	failures int      // Protected by mu
}

type session struct {
	id        id.RunID
	startedAt time.Time
	fix       location.Fix
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewManager creates a manager. device, weather and geocoder may be nil;
// the matching features are then unavailable.
func NewManager(servos Servos, store *location.Store, opts Options, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Mode == "" {
		opts.Mode = ModeLocal
	}

	return &Manager{
		servos: servos,
		store:  store,
		opts:   opts,
		logger: logger,
		events: events.Nop{},
		now:    time.Now,
	}
}

// WithDevice enables device-side positioning
func (m *Manager) WithDevice(d Device) *Manager {
	m.device = d
	return m
}

// WithWeather enables the weather guard
func (m *Manager) WithWeather(w Weather) *Manager {
	m.weather = w
	return m
}

// WithGeocoder lets Start resolve place names
func (m *Manager) WithGeocoder(g Geocoder) *Manager {
	m.geocoder = g
	return m
}

// WithMetrics adds metrics tracking to the manager
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// WithEvents publishes tracking events to p
func (m *Manager) WithEvents(p events.Publisher) *Manager {
	if p != nil {
		m.events = p
	}
	return m
}

// WithClock overrides the clock used for sun positions
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Start turns auto mode on, positions the panel once and keeps tracking
// until Stop. The location comes from req.Coordinates, else the freshest
// stored fix, else geocoding req.Place.
func (m *Manager) Start(ctx context.Context, req StartRequest) (Status, error) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.Active() {
		return m.Status(), ErrAlreadyRunning
	}

	fix, err := m.resolve(ctx, req)
	if err != nil {
		m.events.Publish(events.TrackingFailed, map[string]any{"error": err.Error()})
		return m.Status(), err
	}

	m.mu.Lock()
	if m.run != nil {
		m.mu.Unlock()
		return m.Status(), ErrAlreadyRunning
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	sess := &session{
		id:        id.NewRunID(),
		startedAt: m.now(),
		fix:       fix,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	m.run = sess
	m.updates, m.failures, m.last = 0, 0, nil
	m.mu.Unlock()

	m.servos.SetAutoMode(true)
	m.metrics.SetTrackingActive(true)
	m.logger.Info("Auto tracking started",
		zap.String("run_id", sess.id.String()),
		zap.Stringer("location", fix.Coordinates),
		zap.String("source", string(fix.Source)),
		zap.String("mode", string(m.opts.Mode)),
		zap.Duration("interval", m.opts.Interval))
	m.events.Publish(events.TrackingStarted, map[string]any{
		"run_id":   sess.id.String(),
		"lat":      fix.Lat,
		"lon":      fix.Lon,
		"place":    fix.Place,
		"source":   string(fix.Source),
		"mode":     string(m.opts.Mode),
		"interval": m.opts.Interval.String(),
	})

	m.update(ctx, sess.id, fix)
	go m.loop(loopCtx, sess)

	return m.Status(), nil
}

func (m *Manager) resolve(ctx context.Context, req StartRequest) (location.Fix, error) {
	if req.Coordinates != nil {
		fix, _, err := m.store.Update(location.Fix{Coordinates: *req.Coordinates, Source: location.SourceManual, Place: req.Place})
		return fix, err
	}

	if fix, err := m.store.Current(); err == nil {
		return fix, nil
	}

	if req.Place != "" {
		if m.geocoder == nil {
			return location.Fix{}, ErrNoLocation
		}
		fix, err := m.geocoder.Locate(ctx, req.Place)
		if err != nil {
			return location.Fix{}, fmt.Errorf("locating %q: %w", req.Place, err)
		}
		fix, _, err = m.store.Update(fix)
		return fix, err
	}

	return location.Fix{}, ErrNoLocation
}

func (m *Manager) loop(ctx context.Context, sess *session) {
	defer close(sess.done)

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fix := sess.fix
			if current, err := m.store.Current(); err == nil {
				fix = current
			}
			m.update(ctx, sess.id, fix)
		}
	}
}

// Stop ends auto tracking and hands the servos back to manual control.
// Stopping an idle manager is a no-op.
func (m *Manager) Stop() Status {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	sess := m.run
	m.run = nil
	m.mu.Unlock()

	if sess == nil {
		return m.Status()
	}

	sess.cancel()
	<-sess.done

	m.servos.SetAutoMode(false)
	m.metrics.SetTrackingActive(false)
	m.logger.Info("Auto tracking stopped", zap.String("run_id", sess.id.String()))
	m.events.Publish(events.TrackingStopped, map[string]any{"run_id": sess.id.String()})

	return m.Status()
}

// Close stops tracking
func (m *Manager) Close() {
	m.Stop()
}

// Active reports whether the loop is running
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.run != nil
}

// Update runs one tracking cycle now, for the running session's location
// or, when idle, the freshest stored fix.
func (m *Manager) Update(ctx context.Context) (Result, error) {
	m.mu.Lock()
	sess := m.run
	m.mu.Unlock()

	var (
		fix   location.Fix
		runID id.RunID
		err   error
	)
	if current, cerr := m.store.Current(); cerr == nil {
		fix = current
	} else if sess != nil {
		fix = sess.fix
	} else {
		return Result{}, ErrNoLocation
	}
	if sess != nil {
		runID = sess.id
	}

	res := m.update(ctx, runID, fix)
	if res.Error != "" {
		err = errors.New(res.Error)
	}
	return res, err
}

// update computes the sun position for fix and moves the panel
func (m *Manager) update(ctx context.Context, runID id.RunID, fix location.Fix) Result {
	now := m.now()
	pos := solar.Calculate(fix.Lat, fix.Lon, now)
	res := Result{
		At:          now,
		Location:    fix,
		Position:    pos,
		Angles:      solar.ToServoAngles(pos),
		Daylight:    solar.IsDaylight(pos),
		Description: solar.Describe(pos),
		Mode:        m.opts.Mode,
	}

	logger := m.logger.With(zap.String("run_id", runID.String()))

	if m.guard(ctx, logger, fix, &res) {
		m.record(logger, runID, &res, nil)
		return res
	}

	if !res.Daylight {
		logger.Info("Sun below horizon", zap.Float64("altitude", pos.Altitude))
	}

	var err error
	switch {
	case m.opts.Mode == ModeDevice && m.device != nil:
		err = m.device.AutoPosition(ctx, fix.Lat, fix.Lon)
	default:
		_, err = m.servos.SetAuto(ctx, res.Angles.Base, res.Angles.Panel)
	}

	m.record(logger, runID, &res, err)
	return res
}

// guard checks the weather and stows the panel when it is dangerous. It
// reports whether positioning should be skipped.
func (m *Manager) guard(ctx context.Context, logger *zap.Logger, fix location.Fix, res *Result) bool {
	if !m.opts.WeatherGuard || m.weather == nil {
		return false
	}

	data, err := m.weather.CurrentAt(ctx, fix.Lat, fix.Lon)
	if err != nil {
		logger.Debug("Weather check skipped", zap.Error(err))
		return false
	}
	res.Weather = &data
	res.Alerts = weather.Alerts(data)

	for _, alert := range res.Alerts {
		m.metrics.RecordWeatherAlert(string(alert.Level), string(alert.Condition))
		m.events.Publish(events.WeatherAlert, map[string]any{
			"level":     string(alert.Level),
			"condition": string(alert.Condition),
			"message":   alert.Message,
			"stow":      alert.Stow,
		})
	}

	if !weather.ShouldStow(res.Alerts) {
		return false
	}

	logger.Warn("Dangerous weather, stowing panel", zap.String("condition", string(data.Condition)))
	if _, err := m.servos.Stow(ctx); err != nil {
		res.Error = err.Error()
		return true
	}
	res.Stowed = true
	return true
}

func (m *Manager) record(logger *zap.Logger, runID id.RunID, res *Result, err error) {
	if err != nil {
		res.Error = err.Error()
	}

	status := "success"
	switch {
	case res.Error != "":
		status = "error"
	case res.Stowed:
		status = "stowed"
	}
	m.metrics.RecordTrackingUpdate(status, res.Position.Azimuth, res.Position.Altitude)

	m.mu.Lock()
	m.updates++
	if res.Error != "" {
		m.failures++
	}
	last := *res
	m.last = &last
	m.mu.Unlock()

	data := map[string]any{
		"run_id":   runID.String(),
		"azimuth":  res.Position.Azimuth,
		"altitude": res.Position.Altitude,
		"base":     res.Angles.Base,
		"panel":    res.Angles.Panel,
		"daylight": res.Daylight,
		"stowed":   res.Stowed,
	}
	if res.Error != "" {
		data["error"] = res.Error
		logger.Warn("Tracking update failed", zap.String("error", res.Error))
		m.events.Publish(events.TrackingFailed, data)
		return
	}

	logger.Info("Tracking update",
		zap.Stringer("position", res.Position),
		zap.Int("base", res.Angles.Base),
		zap.Int("panel", res.Angles.Panel),
		zap.Bool("stowed", res.Stowed))
	m.events.Publish(events.TrackingUpdated, data)
}

// Status returns the current tracking state
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		Active:   m.run != nil,
		Mode:     m.opts.Mode,
		Interval: m.opts.Interval.String(),
		Updates:  m.updates,
		Failures: m.failures,
	}
	if m.last != nil {
		last := *m.last
		st.LastUpdate = &last
	}
	if m.run != nil {
		started := m.run.startedAt
		fix := m.run.fix
		st.RunID = m.run.id
		st.StartedAt = &started
		st.Location = &fix
	}
	return st
}
