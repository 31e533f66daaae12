package http

import (
	"context"
	"net/http"
	"time"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/command"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/location"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/manifest"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/servo"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/tracking"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/weather"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/events"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Service is the name reported by the status endpoints
const Service = "SolarSense Tracker"

// Device is the board client as the API sees it
type Device interface {
	BaseURL() string
	SetBaseURL(raw string) (string, error)
	Ping(ctx context.Context) (string, error)
	BreakerStates() map[string]string
}

// WeatherStatus reports whether weather lookups can work
type WeatherStatus interface {
	Configured() bool
	BreakerState() string
}

// Geocoder resolves a place name to a fix
type Geocoder interface {
	Locate(ctx context.Context, place string) (location.Fix, error)
}

// Deps are the services behind the API. Weather, WeatherStatus, Geocoder
// and Manifest may be nil.
type Deps struct {
	Servos        *servo.Controller
	Tracker       *tracking.Manager
	Locations     *location.Store
	Commands      *command.Dispatcher
	Device        Device
	Weather       *weather.Service
	WeatherStatus WeatherStatus
	Geocoder      Geocoder
	Manifest      *manifest.Manifest
	Metrics       *monitoring.Metrics
	Events        events.Publisher
	Logger        *zap.Logger
	Version       string
}

// Handlers contains all HTTP handlers
type Handlers struct {
	servos        *servo.Controller
	tracker       *tracking.Manager
	locations     *location.Store
	commands      *command.Dispatcher
	device        Device
	weather       *weather.Service
	weatherStatus WeatherStatus
	geocoder      Geocoder
	manifest      *manifest.Manifest
	metrics       *monitoring.Metrics
	events        events.Publisher
	logger        *zap.Logger
	version       string
	startedAt     time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(deps Deps) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pub := deps.Events
	if pub == nil {
		pub = events.Nop{}
	}
	return &Handlers{
		servos:        deps.Servos,
		tracker:       deps.Tracker,
		locations:     deps.Locations,
		commands:      deps.Commands,
		device:        deps.Device,
		weather:       deps.Weather,
		weatherStatus: deps.WeatherStatus,
		geocoder:      deps.Geocoder,
		manifest:      deps.Manifest,
		metrics:       deps.Metrics,
		events:        pub,
		logger:        logger,
		version:       deps.Version,
		startedAt:     time.Now(),
	}
}

// Root handles the liveness check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": Service,
		"version": h.version,
	})
}

// Health reports every subsystem the tracker depends on
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status":   "healthy",
		"service":  Service,
		"version":  h.version,
		"uptime":   time.Since(h.startedAt).Round(time.Second).String(),
		"servo":    h.servos.State(),
		"tracking": h.tracker.Status(),
		"location": h.locations.Status(),
	}
	if h.device != nil {
		resp["device"] = gin.H{
			"url":      h.device.BaseURL(),
			"breakers": h.device.BreakerStates(),
		}
	}
	if h.weatherStatus != nil {
		resp["weather"] = gin.H{
			"configured": h.weatherStatus.Configured(),
			"breaker":    h.weatherStatus.BreakerState(),
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Metrics serves the Prometheus exposition
func (h *Handlers) Metrics(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusNotFound)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// MetricsSnapshot returns headline metric values as JSON
func (h *Handlers) MetricsSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

// Manifest returns the build manifest analysis. ?format=toml|yaml|json
// returns the manifest itself in that encoding instead.
func (h *Handlers) Manifest(c *gin.Context) {
	if h.manifest == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no manifest loaded"})
		return
	}

	if f := c.Query("format"); f != "" {
		format, err := manifest.ParseFormat(f)
		if err != nil {
			h.fail(c, err)
			return
		}
		data, err := manifest.Encode(h.manifest, format)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Data(http.StatusOK, contentType(format), data)
		return
	}

	report, err := manifest.Inspect(h.manifest)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func contentType(f manifest.Format) string {
	switch f {
	case manifest.FormatTOML:
		return "application/toml"
	case manifest.FormatYAML:
		return "application/yaml"
	default:
		return "application/json"
	}
}
