package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	api "github.com/GriffinCanCode/SolarSense/backend/internal/api/http"
	"github.com/GriffinCanCode/SolarSense/backend/internal/api/middleware"
	"github.com/GriffinCanCode/SolarSense/backend/internal/api/ws"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/command"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/location"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/manifest"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/servo"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/tracking"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/weather"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/SolarSense/backend/internal/providers/device"
	"github.com/GriffinCanCode/SolarSense/backend/internal/providers/http/client"
	weatherProvider "github.com/GriffinCanCode/SolarSense/backend/internal/providers/weather"
	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/events"
)

// Version is stamped at build time with -ldflags "-X ...server.Version=..."
var Version = "dev"

// Server wraps the HTTP server and dependencies
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	servos     *servo.Controller
	tracker    *tracking.Manager
	dispatcher *command.Dispatcher
	device     *device.Client
	bus        *events.Bus
	tracer     *tracing.Tracer
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := logging.FromConfig(cfg.Logging.Level, cfg.Logging.Development)

	logger.Info("Initializing SolarSense server",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("esp_url", cfg.Device.URL),
		zap.String("tracking_mode", cfg.Tracking.Mode),
		zap.String("version", Version),
	)

	// Metrics first, everything else reports into it
	metrics := monitoring.NewMetrics()
	tracer := tracing.New("solarsense", logger.Logger)
	bus := events.NewBus(events.DefaultBuffer)

	board, err := device.NewClient(cfg.Device.URL,
		device.WithTimeout(cfg.Device.Timeout),
		device.WithMaxRetries(cfg.Device.Retries),
		device.WithTracer(tracer),
		device.WithMetrics(metrics),
		device.WithLogger(logger.Component("device")),
	)
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to create device client: %w", err)
	}

	httpCfg := client.DefaultConfig("weather")
	httpCfg.Timeout = cfg.Weather.Timeout
	httpCfg.RateLimit = cfg.Weather.RPS
	forecasts := weatherProvider.New(weatherProvider.Config{
		APIKey: cfg.Weather.APIKey,
		URL:    cfg.Weather.URL,
		GeoURL: cfg.Weather.GeoURL,
		Units:  cfg.Weather.Units,
		HTTP:   httpCfg,
	}, logger.Component("weather-api")).
		WithTracer(tracer).
		WithMetrics(metrics)
	if !forecasts.Configured() {
		logger.Warn("WEATHER_API_KEY not set, weather lookups and the storm guard are disabled")
	}

	servos := servo.NewController(board, servo.Options{
		Step:         cfg.Servo.Step,
		DefaultBase:  &cfg.Servo.DefaultBase,
		DefaultPanel: &cfg.Servo.DefaultPanel,
	}, logger.Component("servo")).
		WithMetrics(metrics).
		WithEvents(bus)

	store := location.NewStore(cfg.Location.MinDistance)

	tracker := tracking.NewManager(servos, store, tracking.Options{
		Interval:     cfg.Tracking.Interval,
		Mode:         tracking.Mode(cfg.Tracking.Mode),
		WeatherGuard: cfg.Tracking.WeatherGuard && forecasts.Configured(),
	}, logger.Component("tracking")).
		WithDevice(board).
		WithGeocoder(forecasts).
		WithMetrics(metrics).
		WithEvents(bus)
	if forecasts.Configured() {
		tracker.WithWeather(forecasts)
	}

	stow := func(ctx context.Context) error {
		_, err := servos.Stow(ctx)
		return err
	}
	checks := weather.NewService(forecasts, stow, logger.Component("weather")).
		WithMetrics(metrics).
		WithEvents(bus)

	dispatcher := command.NewDispatcher(command.NewParser(cfg.Servo.VoiceStep), servos, tracker, store, logger.Component("commands")).
		WithWeather(checks).
		WithMetrics(metrics).
		WithEvents(bus)

	build, err := loadManifest(cfg.Manifest, logger.Logger)
	if err != nil {
		board.Close()
		tracer.Close()
		return nil, err
	}

	handlers := api.NewHandlers(api.Deps{
		Servos:        servos,
		Tracker:       tracker,
		Locations:     store,
		Commands:      dispatcher,
		Device:        board,
		Weather:       checks,
		WeatherStatus: forecasts,
		Geocoder:      forecasts,
		Manifest:      build,
		Metrics:       metrics,
		Events:        bus,
		Logger:        logger.Component("api"),
		Version:       Version,
	})
	wsHandler := ws.NewHandler(bus, dispatcher, logger.Component("stream")).WithMetrics(metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.Recovery(logger.Component("http")))
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.RequestLogger(logger.Component("http")))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers.Register(router)
	router.GET("/stream", wsHandler.HandleConnection)

	s := &Server{
		router:     router,
		servos:     servos,
		tracker:    tracker,
		dispatcher: dispatcher,
		device:     board,
		bus:        bus,
		tracer:     tracer,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           middleware.Compress(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server initialized successfully")
	return s, nil
}

// loadManifest reads the configured build manifest, resolving catalog
// references when a version catalog is set. No path means the built-in one.
func loadManifest(cfg config.ManifestConfig, logger *zap.Logger) (*manifest.Manifest, error) {
	m := manifest.Default()
	if cfg.Path != "" {
		var err error
		if m, err = manifest.Load(cfg.Path); err != nil {
			return nil, fmt.Errorf("failed to load manifest: %w", err)
		}
	}
	if cfg.Catalog == "" {
		return m, nil
	}

	catalog, err := manifest.LoadCatalog(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load version catalog: %w", err)
	}
	resolved, missing := m.Resolve(catalog)
	if len(missing) > 0 {
		logger.Warn("Unresolved catalog references", zap.Strings("refs", missing))
	}
	return resolved, nil
}

// Handler returns the full HTTP handler chain
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Close stops auto tracking and releases background resources
func (s *Server) Close() error {
	s.tracker.Close()
	s.logger.Info("Stopped auto tracking")

	s.bus.Close()
	s.device.Close()
	s.tracer.Close()

	_ = s.logger.Sync()
	return nil
}
