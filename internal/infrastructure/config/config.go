package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Device    DeviceConfig
	Weather   WeatherConfig
	Tracking  TrackingConfig
	Servo     ServoConfig
	Location  LocationConfig
	Manifest  ManifestConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8000"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// DeviceConfig holds tracker board connection settings.
type DeviceConfig struct {
	URL     string        `envconfig:"ESP_URL" default:"http://192.168.63.219"`
	Timeout time.Duration `envconfig:"ESP_TIMEOUT" default:"5s"`
	Retries int           `envconfig:"ESP_RETRIES" default:"2"`
}

// WeatherConfig holds weather service settings.
type WeatherConfig struct {
	APIKey  string        `envconfig:"WEATHER_API_KEY"`
	URL     string        `envconfig:"WEATHER_URL" default:"https://api.openweathermap.org/data/2.5/weather"`
	GeoURL  string        `envconfig:"WEATHER_GEO_URL" default:"https://api.openweathermap.org/geo/1.0/direct"`
	Units   string        `envconfig:"WEATHER_UNITS" default:"metric"`
	Timeout time.Duration `envconfig:"WEATHER_TIMEOUT" default:"5s"`
	RPS     float64       `envconfig:"WEATHER_RPS" default:"1"`
}

// TrackingConfig holds auto tracking settings.
type TrackingConfig struct {
	Interval     time.Duration `envconfig:"TRACKING_INTERVAL" default:"5m"`
	Mode         string        `envconfig:"TRACKING_MODE" default:"local"`
	WeatherGuard bool          `envconfig:"TRACKING_WEATHER_GUARD" default:"true"`
}

// ServoConfig holds servo step sizes and rest position.
type ServoConfig struct {
	Step         int `envconfig:"SERVO_STEP" default:"40"`
	VoiceStep    int `envconfig:"VOICE_STEP" default:"15"`
	DefaultBase  int `envconfig:"SERVO_DEFAULT_BASE" default:"90"`
	DefaultPanel int `envconfig:"SERVO_DEFAULT_PANEL" default:"90"`
}

// LocationConfig holds location store settings.
type LocationConfig struct {
	MinDistance float64 `envconfig:"LOCATION_MIN_DISTANCE" default:"10"`
}

// ManifestConfig points at the build manifest and version catalog.
// An empty path serves the built-in manifest.
type ManifestConfig struct {
	Path    string `envconfig:"MANIFEST_PATH"`
	Catalog string `envconfig:"VERSION_CATALOG"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Tracking modes
const (
	ModeLocal  = "local"
	ModeDevice = "device"
)

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			ShutdownTimeout: 10 * time.Second,
		},
		Device: DeviceConfig{
			URL:     "http://192.168.63.219",
			Timeout: 5 * time.Second,
			Retries: 2,
		},
		Weather: WeatherConfig{
			URL:     "https://api.openweathermap.org/data/2.5/weather",
			GeoURL:  "https://api.openweathermap.org/geo/1.0/direct",
			Units:   "metric",
			Timeout: 5 * time.Second,
			RPS:     1,
		},
		Tracking: TrackingConfig{
			Interval:     5 * time.Minute,
			Mode:         ModeLocal,
			WeatherGuard: true,
		},
		Servo: ServoConfig{
			Step:         40,
			VoiceStep:    15,
			DefaultBase:  90,
			DefaultPanel: 90,
		},
		Location: LocationConfig{
			MinDistance: 10,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Validate checks values envconfig cannot check by type alone.
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.Device.URL); err != nil || u.Host == "" {
		errs = append(errs, fmt.Errorf("ESP_URL %q is not an absolute URL", c.Device.URL))
	}
	if c.Device.Timeout <= 0 {
		errs = append(errs, errors.New("ESP_TIMEOUT must be positive"))
	}
	if c.Device.Retries < 0 {
		errs = append(errs, errors.New("ESP_RETRIES must not be negative"))
	}
	if c.Weather.Timeout <= 0 {
		errs = append(errs, errors.New("WEATHER_TIMEOUT must be positive"))
	}
	if c.Tracking.Interval < time.Second {
		errs = append(errs, errors.New("TRACKING_INTERVAL must be at least 1s"))
	}
	switch strings.ToLower(c.Tracking.Mode) {
	case ModeLocal, ModeDevice:
	default:
		errs = append(errs, fmt.Errorf("TRACKING_MODE %q must be %q or %q", c.Tracking.Mode, ModeLocal, ModeDevice))
	}
	if c.Servo.Step <= 0 || c.Servo.Step > 180 {
		errs = append(errs, errors.New("SERVO_STEP must be within 1..180"))
	}
	if c.Servo.VoiceStep <= 0 || c.Servo.VoiceStep > 180 {
		errs = append(errs, errors.New("VOICE_STEP must be within 1..180"))
	}
	for name, v := range map[string]int{
		"SERVO_DEFAULT_BASE":  c.Servo.DefaultBase,
		"SERVO_DEFAULT_PANEL": c.Servo.DefaultPanel,
	} {
		if v < 0 || v > 180 {
			errs = append(errs, fmt.Errorf("%s must be within 0..180", name))
		}
	}
	if c.Location.MinDistance < 0 {
		errs = append(errs, errors.New("LOCATION_MIN_DISTANCE must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
