// Package weather fetches current conditions and geocodes place names
// using the OpenWeatherMap APIs.
package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/location"
	domain "github.com/GriffinCanCode/SolarSense/backend/internal/domain/weather"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/SolarSense/backend/internal/providers/http/client"
	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/utils"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

var (
	ErrMissingAPIKey    = errors.New("weather API key not configured")
	ErrLocationNotFound = errors.New("location not found")
	ErrInvalidPlace     = errors.New("invalid location")
	ErrUpstream         = errors.New("weather API error")
	ErrUnavailable      = client.ErrUnavailable
)

// Config holds endpoint and credential settings
type Config struct {
	APIKey string
	URL    string
	GeoURL string
	Units  string
	// HTTP tunes the underlying client. Zero value uses client.DefaultConfig.
	HTTP client.Config
}

// Provider talks to the weather and geocoding endpoints
type Provider struct {
	http   *client.Client
	cfg    Config
	logger *zap.Logger
}

// New creates a provider. Requests fail with ErrMissingAPIKey until a key
// is configured.
func New(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Units == "" {
		cfg.Units = "metric"
	}
	httpCfg := cfg.HTTP
	if httpCfg.Name == "" {
		httpCfg = client.DefaultConfig("weather")
	}

	return &Provider{
		http:   client.NewClient(httpCfg, logger),
		cfg:    cfg,
		logger: logger,
	}
}

// WithTracer opens a span per upstream call
func (p *Provider) WithTracer(t *tracing.Tracer) *Provider {
	p.http.WithTracer(t)
	return p
}

// WithMetrics records upstream calls
func (p *Provider) WithMetrics(m *monitoring.Metrics) *Provider {
	p.http.WithMetrics(m)
	return p
}

// Configured reports whether an API key is set
func (p *Provider) Configured() bool {
	return p.cfg.APIKey != ""
}

// BreakerState returns the upstream breaker state name
func (p *Provider) BreakerState() string {
	return p.http.BreakerState().String()
}

// Current returns conditions for a place name
func (p *Provider) Current(ctx context.Context, place string) (domain.Data, error) {
	clean, err := utils.NormalizePlace(place)
	if err != nil {
		return domain.Data{}, fmt.Errorf("%w: %v", ErrInvalidPlace, err)
	}

	data, err := p.current(ctx, map[string]string{"q": clean})
	if err != nil {
		return domain.Data{}, err
	}
	if data.Place == "" {
		data.Place = clean
	}
	return data, nil
}

// CurrentAt returns conditions at a coordinate pair
func (p *Provider) CurrentAt(ctx context.Context, lat, lon float64) (domain.Data, error) {
	if err := (location.Coordinates{Lat: lat, Lon: lon}).Validate(); err != nil {
		return domain.Data{}, err
	}
	return p.current(ctx, map[string]string{
		"lat": strconv.FormatFloat(lat, 'f', 6, 64),
		"lon": strconv.FormatFloat(lon, 'f', 6, 64),
	})
}

func (p *Provider) current(ctx context.Context, query map[string]string) (domain.Data, error) {
	if !p.Configured() {
		return domain.Data{}, ErrMissingAPIKey
	}
	query["units"] = p.cfg.Units
	query["appid"] = p.cfg.APIKey

	resp, err := p.http.Get(ctx, "current", p.cfg.URL, query)
	if err != nil {
		return domain.Data{}, mapError(err)
	}

	data, err := domain.Parse(resp.Body())
	if err != nil {
		p.logger.Warn("Unreadable weather response", zap.Error(err))
		return domain.Data{}, err
	}
	return data, nil
}

// Place is a geocoding match
type Place struct {
	Name    string  `json:"name"`
	State   string  `json:"state,omitempty"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Coordinates returns the match as a coordinate pair
func (pl Place) Coordinates() location.Coordinates {
	return location.Coordinates{Lat: pl.Lat, Lon: pl.Lon}
}

// Geocode resolves a place name to its first match
func (p *Provider) Geocode(ctx context.Context, place string) (Place, error) {
	clean, err := utils.NormalizePlace(place)
	if err != nil {
		return Place{}, fmt.Errorf("%w: %v", ErrInvalidPlace, err)
	}
	if !p.Configured() {
		return Place{}, ErrMissingAPIKey
	}

	resp, err := p.http.Get(ctx, "geocode", p.cfg.GeoURL, map[string]string{
		"q":     clean,
		"limit": "1",
		"appid": p.cfg.APIKey,
	})
	if err != nil {
		return Place{}, mapError(err)
	}

	var matches []Place
	if err := sonic.Unmarshal(resp.Body(), &matches); err != nil {
		return Place{}, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	if len(matches) == 0 {
		return Place{}, fmt.Errorf("%w: %s", ErrLocationNotFound, clean)
	}
	return matches[0], nil
}

func mapError(err error) error {
	var se *client.StatusError
	if errors.As(err, &se) {
		if se.StatusCode == http.StatusNotFound {
			return ErrLocationNotFound
		}
		return fmt.Errorf("%w: %d", ErrUpstream, se.StatusCode)
	}
	return err
}

// Locate geocodes place into a location fix
func (p *Provider) Locate(ctx context.Context, place string) (location.Fix, error) {
	match, err := p.Geocode(ctx, place)
	if err != nil {
		return location.Fix{}, err
	}

	name := match.Name
	if match.Country != "" {
		name += ", " + match.Country
	}
	return location.Fix{
		Coordinates: match.Coordinates(),
		Source:      location.SourceGeocoded,
		Place:       name,
	}, nil
}
