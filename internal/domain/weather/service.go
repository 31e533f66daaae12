package weather

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/events"
	"go.uber.org/zap"
)

// Source fetches current conditions
type Source interface {
	Current(ctx context.Context, place string) (Data, error)
	CurrentAt(ctx context.Context, lat, lon float64) (Data, error)
}

// StowFunc lays the panel flat
type StowFunc func(ctx context.Context) error

// Check is the outcome of a weather lookup with its alerts applied
type Check struct {
	Place     string  `json:"place"`
	Data      Data    `json:"data"`
	Alerts    []Alert `json:"alerts,omitempty"`
	Report    string  `json:"report"`
	Stowed    bool    `json:"stowed"`
	StowError string  `json:"stow_error,omitempty"`
}

// Service looks up weather and acts on dangerous conditions
type Service struct {
	source  Source
	stow    StowFunc
	logger  *zap.Logger
	metrics *monitoring.Metrics
	events  events.Publisher
}

// NewService creates a service. stow may be nil, in which case alerts are
// reported but never acted on.
func NewService(source Source, stow StowFunc, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source: source,
		stow:   stow,
		logger: logger.With(zap.String("component", "weather")),
		events: events.Nop{},
	}
}

// WithMetrics enables alert metrics
func (s *Service) WithMetrics(m *monitoring.Metrics) *Service {
	s.metrics = m
	return s
}

// WithEvents publishes alerts to p
func (s *Service) WithEvents(p events.Publisher) *Service {
	if p != nil {
		s.events = p
	}
	return s
}

// ForPlace checks the weather at a named place
func (s *Service) ForPlace(ctx context.Context, place string) (Check, error) {
	data, err := s.source.Current(ctx, place)
	if err != nil {
		return Check{}, err
	}
	if data.Place != "" {
		place = data.Place
	}
	return s.apply(ctx, place, data), nil
}

// ForCoordinates checks the weather at lat/lon
func (s *Service) ForCoordinates(ctx context.Context, lat, lon float64) (Check, error) {
	data, err := s.source.CurrentAt(ctx, lat, lon)
	if err != nil {
		return Check{}, err
	}
	place := data.Place
	if place == "" {
		place = fmt.Sprintf("%.4f, %.4f", lat, lon)
	}
	return s.apply(ctx, place, data), nil
}

func (s *Service) apply(ctx context.Context, place string, data Data) Check {
	check := Check{
		Place:  place,
		Data:   data,
		Alerts: Alerts(data),
		Report: Report(place, data),
	}

	for _, alert := range check.Alerts {
		s.metrics.RecordWeatherAlert(string(alert.Level), string(alert.Condition))
		s.events.Publish(events.WeatherAlert, map[string]any{
			"place":     place,
			"level":     string(alert.Level),
			"condition": string(alert.Condition),
			"message":   alert.Message,
			"stow":      alert.Stow,
		})
	}

	if !ShouldStow(check.Alerts) || s.stow == nil {
		return check
	}

	s.logger.Warn("Dangerous weather, stowing panel", zap.String("place", place))
	if err := s.stow(ctx); err != nil {
		s.logger.Error("Failed to stow panel", zap.Error(err))
		check.StowError = err.Error()
		return check
	}
	check.Stowed = true
	return check
}
