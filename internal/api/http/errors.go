package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/command"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/location"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/manifest"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/servo"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/solar"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/tracking"
	domainweather "github.com/GriffinCanCode/SolarSense/backend/internal/domain/weather"
	"github.com/GriffinCanCode/SolarSense/backend/internal/providers/device"
	"github.com/GriffinCanCode/SolarSense/backend/internal/providers/http/client"
	"github.com/GriffinCanCode/SolarSense/backend/internal/providers/weather"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	// ErrInvalidInput marks request validation failures
	ErrInvalidInput = errors.New("invalid input")

	errGeocoderUnavailable = errors.New("place lookups are not configured")
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusFor maps a domain or provider error onto an HTTP status
func StatusFor(err error) int {
	var (
		deviceStatus   *device.StatusError
		upstreamStatus *client.StatusError
		urlErr         *url.Error
		netErr         net.Error
	)

	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, solar.ErrInvalidCoordinates),
		errors.Is(err, servo.ErrUnknownServo),
		errors.Is(err, servo.ErrUnknownDirection),
		errors.Is(err, servo.ErrUnknownPreset),
		errors.Is(err, location.ErrInvalidSource),
		errors.Is(err, command.ErrInvalidCommand),
		errors.Is(err, command.ErrUnknownCommand),
		errors.Is(err, command.ErrNoPlace),
		errors.Is(err, tracking.ErrNoLocation),
		errors.Is(err, weather.ErrInvalidPlace),
		errors.Is(err, device.ErrInvalidURL),
		errors.Is(err, manifest.ErrInvalidManifest),
		errors.Is(err, manifest.ErrUnsupportedFormat):
		return http.StatusBadRequest

	case errors.Is(err, weather.ErrLocationNotFound),
		errors.Is(err, location.ErrNoFix):
		return http.StatusNotFound

	case errors.Is(err, servo.ErrAutoMode),
		errors.Is(err, tracking.ErrAlreadyRunning):
		return http.StatusConflict

	case errors.Is(err, device.ErrUnavailable),
		errors.Is(err, client.ErrUnavailable),
		errors.Is(err, weather.ErrMissingAPIKey),
		errors.Is(err, command.ErrWeatherUnavailable),
		errors.Is(err, errGeocoderUnavailable):
		return http.StatusServiceUnavailable

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.As(err, &deviceStatus),
		errors.As(err, &upstreamStatus),
		errors.Is(err, weather.ErrUpstream),
		errors.Is(err, domainweather.ErrMalformed),
		errors.As(err, &urlErr),
		errors.As(err, &netErr):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error with the mapped status
func (h *Handlers) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	_ = c.Error(err)

	if status >= http.StatusInternalServerError {
		h.logger.Warn("Request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.String("trace_id", c.GetString("trace_id")),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error()})
}

// invalid reports a malformed request
func (h *Handlers) invalid(c *gin.Context, msg string) {
	h.fail(c, &inputError{msg: msg})
}

type inputError struct {
	msg string
}

func (e *inputError) Error() string { return e.msg }

func (e *inputError) Unwrap() error { return ErrInvalidInput }
