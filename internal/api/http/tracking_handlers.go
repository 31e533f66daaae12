package http

import (
	"net/http"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/location"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/tracking"
	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/utils"
	"github.com/gin-gonic/gin"
)

// StartTrackingRequest picks where to track. Every field is optional; with
// none the stored location is used.
type StartTrackingRequest struct {
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Place string   `json:"place"`
}

// TrackingStatus returns the auto tracking state
func (h *Handlers) TrackingStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Status())
}

// StartTracking turns auto mode on
func (h *Handlers) StartTracking(c *gin.Context) {
	var body StartTrackingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			h.invalid(c, "body must be {\"lat\", \"lon\"} or {\"place\"}")
			return
		}
	}

	var req tracking.StartRequest
	switch {
	case body.Lat != nil && body.Lon != nil:
		req.Coordinates = &location.Coordinates{Lat: *body.Lat, Lon: *body.Lon}
	case body.Lat != nil || body.Lon != nil:
		h.invalid(c, "lat and lon must be given together")
		return
	}
	if body.Place != "" {
		place, err := utils.NormalizePlace(body.Place)
		if err != nil {
			h.invalid(c, err.Error())
			return
		}
		req.Place = place
	} else if h.commands != nil {
		req.Place = h.commands.LastPlace()
	}

	status, err := h.tracker.Start(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	if body.Place != "" && h.commands != nil {
		h.commands.SetLastPlace(req.Place)
	}
	c.JSON(http.StatusOK, status)
}

// StopTracking turns auto mode off. Stopping when idle is not an error.
func (h *Handlers) StopTracking(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Stop())
}

// UpdateTracking runs one tracking update now
func (h *Handlers) UpdateTracking(c *gin.Context) {
	res, err := h.tracker.Update(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
