package http

import (
	"net/http"

	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/events"
	"github.com/gin-gonic/gin"
)

// DeviceRequest points the backend at another board
type DeviceRequest struct {
	URL string `json:"url" binding:"required"`
}

// GetDevice returns the board address and breaker states
func (h *Handlers) GetDevice(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"url":      h.device.BaseURL(),
		"breakers": h.device.BreakerStates(),
	})
}

// SetDevice changes the board address
func (h *Handlers) SetDevice(c *gin.Context) {
	var req DeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalid(c, "body must be {\"url\": \"http://<board-ip>\"}")
		return
	}

	url, err := h.device.SetBaseURL(req.URL)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.events.Publish(events.DeviceChanged, map[string]any{"url": url})
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// PingDevice checks the board answers
func (h *Handlers) PingDevice(c *gin.Context) {
	reply, err := h.device.Ping(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"url":   h.device.BaseURL(),
		"reply": reply,
	})
}
