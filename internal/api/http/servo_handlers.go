package http

import (
	"net/http"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/servo"
	"github.com/gin-gonic/gin"
)

// AngleRequest sets a servo to an absolute angle
type AngleRequest struct {
	Angle *int `json:"angle" binding:"required"`
}

// DeltaRequest moves a servo relative to its current angle
type DeltaRequest struct {
	Delta int `json:"delta"`
}

// GetServo returns the commanded servo state
func (h *Handlers) GetServo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state": h.servos.State(),
		"step":  h.servos.Step(),
	})
}

// SetServo moves one servo to an absolute angle. Angles outside 0-180 are
// clamped.
func (h *Handlers) SetServo(c *gin.Context) {
	s, err := servo.ParseServo(c.Param("servo"))
	if err != nil {
		h.fail(c, err)
		return
	}

	var req AngleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalid(c, "body must be {\"angle\": <0-180>}")
		return
	}

	h.respondServo(c, func() (servo.State, error) {
		return h.servos.Set(c.Request.Context(), s, *req.Angle)
	})
}

// AdjustServo nudges one servo by delta degrees
func (h *Handlers) AdjustServo(c *gin.Context) {
	s, err := servo.ParseServo(c.Param("servo"))
	if err != nil {
		h.fail(c, err)
		return
	}

	var req DeltaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalid(c, "body must be {\"delta\": <degrees>}")
		return
	}

	h.respondServo(c, func() (servo.State, error) {
		return h.servos.Adjust(c.Request.Context(), s, req.Delta)
	})
}

// PresetServo moves one servo to an end stop
func (h *Handlers) PresetServo(c *gin.Context) {
	s, err := servo.ParseServo(c.Param("servo"))
	if err != nil {
		h.fail(c, err)
		return
	}
	p, err := servo.ParsePreset(c.Param("preset"))
	if err != nil {
		h.fail(c, err)
		return
	}

	h.respondServo(c, func() (servo.State, error) {
		return h.servos.Preset(c.Request.Context(), s, p)
	})
}

// RotateBase turns the base one step clockwise or counter-clockwise. Only
// the base rotates; the route shares the :servo segment with the others.
func (h *Handlers) RotateBase(c *gin.Context) {
	s, err := servo.ParseServo(c.Param("servo"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if s != servo.Base {
		h.invalid(c, "only the base servo rotates; tilt the panel with /servo/panel/adjust")
		return
	}
	d, err := servo.ParseDirection(c.Param("direction"))
	if err != nil {
		h.fail(c, err)
		return
	}

	h.respondServo(c, func() (servo.State, error) {
		return h.servos.Rotate(c.Request.Context(), d)
	})
}

func (h *Handlers) respondServo(c *gin.Context, move func() (servo.State, error)) {
	st, err := move()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
