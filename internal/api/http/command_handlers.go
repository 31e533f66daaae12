package http

import (
	"net/http"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/command"
	"github.com/gin-gonic/gin"
)

// CommandRequest carries one free-text command
type CommandRequest struct {
	Text string `json:"text" binding:"required"`
}

// HandleCommand parses and executes a text command
func (h *Handlers) HandleCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalid(c, "body must be {\"text\": \"<command>\"}")
		return
	}

	out, err := h.commands.Handle(c.Request.Context(), req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// CommandHelp lists the supported commands
func (h *Handlers) CommandHelp(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"help": command.Help(),
		"actions": []command.Action{
			command.ActionRotate,
			command.ActionTilt,
			command.ActionPreset,
			command.ActionSetAngle,
			command.ActionAutoOn,
			command.ActionAutoOff,
			command.ActionWeather,
			command.ActionResetLocation,
			command.ActionHelp,
		},
	})
}
