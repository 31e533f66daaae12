package http

import (
	"net/http"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/location"
	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/events"
	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/utils"
	"github.com/gin-gonic/gin"
)

// LocationRequest updates the location from coordinates or a place name
type LocationRequest struct {
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	Source   string   `json:"source"`
	Accuracy float64  `json:"accuracy"`
	Place    string   `json:"place"`
}

// GetLocation returns the freshest fix and every stored one
func (h *Handlers) GetLocation(c *gin.Context) {
	resp := gin.H{
		"status": h.locations.Status(),
		"fixes":  h.locations.Fixes(),
	}
	if fix, err := h.locations.Current(); err == nil {
		resp["current"] = fix
	}
	c.JSON(http.StatusOK, resp)
}

// SetLocation records a fix. With only a place the place is geocoded.
func (h *Handlers) SetLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalid(c, "body must be {\"lat\", \"lon\", \"source\"} or {\"place\"}")
		return
	}

	var fix location.Fix
	switch {
	case req.Lat != nil && req.Lon != nil:
		src, err := location.ParseSource(req.Source)
		if err != nil {
			h.fail(c, err)
			return
		}
		fix = location.Fix{
			Coordinates: location.Coordinates{Lat: *req.Lat, Lon: *req.Lon},
			Source:      src,
			Accuracy:    req.Accuracy,
			Place:       utils.StripMarkup(req.Place),
		}

	case req.Place != "":
		if h.geocoder == nil {
			h.fail(c, errGeocoderUnavailable)
			return
		}
		place, err := utils.NormalizePlace(req.Place)
		if err != nil {
			h.invalid(c, err.Error())
			return
		}
		fix, err = h.geocoder.Locate(c.Request.Context(), place)
		if err != nil {
			h.fail(c, err)
			return
		}
		if h.commands != nil {
			h.commands.SetLastPlace(place)
		}

	default:
		h.invalid(c, "either lat and lon or place is required")
		return
	}

	stored, moved, err := h.locations.Update(fix)
	if err != nil {
		h.fail(c, err)
		return
	}
	if moved {
		h.events.Publish(events.LocationChanged, map[string]any{
			"lat":    stored.Lat,
			"lon":    stored.Lon,
			"source": string(stored.Source),
			"place":  stored.Place,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"location": stored,
		"moved":    moved,
		"status":   h.locations.Status(),
	})
}

// ClearLocation forgets every fix and the remembered place
func (h *Handlers) ClearLocation(c *gin.Context) {
	h.locations.Clear()
	if h.commands != nil {
		h.commands.SetLastPlace("")
	}
	h.events.Publish(events.LocationChanged, map[string]any{"cleared": true})
	c.JSON(http.StatusOK, gin.H{"status": h.locations.Status()})
}
