package http

import (
	"net/http"
	"strconv"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/command"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/solar"
	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/weather"
	"github.com/gin-gonic/gin"
)

// Weather reports current conditions for ?location=, or ?lat=&lon=, or
// failing both the last place used or the stored location. A thunderstorm
// stows the panel.
func (h *Handlers) Weather(c *gin.Context) {
	if h.weather == nil {
		h.fail(c, command.ErrWeatherUnavailable)
		return
	}
	ctx := c.Request.Context()

	var (
		check weather.Check
		err   error
	)
	place := c.Query("location")
	rawLat, rawLon := c.Query("lat"), c.Query("lon")

	switch {
	case place != "":
		check, err = h.weather.ForPlace(ctx, place)
		if err == nil && h.commands != nil {
			h.commands.SetLastPlace(place)
		}

	case rawLat != "" || rawLon != "":
		lat, errLat := strconv.ParseFloat(rawLat, 64)
		lon, errLon := strconv.ParseFloat(rawLon, 64)
		if errLat != nil || errLon != nil {
			h.invalid(c, "lat and lon must both be numbers")
			return
		}
		if err := solar.ValidateCoordinates(lat, lon); err != nil {
			h.fail(c, err)
			return
		}
		check, err = h.weather.ForCoordinates(ctx, lat, lon)

	default:
		if h.commands != nil && h.commands.LastPlace() != "" {
			check, err = h.weather.ForPlace(ctx, h.commands.LastPlace())
			break
		}
		fix, ferr := h.locations.Current()
		if ferr != nil {
			h.fail(c, command.ErrNoPlace)
			return
		}
		check, err = h.weather.ForCoordinates(ctx, fix.Lat, fix.Lon)
	}

	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, check)
}
