package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/solar"
	"github.com/gin-gonic/gin"
)

// PositionResponse is the sun's position for one place and instant
type PositionResponse struct {
	Latitude    float64           `json:"latitude"`
	Longitude   float64           `json:"longitude"`
	Time        time.Time         `json:"time"`
	Position    solar.Position    `json:"position"`
	Angles      solar.ServoAngles `json:"angles"`
	Daylight    bool              `json:"daylight"`
	Compass     string            `json:"compass"`
	Description string            `json:"description"`
}

// SolarPosition computes the sun's position. lat and lon are required;
// time is RFC 3339 and defaults to now, tz is an IANA zone name.
func (h *Handlers) SolarPosition(c *gin.Context) {
	lat, lon, ok := h.coordinates(c)
	if !ok {
		return
	}
	loc, ok := h.zone(c)
	if !ok {
		return
	}

	at := time.Now().In(loc)
	if raw := c.Query("time"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.invalid(c, "time must be RFC 3339, e.g. 2024-06-21T12:00:00+01:00")
			return
		}
		at = t
		if c.Query("tz") != "" {
			at = t.In(loc)
		}
	}

	pos := solar.Calculate(lat, lon, at)
	c.JSON(http.StatusOK, PositionResponse{
		Latitude:    lat,
		Longitude:   lon,
		Time:        at,
		Position:    pos,
		Angles:      solar.ToServoAngles(pos),
		Daylight:    solar.IsDaylight(pos),
		Compass:     solar.CompassPoint(pos.Azimuth),
		Description: solar.Describe(pos),
	})
}

// SolarProfile samples the sun across a day. date is YYYY-MM-DD and
// defaults to today, step is a Go duration such as 15m.
func (h *Handlers) SolarProfile(c *gin.Context) {
	lat, lon, ok := h.coordinates(c)
	if !ok {
		return
	}
	loc, ok := h.zone(c)
	if !ok {
		return
	}

	day := time.Now().In(loc)
	if raw := c.Query("date"); raw != "" {
		d, err := time.ParseInLocation(time.DateOnly, raw, loc)
		if err != nil {
			h.invalid(c, "date must be YYYY-MM-DD")
			return
		}
		day = d
	}

	var step time.Duration
	if raw := c.Query("step"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			h.invalid(c, "step must be a duration such as 15m")
			return
		}
		step = d
	}

	profile, err := solar.DailyProfile(lat, lon, day, step)
	if err != nil {
		h.invalid(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, profile)
}

// coordinates reads the lat and lon query parameters
func (h *Handlers) coordinates(c *gin.Context) (float64, float64, bool) {
	rawLat, rawLon := c.Query("lat"), c.Query("lon")
	if rawLat == "" || rawLon == "" {
		h.invalid(c, "lat and lon are required")
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		h.invalid(c, "lat must be a number")
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(rawLon, 64)
	if err != nil {
		h.invalid(c, "lon must be a number")
		return 0, 0, false
	}
	if err := solar.ValidateCoordinates(lat, lon); err != nil {
		h.fail(c, err)
		return 0, 0, false
	}
	return lat, lon, true
}

func (h *Handlers) zone(c *gin.Context) (*time.Location, bool) {
	name := c.Query("tz")
	if name == "" {
		return time.Local, true
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		h.invalid(c, "unknown time zone: "+name)
		return nil, false
	}
	return loc, true
}
