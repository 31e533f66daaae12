// Package weather interprets OpenWeatherMap current-conditions payloads and
// decides when conditions are bad enough to stow the panel.
package weather

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/bytedance/sonic"
)

// Condition is the simplified sky condition
type Condition string

const (
	Clear        Condition = "Clear"
	Clouds       Condition = "Clouds"
	Rain         Condition = "Rain"
	Snow         Condition = "Snow"
	Thunderstorm Condition = "Thunderstorm"
)

var ErrMalformed = errors.New("malformed weather payload")

// Data is the subset of current conditions the tracker uses
type Data struct {
	Place          string    `json:"place,omitempty"`
	Lat            float64   `json:"lat,omitempty"`
	Lon            float64   `json:"lon,omitempty"`
	Temperature    float64   `json:"temperature"`
	Humidity       int       `json:"humidity"`
	WindSpeed      float64   `json:"wind_speed"`
	WindDirection  float64   `json:"wind_direction"`
	Condition      Condition `json:"condition"`
	Description    string    `json:"description,omitempty"`
	Icon           string    `json:"icon"`
	RainAmount     float64   `json:"rain_1h"`
	SnowAmount     float64   `json:"snow_1h"`
	IsThunderstorm bool      `json:"thunderstorm"`
}

func (d Data) String() string {
	return fmt.Sprintf("WeatherData{temp=%.1f°C, humidity=%d%%, wind=%.1fm/s, condition='%s'}",
		d.Temperature, d.Humidity, d.WindSpeed, d.Condition)
}

type payload struct {
	Name  string `json:"name"`
	Coord *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Wind *struct {
		Speed *float64 `json:"speed"`
		Deg   *float64 `json:"deg"`
	} `json:"wind"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Rain map[string]float64 `json:"rain"`
	Snow map[string]float64 `json:"snow"`
}

// Parse decodes a current-conditions response. Temperature, humidity and
// wind speed are required; wind direction defaults to 0. When several
// conditions are listed the last one wins, but a thunderstorm anywhere in
// the list is remembered.
func Parse(body []byte) (Data, error) {
	var p payload
	if err := sonic.Unmarshal(body, &p); err != nil {
		return Data{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch {
	case p.Main == nil || p.Main.Temp == nil:
		return Data{}, fmt.Errorf("%w: missing main.temp", ErrMalformed)
	case p.Main.Humidity == nil:
		return Data{}, fmt.Errorf("%w: missing main.humidity", ErrMalformed)
	case p.Wind == nil || p.Wind.Speed == nil:
		return Data{}, fmt.Errorf("%w: missing wind.speed", ErrMalformed)
	case p.Weather == nil:
		return Data{}, fmt.Errorf("%w: missing weather", ErrMalformed)
	}

	d := Data{
		Place:       p.Name,
		Temperature: *p.Main.Temp,
		Humidity:    int(*p.Main.Humidity),
		WindSpeed:   *p.Wind.Speed,
		Condition:   Clear,
		Icon:        Icon(Clear),
		RainAmount:  p.Rain["1h"],
		SnowAmount:  p.Snow["1h"],
	}
	if p.Coord != nil {
		d.Lat, d.Lon = p.Coord.Lat, p.Coord.Lon
	}
	if p.Wind.Deg != nil {
		d.WindDirection = *p.Wind.Deg
	}

	for _, w := range p.Weather {
		d.Condition = ParseCondition(w.Main)
		d.Icon = Icon(d.Condition)
		d.Description = w.Description
		if d.Condition == Thunderstorm {
			d.IsThunderstorm = true
		}
	}

	return d, nil
}

// ParseCondition maps an OpenWeatherMap "main" group onto a Condition.
// Groups the tracker does not distinguish (Drizzle, Mist, Haze...) read as Clear.
func ParseCondition(main string) Condition {
	switch {
	case strings.EqualFold(main, string(Rain)):
		return Rain
	case strings.EqualFold(main, string(Snow)):
		return Snow
	case strings.EqualFold(main, string(Thunderstorm)):
		return Thunderstorm
	case strings.EqualFold(main, string(Clouds)):
		return Clouds
	default:
		return Clear
	}
}

// Icon returns the display glyph for c
func Icon(c Condition) string {
	switch c {
	case Rain:
		return "🌧️"
	case Snow:
		return "❄️"
	case Thunderstorm:
		return "⚡"
	case Clouds:
		return "☁️"
	default:
		return "☀️"
	}
}

var windLabels = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// WindDirectionLabel names the 8-point compass sector for a bearing
func WindDirectionLabel(deg float64) string {
	d := math.Mod(math.Mod(deg, 360)+360, 360)
	return windLabels[int(math.Floor(d/45+0.5))%8]
}

// Level is an alert severity
type Level string

const (
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// Alert is raised for precipitation and storms
type Alert struct {
	Level     Level     `json:"level"`
	Condition Condition `json:"condition"`
	Message   string    `json:"message"`
	// Stow asks the controller to lay the panel flat
	Stow bool `json:"stow"`
}

// Alerts returns the alerts for d, most severe first. A thunderstorm
// anywhere in the payload stows the panel even if a milder condition was
// listed last.
func Alerts(d Data) []Alert {
	var alerts []Alert
	if d.IsThunderstorm {
		alerts = append(alerts, Alert{
			Level:     LevelDanger,
			Condition: Thunderstorm,
			Message:   "DANGER: Setting panel to flat position",
			Stow:      true,
		})
	}
	switch d.Condition {
	case Rain, Snow, Thunderstorm:
		alerts = append(alerts, Alert{
			Level:     LevelWarning,
			Condition: d.Condition,
			Message:   fmt.Sprintf("⚠️ %s detected!", d.Condition),
		})
	}
	return alerts
}

// ShouldStow reports whether any alert asks for the panel to be stowed
func ShouldStow(alerts []Alert) bool {
	for _, a := range alerts {
		if a.Stow {
			return true
		}
	}
	return false
}

// Report renders d as the multi-line summary shown to operators
func Report(place string, d Data) string {
	mark := func(on bool, glyph string) string {
		if on {
			return glyph
		}
		return "  "
	}
	storm := "No"
	if d.IsThunderstorm {
		storm = "Yes"
	}
	return fmt.Sprintf("%s Weather in %s\n\n"+
		"🌡️ Temperature: %.1f°C\n"+
		"💧 Humidity: %d%%\n"+
		"🌬️ Wind: %.1f m/s %s\n"+
		"%s Rain: %.1f mm\n"+
		"%s Snow: %.1f mm\n"+
		"%s Thunderstorm: %s",
		d.Icon, place, d.Temperature, d.Humidity,
		d.WindSpeed, WindDirectionLabel(d.WindDirection),
		mark(d.RainAmount > 0, "🌧️"), d.RainAmount,
		mark(d.SnowAmount > 0, "❄️"), d.SnowAmount,
		mark(d.IsThunderstorm, "⚡"), storm)
}
