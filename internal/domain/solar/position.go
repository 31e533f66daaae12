package solar

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// MinAngle and MaxAngle bound both servos
	MinAngle = 0
	MaxAngle = 180

	axialTilt = 23.45
)

var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Position is the sun's apparent position in degrees
type Position struct {
	Azimuth  float64 `json:"azimuth"`
	Altitude float64 `json:"altitude"`
}

func (p Position) String() string {
	return fmt.Sprintf("SolarPosition{azimuth=%.2f°, altitude=%.2f°}", p.Azimuth, p.Altitude)
}

// ServoAngles are the commanded angles for the base and panel servos
type ServoAngles struct {
	Base  int `json:"base"`
	Panel int `json:"panel"`
}

// ValidateCoordinates checks latitude and longitude ranges
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinates, lat, lon)
	}
	return nil
}

// Calculate returns the sun's position at lat/lon for t. Local clock time and
// the UTC offset are both taken from t's location.
func Calculate(lat, lon float64, t time.Time) Position {
	latRad := rad(lat)

	dayOfYear := float64(t.YearDay())
	hour := float64(t.Hour()) + float64(t.Minute())/60.0

	b := rad(360.0 / 365.0 * (dayOfYear - 81))
	declRad := rad(axialTilt * math.Sin(b))

	// The in-effect offset, summer time included, keeps the wall clock and
	// the offset consistent; a standard-only offset skews DST by an hour.
	_, offset := t.Zone()
	tzHours := float64(offset) / 3600.0

	eot := 9.87*math.Sin(2*b) - 7.53*math.Cos(b) - 1.5*math.Sin(b)
	correction := eot + 4*(lon-tzHours*15)
	solarTime := hour + correction/60.0

	hourAngle := rad(15 * (solarTime - 12))

	az := deg(math.Atan2(
		math.Sin(hourAngle),
		math.Cos(hourAngle)*math.Sin(latRad)-math.Tan(declRad)*math.Cos(latRad),
	))
	az = math.Mod(az+360, 360)
	az = 360 - az

	alt := deg(math.Asin(
		math.Sin(latRad)*math.Sin(declRad) +
			math.Cos(latRad)*math.Cos(declRad)*math.Cos(hourAngle),
	))

	return Position{Azimuth: az, Altitude: alt}
}

// ToServoAngles halves the azimuth onto the base servo and doubles the
// altitude onto the panel servo, clamped to the servo range.
func ToServoAngles(p Position) ServoAngles {
	return ServoAngles{
		Base:  Clamp(round(p.Azimuth / 2)),
		Panel: Clamp(round(p.Altitude * 2)),
	}
}

// IsDaylight reports whether the sun is above the horizon
func IsDaylight(p Position) bool {
	return p.Altitude > 0
}

// Describe renders a one-line human description of p
func Describe(p Position) string {
	if p.Altitude < 0 {
		return "Sun is below horizon (nighttime)"
	}
	return fmt.Sprintf("Sun is %.1f° above horizon in the %s", p.Altitude, CompassPoint(p.Azimuth))
}

var compassPoints = [...]string{
	"North", "Northeast", "East", "Southeast",
	"South", "Southwest", "West", "Northwest",
}

// CompassPoint names the 45° sector containing azimuth
func CompassPoint(azimuth float64) string {
	a := math.Mod(math.Mod(azimuth, 360)+360, 360)
	return compassPoints[int(math.Floor((a+22.5)/45))%8]
}

// Clamp limits angle to the servo range
func Clamp(angle int) int {
	return max(MinAngle, min(MaxAngle, angle))
}

// round is half-up rounding, so -0.5 rounds to 0 rather than -1.
func round(x float64) int {
	return int(math.Floor(x + 0.5))
}

func rad(d float64) float64 { return d * math.Pi / 180 }
func deg(r float64) float64 { return r * 180 / math.Pi }
