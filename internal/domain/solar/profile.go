package solar

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	MinProfileStep     = time.Minute
	MaxProfileStep     = 3 * time.Hour
	DefaultProfileStep = 15 * time.Minute
)

// Sample is the sun's position at one instant of a profile
type Sample struct {
	Time     time.Time   `json:"time"`
	Position Position    `json:"position"`
	Angles   ServoAngles `json:"angles"`
}

// Profile summarizes the sun's path over one local day
type Profile struct {
	Date            string        `json:"date"`
	Latitude        float64       `json:"latitude"`
	Longitude       float64       `json:"longitude"`
	Step            time.Duration `json:"step"`
	Samples         []Sample      `json:"samples"`
	Sunrise         *time.Time    `json:"sunrise,omitempty"`
	Sunset          *time.Time    `json:"sunset,omitempty"`
	Daylight        time.Duration `json:"daylight"`
	PeakAltitude    float64       `json:"peak_altitude"`
	PeakTime        time.Time     `json:"peak_time"`
	MeanDayAltitude float64       `json:"mean_day_altitude"`
}

// DailyProfile samples the sun's position every step across the local day
// containing day. Sunrise and sunset are interpolated between the samples
// that straddle the horizon; either is nil on polar days and nights.
func DailyProfile(lat, lon float64, day time.Time, step time.Duration) (*Profile, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	if step == 0 {
		step = DefaultProfileStep
	}
	if step < MinProfileStep || step > MaxProfileStep {
		return nil, fmt.Errorf("step must be between %s and %s", MinProfileStep, MaxProfileStep)
	}

	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	stepMin := step.Minutes()
	n := int(math.Floor(24*60/stepMin)) + 1
	offsets := floats.Span(make([]float64, n), 0, float64(n-1)*stepMin)

	p := &Profile{
		Date:      midnight.Format(time.DateOnly),
		Latitude:  lat,
		Longitude: lon,
		Step:      step,
		Samples:   make([]Sample, n),
	}

	altitudes := make([]float64, n)
	var daylight []float64
	for i, off := range offsets {
		t := midnight.Add(time.Duration(off * float64(time.Minute)))
		pos := Calculate(lat, lon, t)
		p.Samples[i] = Sample{Time: t, Position: pos, Angles: ToServoAngles(pos)}
		altitudes[i] = pos.Altitude
		if IsDaylight(pos) {
			daylight = append(daylight, pos.Altitude)
		}
	}

	peak := floats.MaxIdx(altitudes)
	p.PeakAltitude = altitudes[peak]
	p.PeakTime = p.Samples[peak].Time
	if len(daylight) > 0 {
		p.MeanDayAltitude = stat.Mean(daylight, nil)
	}

	for i := 1; i < n; i++ {
		prev, cur := altitudes[i-1], altitudes[i]
		switch {
		case prev <= 0 && cur > 0 && p.Sunrise == nil:
			t := crossing(p.Samples[i-1].Time, p.Samples[i].Time, prev, cur)
			p.Sunrise = &t
		case prev > 0 && cur <= 0:
			t := crossing(p.Samples[i-1].Time, p.Samples[i].Time, prev, cur)
			p.Sunset = &t
		}
	}

	switch {
	case p.Sunrise != nil && p.Sunset != nil && p.Sunset.After(*p.Sunrise):
		p.Daylight = p.Sunset.Sub(*p.Sunrise)
	case p.Sunrise == nil && p.Sunset == nil && altitudes[0] > 0:
		p.Daylight = 24 * time.Hour
	default:
		p.Daylight = time.Duration(len(daylight)) * step
	}

	return p, nil
}

// crossing linearly interpolates the time altitude passes zero between two samples
func crossing(t0, t1 time.Time, a0, a1 float64) time.Time {
	frac := a0 / (a0 - a1)
	return t0.Add(time.Duration(frac * float64(t1.Sub(t0))))
}
