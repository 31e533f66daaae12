package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/solar"
)

type coordinateFlags struct {
	lat, lon float64
	tz       string
	json     bool
}

func (f *coordinateFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "Latitude in degrees")
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "Longitude in degrees")
	cmd.Flags().StringVar(&f.tz, "tz", "", "IANA time zone, e.g. Europe/London (default local)")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print JSON")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
}

func (f *coordinateFlags) validate() (*time.Location, error) {
	if err := solar.ValidateCoordinates(f.lat, f.lon); err != nil {
		return nil, err
	}
	if f.tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(f.tz)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q", f.tz)
	}
	return loc, nil
}

func (c *CLI) newPositionCmd() *cobra.Command {
	var (
		coords coordinateFlags
		at     string
	)

	cmd := &cobra.Command{
		Use:   "position",
		Short: "Print the sun's position and servo angles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := coords.validate()
			if err != nil {
				return err
			}
			t := time.Now().In(loc)
			if at != "" {
				if t, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("--time must be RFC 3339: %w", err)
				}
				if coords.tz != "" {
					t = t.In(loc)
				}
			}

			pos := solar.Calculate(coords.lat, coords.lon, t)
			angles := solar.ToServoAngles(pos)
			out := cmd.OutOrStdout()

			if coords.json {
				return writeJSON(out, map[string]any{
					"time":     t,
					"position": pos,
					"angles":   angles,
					"daylight": solar.IsDaylight(pos),
				})
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Location:\t%.4f, %.4f\n", coords.lat, coords.lon)
			fmt.Fprintf(w, "Time:\t%s\n", t.Format(time.RFC3339))
			fmt.Fprintf(w, "Azimuth:\t%.2f° (%s)\n", pos.Azimuth, solar.CompassPoint(pos.Azimuth))
			fmt.Fprintf(w, "Altitude:\t%.2f°\n", pos.Altitude)
			fmt.Fprintf(w, "Servos:\tbase %d°, panel %d°\n", angles.Base, angles.Panel)
			fmt.Fprintf(w, "Sun:\t%s\n", solar.Describe(pos))
			return w.Flush()
		},
	}

	coords.register(cmd)
	cmd.Flags().StringVar(&at, "time", "", "Instant in RFC 3339 (default now)")
	return cmd
}

func (c *CLI) newProfileCmd() *cobra.Command {
	var (
		coords  coordinateFlags
		date    string
		step    time.Duration
		samples bool
	)

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Print the sun's path over one day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := coords.validate()
			if err != nil {
				return err
			}
			day := time.Now().In(loc)
			if date != "" {
				if day, err = time.ParseInLocation(time.DateOnly, date, loc); err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
			}

			p, err := solar.DailyProfile(coords.lat, coords.lon, day, step)
			if err != nil {
				return err
			}
			if coords.json {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			return printProfile(cmd.OutOrStdout(), p, samples)
		},
	}

	coords.register(cmd)
	cmd.Flags().StringVar(&date, "date", "", "Day as YYYY-MM-DD (default today)")
	cmd.Flags().DurationVar(&step, "step", solar.DefaultProfileStep, "Sampling interval")
	cmd.Flags().BoolVar(&samples, "samples", false, "List every sample")
	return cmd
}

func printProfile(out io.Writer, p *solar.Profile, samples bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Date:\t%s\n", p.Date)
	fmt.Fprintf(w, "Location:\t%.4f, %.4f\n", p.Latitude, p.Longitude)
	fmt.Fprintf(w, "Sunrise:\t%s\n", clock(p.Sunrise))
	fmt.Fprintf(w, "Sunset:\t%s\n", clock(p.Sunset))
	fmt.Fprintf(w, "Daylight:\t%s\n", p.Daylight.Round(time.Minute))
	fmt.Fprintf(w, "Peak:\t%.2f° at %s\n", p.PeakAltitude, p.PeakTime.Format("15:04"))

	if samples {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "TIME\tAZIMUTH\tALTITUDE\tBASE\tPANEL")
		for _, s := range p.Samples {
			fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%d\t%d\n",
				s.Time.Format("15:04"), s.Position.Azimuth, s.Position.Altitude, s.Angles.Base, s.Angles.Panel)
		}
	}
	return w.Flush()
}

func clock(t *time.Time) string {
	if t == nil {
		return "none"
	}
	return t.Format("15:04")
}
