package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/config"
)

type serveOptions struct {
	port string
	host string
	esp  string
	dev  bool
}

func (c *CLI) newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tracker API server",
		Long: `Run the tracker API server.

Settings come from the environment (PORT, ESP_URL, WEATHER_API_KEY, ...).
Flags override the matching variable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}
			return c.serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&opts.port, "port", "", "Server port (overrides PORT)")
	cmd.Flags().StringVar(&opts.host, "host", "", "Listen host (overrides HOST)")
	cmd.Flags().StringVar(&opts.esp, "esp", "", "Tracker board URL (overrides ESP_URL)")
	cmd.Flags().BoolVar(&opts.dev, "dev", false, "Development logging")

	return cmd
}

// apply copies explicitly set flags onto cfg and revalidates it
func (o serveOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = o.port
	}
	if flags.Changed("host") {
		cfg.Server.Host = o.host
	}
	if flags.Changed("esp") {
		cfg.Device.URL = o.esp
	}
	if flags.Changed("dev") {
		cfg.Logging.Development = o.dev
		if o.dev {
			cfg.Logging.Level = "debug"
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	return nil
}
