// Package commands implements the solarsense command line.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/server"
)

// ServeFunc runs the API server until ctx is cancelled
type ServeFunc func(ctx context.Context, cfg *config.Config) error

// CLI represents the command line interface
type CLI struct {
	serve   ServeFunc
	rootCmd *cobra.Command
}

// New creates a CLI. serve runs the server for the serve command.
func New(serve ServeFunc) *CLI {
	rootCmd := &cobra.Command{
		Use:           "solarsense",
		Short:         "Solar tracker backend and tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       server.Version,
	}
	rootCmd.SetVersionTemplate("{{.Name}} version {{.Version}}\n")

	c := &CLI{
		serve:   serve,
		rootCmd: rootCmd,
	}

	// Without a subcommand the binary serves
	serveCmd := c.newServeCmd()
	rootCmd.Args = cobra.NoArgs
	rootCmd.RunE = serveCmd.RunE
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(c.newPositionCmd())
	rootCmd.AddCommand(c.newProfileCmd())
	rootCmd.AddCommand(c.newManifestCmd())
	rootCmd.AddCommand(c.newCommandCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

func writeJSON(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
