package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/command"
)

// newCommandCmd parses a voice command without executing it
func (c *CLI) newCommandCmd() *cobra.Command {
	var step int

	cmd := &cobra.Command{
		Use:     "command TEXT...",
		Short:   "Show how a voice command is understood",
		Example: `  solarsense command "set base to 120"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := command.NewParser(step).Parse(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if parsed.Action == command.ActionHelp {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), command.Help())
				return err
			}
			return writeJSON(cmd.OutOrStdout(), parsed)
		},
	}
	cmd.Flags().IntVar(&step, "step", command.DefaultStep, "Degrees per rotate or tilt")
	return cmd
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "solarsense version %s\n", cmd.Root().Version)
		},
	}
}
