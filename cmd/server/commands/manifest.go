package commands

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/manifest"
)

type manifestFlags struct {
	file    string
	catalog string
}

func (f *manifestFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.file, "file", "", "Manifest file (.toml, .yaml or .json; default built-in)")
	cmd.PersistentFlags().StringVar(&f.catalog, "catalog", "", "Version catalog used to resolve aliases")
}

func (f *manifestFlags) load(warn io.Writer) (*manifest.Manifest, error) {
	m := manifest.Default()
	if f.file != "" {
		var err error
		if m, err = manifest.Load(f.file); err != nil {
			return nil, err
		}
	}
	if f.catalog == "" {
		return m, nil
	}

	catalog, err := manifest.LoadCatalog(f.catalog)
	if err != nil {
		return nil, err
	}
	resolved, missing := m.Resolve(catalog)
	for _, ref := range missing {
		fmt.Fprintf(warn, "warning: %s not in catalog\n", ref)
	}
	return resolved, nil
}

func (c *CLI) newManifestCmd() *cobra.Command {
	var (
		flags  manifestFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Print the app build manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := flags.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			f, err := manifest.ParseFormat(format)
			if err != nil {
				return err
			}
			data, err := manifest.Encode(m, f)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", string(manifest.FormatYAML), "Output format: toml, yaml or json")

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the manifest and report problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := flags.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			report, err := manifest.Inspect(m)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	})

	return cmd
}

var errManifestInvalid = errors.New("manifest has problems")

func printReport(out io.Writer, r *manifest.Report) error {
	fmt.Fprintf(out, "%s %s (%d dependencies)\n", r.Manifest.Identity.ApplicationID, r.Manifest.Identity.VersionName, len(r.Manifest.Dependencies))
	fmt.Fprintf(out, "fingerprint %s\n", r.Fingerprint)

	for _, issue := range r.Issues {
		fmt.Fprintf(out, "error: %s\n", issue)
	}
	for _, d := range r.Duplicates {
		fmt.Fprintf(out, "warning: %s declared %d times", d.Module, len(d.Declarations))
		if d.Conflict {
			fmt.Fprintf(out, " with versions %s", strings.Join(d.Versions, ", "))
		}
		fmt.Fprintln(out)
	}
	for _, capability := range slices.Sorted(maps.Keys(r.Redundant)) {
		fmt.Fprintf(out, "warning: %s provided by %s\n", capability, strings.Join(r.Redundant[capability], ", "))
	}
	for _, ref := range r.Unresolved {
		fmt.Fprintf(out, "warning: unresolved %s\n", ref)
	}

	if !r.Valid {
		return fmt.Errorf("%w: %d issues", errManifestInvalid, len(r.Issues))
	}
	fmt.Fprintln(out, "ok")
	return nil
}
