package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/freesurfer/fspack/internal/dist"
	fserrors "github.com/freesurfer/fspack/internal/errors"
	"github.com/freesurfer/fspack/internal/wheel"
)

// Output formats accepted by --format.
const (
	formatYAML = "yaml"
	formatJSON = "json"
)

// description is what describe prints: the distribution plus the wheel
// it would produce.
type description struct {
	dist.Description `yaml:",inline"`
	Wheel            string    `json:"wheel" yaml:"wheel"`
	Tag              wheel.Tag `json:"tag" yaml:"tag"`
}

func newDescribeCmd(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Show the distribution that would be built",
		Long: `Show the distribution that would be built, without writing it.

The output lists the metadata, the packages, the located libraries as
package data and the install requirements. The distribution is always
reported as not pure since it ships compiled extensions.

Examples:
  fspack describe                  # YAML
  fspack describe --format json    # JSON`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(cmd, opts, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", formatYAML, "Output format (yaml, json)")
	return cmd
}

func runDescribe(cmd *cobra.Command, opts *options, format string) error {
	if format != formatYAML && format != formatJSON {
		return fserrors.WithSuggestion(fserrors.ErrConfig,
			fmt.Sprintf("unknown output format %q", format),
			"Use --format yaml or --format json.")
	}

	p, err := opts.open(cmd)
	if err != nil {
		return err
	}
	plan, err := p.Prepare()
	if err != nil {
		return err
	}

	desc := description{
		Description: plan.Dist.Describe(),
		Wheel:       wheel.Filename(plan.Dist, plan.Tag),
		Tag:         plan.Tag,
	}
	return writeDescription(cmd.OutOrStdout(), format, desc)
}

func writeDescription(w io.Writer, format string, desc description) error {
	if format == formatJSON {
		data, err := json.MarshalIndent(desc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode description: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(desc); err != nil {
		return fmt.Errorf("failed to encode description: %w", err)
	}
	return enc.Close()
}
