package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freesurfer/fspack/internal/logging"
	"github.com/freesurfer/fspack/internal/requirements"
)

func newRequirementsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "requirements",
		Short: "Print the install requirements",
		Long: `Print the install requirements read from the manifest, one per line.

Lines starting with # are comments and are not printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequirements(cmd, opts)
		},
	}
}

func runRequirements(cmd *cobra.Command, opts *options) error {
	p, err := opts.open(cmd)
	if err != nil {
		return err
	}

	reqs, err := p.Requirements()
	if err != nil {
		return err
	}
	logging.Debug("read requirements", "path", p.RequirementsPath(), "entries", len(reqs))

	out := cmd.OutOrStdout()
	for _, r := range requirements.Specifiers(reqs) {
		fmt.Fprintln(out, r)
	}
	return nil
}
