package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freesurfer/fspack/internal/ui/styles"
)

func newLocateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "locate [component...]",
		Short: "Find the compiled libraries for components",
		Long: `Find the compiled libraries for components.

Each component is searched recursively under the source root with the
pattern **/<component>.*<platform>*.so. Without arguments every configured
library is searched. A component with no match is an error.

Examples:
  fspack locate                          # All configured libraries
  fspack locate gems_python              # One component`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocate(cmd, opts, args)
		},
	}
}

func runLocate(cmd *cobra.Command, opts *options, components []string) error {
	p, err := opts.open(cmd)
	if err != nil {
		return err
	}

	located, err := p.Locate(components...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, loc := range located {
		fmt.Fprintf(out, "%s %s\n", styles.StatusOK, loc.Library.Name)
		for _, m := range loc.Matches {
			fmt.Fprintf(out, "  %s %s\n", m.Base, styles.MutedTextStyle.Render("("+m.Path+")"))
		}
	}
	return nil
}
