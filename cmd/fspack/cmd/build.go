package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freesurfer/fspack/internal/logging"
	"github.com/freesurfer/fspack/internal/ui/styles"
	"github.com/freesurfer/fspack/internal/version"
	"github.com/freesurfer/fspack/internal/wheel"
)

func newBuildCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the binary wheel",
		Long: `Build the binary wheel for the project.

The requirements manifest is read first (lines starting with # are
dropped), then every configured library is located under the source root.
If any library has no match the build stops before anything is written.

Examples:
  fspack build                 # Build in the current directory
  fspack build -C python/      # Build another project directory
  SOURCE_DATE_EPOCH=0 fspack   # Reproducible entry timestamps`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts)
		},
	}
}

func runBuild(cmd *cobra.Command, opts *options) error {
	p, err := opts.open(cmd)
	if err != nil {
		return err
	}

	info := version.NewInfo(Version, Commit, Date)
	builder := wheel.NewBuilder(info.Generator(), logging.Global())

	plan, res, err := p.Build(cmd.Context(), builder)
	if err != nil {
		return err
	}

	for _, lib := range plan.TagConflicts {
		logging.Warn("library was built for a different interpreter or platform",
			"library", lib,
			"wheel_tag", plan.Tag.String())
	}

	out := cmd.OutOrStdout()
	for _, loc := range plan.Libraries {
		for _, m := range loc.Matches {
			fmt.Fprintf(out, "%s %s %s\n", styles.StatusOK, loc.Library.Name, styles.MutedTextStyle.Render(m.Path))
		}
	}
	fmt.Fprintf(out, "%s %s\n", styles.StatusOK, styles.Field("wheel", res.Path))
	return nil
}
