package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freesurfer/fspack/internal/version"
)

func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Show detailed version information for fspack.

Displays the current version, commit hash, build date,
and Go/platform information.

Examples:
  fspack version           # Show detailed version info
  fspack version --short   # One line`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.NewInfo(Version, Commit, Date)
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), info.String())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), info.FullString())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print a single line")
	return cmd
}
