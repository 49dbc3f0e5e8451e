// Package cmd provides the CLI commands for fspack.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/freesurfer/fspack/internal/config"
	fserrors "github.com/freesurfer/fspack/internal/errors"
	"github.com/freesurfer/fspack/internal/logging"
	"github.com/freesurfer/fspack/internal/project"
	"github.com/freesurfer/fspack/internal/ui/styles"
)

// Version information - set via ldflags at build time in main.go.
// These are exported so main.go can set them before Execute().
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// options holds the persistent flags shared by every command.
type options struct {
	dir        string
	configPath string
	verbose    bool
}

// NewRootCmd builds the command tree. Each call returns fresh commands, so
// tests can execute it repeatedly.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "fspack",
		Short: "Package the FreeSurfer python bindings as a binary wheel",
		Long: `fspack packages the FreeSurfer python tree into a platform wheel.

It reads the requirements manifest, locates the compiled gems_python and
algorithm_python libraries for the current platform, and writes a wheel
that ships them as package data. Packaging stops if a library is missing.

Running fspack without a subcommand is the same as "fspack build".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts)
		},
	}
	root.Version = fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
	root.SetVersionTemplate("fspack {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.dir, "dir", "C", ".", "Project directory")
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file (default: <dir>/fspack.yaml)")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")

	root.AddCommand(
		newBuildCmd(opts),
		newDescribeCmd(opts),
		newLocateCmd(opts),
		newRequirementsCmd(opts),
		newPublishCmd(opts),
		newInitCmd(opts),
		newVersionCmd(),
	)

	return root
}

// Execute runs the CLI and exits non-zero on any error.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	_ = logging.CloseGlobal()

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s", styles.StatusFailed, fserrors.FormatError(err))
		os.Exit(1)
	}
}

// open loads the project and starts logging as it configures.
func (o *options) open(cmd *cobra.Command) (*project.Project, error) {
	p, err := project.Open(o.dir, o.configPath)
	if err != nil {
		return nil, err
	}
	if err := o.initLogging(cmd, p); err != nil {
		return nil, err
	}
	logging.Debug("loaded configuration",
		"dir", p.Dir,
		"root", p.SourceRoot(),
		"platform", p.Locator().Platform)
	return p, nil
}

func (o *options) initLogging(cmd *cobra.Command, p *project.Project) error {
	level, err := logging.ParseLevel(p.Config.Log.Level)
	if err != nil {
		return fserrors.ConfigValidationError("log.level", err.Error(), config.LogLevels)
	}
	if o.verbose {
		level = logging.LevelDebug
	}

	lc := logging.DefaultConfig()
	lc.Level = level
	lc.LogDir = p.LogDir()
	lc.JSONFormat = p.Config.Log.JSON
	lc.Console = cmd.ErrOrStderr()

	_ = logging.CloseGlobal()
	return logging.InitGlobal(lc)
}
