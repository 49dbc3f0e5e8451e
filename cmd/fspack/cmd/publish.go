package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	fserrors "github.com/freesurfer/fspack/internal/errors"
	"github.com/freesurfer/fspack/internal/logging"
	"github.com/freesurfer/fspack/internal/publish"
	"github.com/freesurfer/fspack/internal/ui/styles"
	"github.com/freesurfer/fspack/internal/version"
	"github.com/freesurfer/fspack/internal/wheel"
)

func newPublishCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "publish [wheel]",
		Short: "Upload a wheel to S3-compatible storage",
		Long: `Upload a wheel to S3-compatible storage.

The object key is <prefix>/<name>/<version>/<wheel file>. Without an
argument the wheel is built first. Storage settings come from the publish
section of fspack.yaml or from FSPACK_PUBLISH_* variables, which may be
kept in a .env file in the project directory.

Examples:
  fspack publish dist/freesurfer-0.0.1-cp38-cp38-linux_x86_64.whl
  fspack publish                # Build, then upload`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, opts, args)
		},
	}
}

func runPublish(cmd *cobra.Command, opts *options, args []string) error {
	p, err := opts.open(cmd)
	if err != nil {
		return err
	}

	var wheelPath string
	if len(args) == 1 {
		wheelPath = p.Path(args[0])
		if fi, err := os.Stat(wheelPath); err != nil || !fi.Mode().IsRegular() {
			return fserrors.WheelNotFound(wheelPath)
		}
	}

	// Validate storage settings before spending time on a build.
	store, err := publish.NewStore(p.Config.Publish)
	if err != nil {
		return err
	}

	if wheelPath == "" {
		info := version.NewInfo(Version, Commit, Date)
		_, res, err := p.Build(cmd.Context(), wheel.NewBuilder(info.Generator(), logging.Global()))
		if err != nil {
			return err
		}
		wheelPath = res.Path
	}

	key := publish.ObjectKey(p.Config.Publish.Prefix,
		p.Config.Distribution.Name,
		p.Config.Distribution.Version,
		wheelPath)
	logging.Info("uploading wheel", "path", wheelPath, "bucket", store.Bucket(), "key", key)

	obj, err := store.Upload(cmd.Context(), key, wheelPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", styles.StatusOK,
		styles.Field("uploaded", fmt.Sprintf("s3://%s/%s", obj.Bucket, obj.Key)))
	return nil
}
