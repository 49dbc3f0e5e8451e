package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/freesurfer/fspack/internal/config"
	fserrors "github.com/freesurfer/fspack/internal/errors"
	"github.com/freesurfer/fspack/internal/project"
	"github.com/freesurfer/fspack/internal/ui/styles"
)

const configHeader = `# fspack configuration.
# Every value can be overridden with an FSPACK_* environment variable,
# e.g. FSPACK_DISTRIBUTION_VERSION=7.4.1 or FSPACK_SOURCE_PLATFORM=linux.
`

func newInitCmd(opts *options) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default fspack.yaml",
		Long: `Write a default fspack.yaml to the project directory.

The file contains the built-in FreeSurfer settings: the distribution
metadata, the packages, and the gems_python and algorithm_python libraries.
Use --force to overwrite an existing file.

Examples:
  fspack init          # Create fspack.yaml
  fspack init --force  # Overwrite it`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts, force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")
	return cmd
}

func runInit(cmd *cobra.Command, opts *options, force bool) error {
	p, err := project.New(opts.dir, config.NewConfig())
	if err != nil {
		return err
	}

	path := p.Path(config.DefaultConfigPath)
	if opts.configPath != "" {
		path = p.Path(opts.configPath)
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fserrors.ConfigExists(path)
	}

	data, err := defaultConfigYAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fserrors.Wrap(err, fserrors.ErrConfig, "failed to write configuration").
			WithDetails("path", path)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", styles.StatusOK, styles.Field("created", path))
	return nil
}

func defaultConfigYAML() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(configHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(config.NewConfig()); err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
