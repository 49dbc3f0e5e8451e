// Package config provides configuration loading and management for fspack.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigPath is the config file name relative to the project dir.
	DefaultConfigPath = "fspack.yaml"

	// EnvFile holds optional credentials loaded before the environment is read.
	EnvFile = ".env"

	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "FSPACK"
)

// Loader handles loading configuration from files and environment.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader with every known key
// registered, so FSPACK_* variables are honored even when the file omits them.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	registerDefaults(v, NewConfig())

	return &Loader{v: v}
}

func registerDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("distribution.name", d.Distribution.Name)
	v.SetDefault("distribution.version", d.Distribution.Version)
	v.SetDefault("distribution.description", d.Distribution.Description)
	v.SetDefault("distribution.author", d.Distribution.Author)
	v.SetDefault("distribution.author_email", d.Distribution.AuthorEmail)
	v.SetDefault("distribution.url", d.Distribution.URL)
	v.SetDefault("distribution.packages", d.Distribution.Packages)
	v.SetDefault("distribution.requirements_file", d.Distribution.RequirementsFile)
	v.SetDefault("distribution.include_package_data", d.Distribution.IncludePackageData)

	v.SetDefault("libraries", d.Libraries)

	v.SetDefault("source.root", d.Source.Root)
	v.SetDefault("source.platform", d.Source.Platform)

	v.SetDefault("wheel.output_dir", d.Wheel.OutputDir)
	v.SetDefault("wheel.python_tag", d.Wheel.PythonTag)
	v.SetDefault("wheel.abi_tag", d.Wheel.ABITag)
	v.SetDefault("wheel.platform_tag", d.Wheel.PlatformTag)

	v.SetDefault("publish.endpoint", d.Publish.Endpoint)
	v.SetDefault("publish.region", d.Publish.Region)
	v.SetDefault("publish.bucket", d.Publish.Bucket)
	v.SetDefault("publish.prefix", d.Publish.Prefix)
	v.SetDefault("publish.access_key", d.Publish.AccessKey)
	v.SetDefault("publish.secret_key", d.Publish.SecretKey)
	v.SetDefault("publish.use_ssl", d.Publish.UseSSL)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.dir", d.Log.Dir)
	v.SetDefault("log.json", d.Log.JSON)
}

// LoadConfig loads configuration from the specified path, merges environment
// variables, applies defaults and validates the result.
// If path is empty, it uses DefaultConfigPath relative to the working directory.
func (l *Loader) LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &LoadError{
			Path:    path,
			Message: "config file not found",
			Err:     err,
		}
	}

	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return nil, &LoadError{
			Path:    path,
			Message: "failed to read config file",
			Err:     err,
		}
	}

	return l.decode(path)
}

// LoadConfigFromDir loads fspack.yaml from dir. A missing file is not an
// error: the built-in defaults, with environment overrides, are returned.
// A .env file in dir is loaded into the process environment first.
func (l *Loader) LoadConfigFromDir(dir string) (*Config, error) {
	if err := loadEnvFile(filepath.Join(dir, EnvFile)); err != nil {
		return nil, &LoadError{
			Path:    filepath.Join(dir, EnvFile),
			Message: "failed to read env file",
			Err:     err,
		}
	}

	path := filepath.Join(dir, DefaultConfigPath)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return l.decode(path)
	}
	return l.LoadConfig(path)
}

func (l *Loader) decode(path string) (*Config, error) {
	cfg := &Config{}
	if err := l.v.Unmarshal(cfg, viperDecodeHook); err != nil {
		return nil, &LoadError{
			Path:    path,
			Message: "failed to parse config file",
			Err:     err,
		}
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, &LoadError{
			Path:    path,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	return cfg, nil
}

// loadEnvFile loads KEY=VALUE pairs without overriding variables that are
// already set. A missing file is ignored.
func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// viperDecodeHook decodes comma-separated env values into string slices,
// e.g. FSPACK_DISTRIBUTION_PACKAGES=freesurfer,freesurfer.gems.
func viperDecodeHook(dc *mapstructure.DecoderConfig) {
	dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
	)
}

// LoadError represents an error that occurred while loading configuration.
type LoadError struct {
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load is a convenience function that creates a new Loader and loads configuration.
// If path is empty, it uses DefaultConfigPath.
func Load(path string) (*Config, error) {
	return NewLoader().LoadConfig(path)
}

// LoadFromDir is a convenience function that loads configuration from a directory.
func LoadFromDir(dir string) (*Config, error) {
	return NewLoader().LoadConfigFromDir(dir)
}

// IsParseError reports whether err was caused by a malformed config file.
func IsParseError(err error) bool {
	var pe viper.ConfigParseError
	return errors.As(err, &pe)
}
