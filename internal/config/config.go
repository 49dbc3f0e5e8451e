// Package config provides configuration data structures for fspack.
package config

import (
	"fmt"
	"path"
	"strings"
)

// Config represents the complete fspack configuration loaded from fspack.yaml.
type Config struct {
	Distribution DistributionConfig `yaml:"distribution" json:"distribution" mapstructure:"distribution"`
	Libraries    []Library          `yaml:"libraries"    json:"libraries"    mapstructure:"libraries"`
	Source       SourceConfig       `yaml:"source"       json:"source"       mapstructure:"source"`
	Wheel        WheelConfig        `yaml:"wheel"        json:"wheel"        mapstructure:"wheel"`
	Publish      PublishConfig      `yaml:"publish"      json:"publish"      mapstructure:"publish"`
	Log          LogConfig          `yaml:"log"          json:"log"          mapstructure:"log"`
}

// DistributionConfig holds the metadata of the produced distribution.
type DistributionConfig struct {
	Name        string `yaml:"name" json:"name" mapstructure:"name"`
	Version     string `yaml:"version" json:"version" mapstructure:"version"`
	Description string `yaml:"description" json:"description" mapstructure:"description"`
	Author      string `yaml:"author" json:"author" mapstructure:"author"`
	AuthorEmail string `yaml:"author_email" json:"author_email" mapstructure:"author_email"`
	URL         string `yaml:"url" json:"url" mapstructure:"url"`
	// Packages are the Python packages to include. Shell-style patterns are allowed.
	Packages []string `yaml:"packages" json:"packages" mapstructure:"packages"`
	// RequirementsFile is the dependency manifest, relative to the project dir.
	RequirementsFile string `yaml:"requirements_file" json:"requirements_file" mapstructure:"requirements_file"`
	// IncludePackageData is recorded in the distribution description
	// (default: true). The located libraries are shipped either way; the
	// flag only governs files outside package_data, which fspack does not
	// collect.
	IncludePackageData bool `yaml:"include_package_data" json:"include_package_data" mapstructure:"include_package_data"`
}

// Library names a compiled extension and the package that ships it.
type Library struct {
	// Name is the component name, the part of the filename before the first dot.
	Name string `yaml:"name" json:"name" mapstructure:"name"`
	// Package is the dotted package the library is installed into.
	Package string `yaml:"package" json:"package" mapstructure:"package"`
}

// SourceConfig configures where packages and libraries are discovered.
type SourceConfig struct {
	// Root is the tree searched for packages and libraries, relative to the project dir.
	Root string `yaml:"root" json:"root" mapstructure:"root"`
	// Platform overrides the host OS name used in the library pattern.
	Platform string `yaml:"platform" json:"platform" mapstructure:"platform"`
}

// WheelConfig configures the produced archive.
type WheelConfig struct {
	// OutputDir receives the wheel, relative to the project dir (default: dist).
	OutputDir string `yaml:"output_dir" json:"output_dir" mapstructure:"output_dir"`
	// PythonTag, ABITag and PlatformTag override the tags derived from the libraries.
	PythonTag   string `yaml:"python_tag" json:"python_tag" mapstructure:"python_tag"`
	ABITag      string `yaml:"abi_tag" json:"abi_tag" mapstructure:"abi_tag"`
	PlatformTag string `yaml:"platform_tag" json:"platform_tag" mapstructure:"platform_tag"`
}

// PublishConfig configures upload to S3-compatible storage.
type PublishConfig struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint" mapstructure:"endpoint"`
	Region    string `yaml:"region" json:"region" mapstructure:"region"`
	Bucket    string `yaml:"bucket" json:"bucket" mapstructure:"bucket"`
	Prefix    string `yaml:"prefix" json:"prefix" mapstructure:"prefix"`
	AccessKey string `yaml:"access_key,omitempty" json:"-" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key,omitempty" json:"-" mapstructure:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl" json:"use_ssl" mapstructure:"use_ssl"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default: info).
	Level string `yaml:"level" json:"level" mapstructure:"level"`
	// Dir enables file logging when non-empty.
	Dir string `yaml:"dir" json:"dir" mapstructure:"dir"`
	// JSON switches to JSON log records.
	JSON bool `yaml:"json" json:"json" mapstructure:"json"`
}

// Default values.
const (
	DefaultName             = "freesurfer"
	DefaultVersion          = "0.0.1"
	DefaultDescription      = "Python package for FreeSurfer neuroimaging software"
	DefaultAuthor           = "Laboratory for Computational Neuroimaging"
	DefaultAuthorEmail      = "freesurfer@nmr.mgh.harvard.edu"
	DefaultURL              = "https://github.com/freesurfer/freesurfer"
	DefaultRequirementsFile = "requirements.txt"
	DefaultSourceRoot       = "."
	DefaultOutputDir        = "dist"
	DefaultRegion           = "us-east-1"
	DefaultLogLevel         = "info"
)

// DefaultPackages are the FreeSurfer Python packages.
var DefaultPackages = []string{
	"freesurfer",
	"freesurfer.algorithm",
	"freesurfer.gems",
	"freesurfer.samseg",
}

// DefaultLibraries are the pybind-wrapped libraries shipped as package data.
var DefaultLibraries = []Library{
	{Name: "gems_python", Package: "freesurfer.gems"},
	{Name: "algorithm_python", Package: "freesurfer.algorithm"},
}

// NewConfig returns a new Config with default values applied.
func NewConfig() *Config {
	return &Config{
		Distribution: DistributionConfig{
			Name:               DefaultName,
			Version:            DefaultVersion,
			Description:        DefaultDescription,
			Author:             DefaultAuthor,
			AuthorEmail:        DefaultAuthorEmail,
			URL:                DefaultURL,
			Packages:           append([]string(nil), DefaultPackages...),
			RequirementsFile:   DefaultRequirementsFile,
			IncludePackageData: true,
		},
		Libraries: append([]Library(nil), DefaultLibraries...),
		Source: SourceConfig{
			Root: DefaultSourceRoot,
		},
		Wheel: WheelConfig{
			OutputDir: DefaultOutputDir,
		},
		Publish: PublishConfig{
			Region: DefaultRegion,
			UseSSL: true,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// ApplyDefaults fills in any unset fields after loading from file.
func (c *Config) ApplyDefaults() {
	defaults := NewConfig()

	if c.Distribution.Name == "" {
		c.Distribution.Name = defaults.Distribution.Name
	}
	if c.Distribution.Version == "" {
		c.Distribution.Version = defaults.Distribution.Version
	}
	if c.Distribution.RequirementsFile == "" {
		c.Distribution.RequirementsFile = defaults.Distribution.RequirementsFile
	}
	if c.Distribution.Packages == nil {
		c.Distribution.Packages = defaults.Distribution.Packages
	}
	if c.Libraries == nil {
		c.Libraries = defaults.Libraries
	}
	if c.Source.Root == "" {
		c.Source.Root = defaults.Source.Root
	}
	c.Source.Platform = strings.ToLower(c.Source.Platform)
	if c.Wheel.OutputDir == "" {
		c.Wheel.OutputDir = defaults.Wheel.OutputDir
	}
	if c.Publish.Region == "" {
		c.Publish.Region = defaults.Publish.Region
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := "multiple validation errors:"
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// LogLevels are the accepted values of log.level.
var LogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(c.Distribution.Name) == "" {
		errs = append(errs, &ValidationError{Field: "distribution.name", Message: "is required"})
	}
	if strings.TrimSpace(c.Distribution.Version) == "" {
		errs = append(errs, &ValidationError{Field: "distribution.version", Message: "is required"})
	}
	if strings.ContainsAny(c.Distribution.Version, " -/") {
		errs = append(errs, &ValidationError{Field: "distribution.version", Message: "must not contain spaces, '-' or '/'"})
	}

	for i, pattern := range c.Distribution.Packages {
		if _, err := path.Match(pattern, ""); err != nil {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("distribution.packages[%d]", i),
				Message: "invalid pattern " + pattern,
			})
		}
	}

	seen := make(map[string]bool, len(c.Libraries))
	for i, lib := range c.Libraries {
		if err := validateLibrary(lib, i, c.Distribution.Packages); err != nil {
			errs = append(errs, err)
		}
		if seen[lib.Name] {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("libraries[%d].name", i),
				Message: "duplicate library " + lib.Name,
			})
		}
		seen[lib.Name] = true
	}

	if !containsString(LogLevels, strings.ToLower(c.Log.Level)) {
		errs = append(errs, &ValidationError{
			Field:   "log.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateLibrary(lib Library, index int, packages []string) *ValidationError {
	field := fmt.Sprintf("libraries[%d]", index)

	if strings.TrimSpace(lib.Name) == "" {
		return &ValidationError{Field: field + ".name", Message: "is required"}
	}
	if strings.ContainsAny(lib.Name, `*?[]{}\/`) {
		return &ValidationError{Field: field + ".name", Message: "must be a plain component name"}
	}
	if lib.Package == "" {
		return &ValidationError{Field: field + ".package", Message: "is required"}
	}
	if !PackageSelected(packages, lib.Package) {
		return &ValidationError{
			Field:   field + ".package",
			Message: lib.Package + " is not listed in distribution.packages",
		}
	}
	return nil
}

// PackageSelected reports whether the dotted package name matches any of
// the include patterns.
func PackageSelected(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
