// Package dist describes the distribution being packaged: its metadata,
// its packages and the native libraries it ships.
//
// The distribution always contains compiled extension modules, so it is
// never pure and can only be installed on the platform it was built for.
package dist

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/freesurfer/fspack/internal/config"
	"github.com/freesurfer/fspack/internal/requirements"
)

// MetadataVersion is the core metadata version written to METADATA.
const MetadataVersion = "2.1"

// Distribution is the metadata bundle handed to the wheel writer.
type Distribution struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description" yaml:"description"`
	Author      string `json:"author" yaml:"author"`
	AuthorEmail string `json:"author_email" yaml:"author_email"`
	URL         string `json:"url" yaml:"url"`
	// Packages are dotted package names.
	Packages []string `json:"packages" yaml:"packages"`
	// PackageData maps a package to the basenames of the files it ships.
	PackageData map[string][]string `json:"package_data" yaml:"package_data"`
	// InstallRequires are the manifest entries, comments removed.
	InstallRequires    []string `json:"install_requires" yaml:"install_requires"`
	IncludePackageData bool     `json:"include_package_data" yaml:"include_package_data"`
}

// New builds a Distribution from configuration, the parsed requirements,
// the discovered package names and the located package data.
func New(cfg *config.DistributionConfig, reqs, packages []string, packageData map[string][]string) *Distribution {
	if packageData == nil {
		packageData = map[string][]string{}
	}
	return &Distribution{
		Name:               cfg.Name,
		Version:            cfg.Version,
		Description:        cfg.Description,
		Author:             cfg.Author,
		AuthorEmail:        cfg.AuthorEmail,
		URL:                cfg.URL,
		Packages:           packages,
		PackageData:        packageData,
		InstallRequires:    reqs,
		IncludePackageData: cfg.IncludePackageData,
	}
}

// IsPure reports whether the distribution is platform independent.
func (d *Distribution) IsPure() bool {
	return false
}

// HasExtModules reports whether the distribution contains compiled extensions.
func (d *Distribution) HasExtModules() bool {
	return true
}

// Validate checks the fields a wheel cannot be written without.
func (d *Distribution) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("distribution name is required")
	}
	if strings.TrimSpace(d.Version) == "" {
		return fmt.Errorf("distribution version is required")
	}
	if len(d.Packages) == 0 {
		return fmt.Errorf("distribution %s has no packages", d.Name)
	}

	known := make(map[string]bool, len(d.Packages))
	for _, p := range d.Packages {
		known[p] = true
	}
	for pkg := range d.PackageData {
		if !known[pkg] {
			return fmt.Errorf("package data for %s, which is not part of the distribution", pkg)
		}
	}
	return nil
}

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9.]+`)

// EscapedName is the name as used in wheel and dist-info file names.
func (d *Distribution) EscapedName() string {
	return nonAlnum.ReplaceAllString(d.Name, "_")
}

// EscapedVersion is the version as used in file names.
func (d *Distribution) EscapedVersion() string {
	return strings.ReplaceAll(d.Version, "-", "_")
}

// DistInfoDir is the metadata directory inside the wheel.
func (d *Distribution) DistInfoDir() string {
	return fmt.Sprintf("%s-%s.dist-info", d.EscapedName(), d.EscapedVersion())
}

// Requires returns the requirement specifiers in manifest order.
func (d *Distribution) Requires() []string {
	return requirements.Specifiers(d.InstallRequires)
}

// Metadata renders the METADATA file.
func (d *Distribution) Metadata() []byte {
	var b bytes.Buffer

	header := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", key, value)
		}
	}

	header("Metadata-Version", MetadataVersion)
	header("Name", d.Name)
	header("Version", d.Version)
	header("Summary", d.Description)
	header("Home-page", d.URL)
	header("Author", d.Author)
	header("Author-email", d.AuthorEmail)
	for _, r := range d.Requires() {
		header("Requires-Dist", r)
	}
	return b.Bytes()
}

// TopLevel returns the sorted unique top-level package names.
func (d *Distribution) TopLevel() []string {
	seen := make(map[string]bool)
	var top []string
	for _, p := range d.Packages {
		name := strings.SplitN(p, ".", 2)[0]
		if !seen[name] {
			seen[name] = true
			top = append(top, name)
		}
	}
	sort.Strings(top)
	return top
}

// Description is the summary printed by `fspack describe`.
type Description struct {
	Distribution `yaml:",inline"`
	Pure         bool `json:"pure" yaml:"pure"`
	ExtModules   bool `json:"ext_modules" yaml:"ext_modules"`
}

// Describe returns the printable description of d.
func (d *Distribution) Describe() Description {
	return Description{
		Distribution: *d,
		Pure:         d.IsPure(),
		ExtModules:   d.HasExtModules(),
	}
}
