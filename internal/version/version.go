// Package version provides build version information for fspack.
package version

import (
	"fmt"
	"runtime"
)

// Name is the program name used in version output and wheel metadata.
const Name = "fspack"

// Info contains version information about fspack.
type Info struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
	GoVer   string `json:"go_version" yaml:"go_version"`
	OS      string `json:"os" yaml:"os"`
	Arch    string `json:"arch" yaml:"arch"`
}

// NewInfo creates a new Info from the build variables.
func NewInfo(version, commit, date string) *Info {
	return &Info{
		Version: version,
		Commit:  commit,
		Date:    date,
		GoVer:   runtime.Version(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
}

// String returns a formatted version string.
func (i *Info) String() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s)", Name, i.Version, i.Commit, i.Date)
}

// FullString returns a detailed version string.
func (i *Info) FullString() string {
	return fmt.Sprintf(`%s %s
  Commit:   %s
  Built:    %s
  Go:       %s
  OS/Arch:  %s/%s`, Name, i.Version, i.Commit, i.Date, i.GoVer, i.OS, i.Arch)
}

// Generator returns the value written to the Generator field of a wheel.
func (i *Info) Generator() string {
	return fmt.Sprintf("%s (%s)", Name, i.Version)
}
