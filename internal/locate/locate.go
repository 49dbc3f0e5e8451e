// Package locate finds the pre-compiled extension libraries that ship with
// the distribution.
//
// A library for component C built for platform P is any file below the
// source root whose name matches "C.*P*.so", e.g.
// gems_python.cpython-38-x86_64-linux-gnu.so for C=gems_python, P=linux.
package locate

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/freesurfer/fspack/internal/config"
	fserrors "github.com/freesurfer/fspack/internal/errors"
)

// ErrLibraryNotFound is matched by errors.Is when a component has no library.
var ErrLibraryNotFound = fserrors.ErrLibrary

// Match is one located library file.
type Match struct {
	// Path is the file path relative to the locator root, OS separators.
	Path string `json:"path" yaml:"path"`
	// Base is the file name with every directory stripped.
	Base string `json:"base" yaml:"base"`
}

// Located pairs a configured library with the files found for it.
type Located struct {
	Library config.Library
	Matches []Match
}

// HostPlatform returns the lower-cased name of the host operating system.
func HostPlatform() string {
	return strings.ToLower(runtime.GOOS)
}

// Pattern returns the recursive glob for a component on a platform.
func Pattern(component, platform string) string {
	return fmt.Sprintf("**/%s.*%s*.so", component, strings.ToLower(platform))
}

// Locator searches a directory tree for component libraries.
type Locator struct {
	// Root is the directory searched recursively.
	Root string
	// Platform is the OS name embedded in library file names.
	Platform string
}

// NewLocator creates a Locator rooted at root. An empty platform means the
// host platform.
func NewLocator(root, platform string) *Locator {
	if platform == "" {
		platform = HostPlatform()
	}
	return &Locator{
		Root:     root,
		Platform: strings.ToLower(platform),
	}
}

// Pattern returns the glob this locator uses for component.
func (l *Locator) Pattern(component string) string {
	return Pattern(component, l.Platform)
}

// Find returns every library file for component, sorted by path.
// Directories whose name starts with '.' are not searched.
// If nothing matches, the error wraps ErrLibraryNotFound.
func (l *Locator) Find(component string) ([]Match, error) {
	pattern := l.Pattern(component)

	paths, err := doublestar.Glob(os.DirFS(l.Root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("search %s for %s: %w", l.Root, pattern, err)
	}

	matches := make([]Match, 0, len(paths))
	for _, p := range paths {
		if hiddenDir(p) {
			continue
		}
		matches = append(matches, Match{
			Path: filepath.FromSlash(p),
			Base: path.Base(p),
		})
	}

	if len(matches) == 0 {
		return nil, fserrors.LibraryNotFound(component, pattern, l.Root)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Path < matches[j].Path
	})
	return matches, nil
}

// FindAll locates every configured library. It stops at the first
// component that has no match, so nothing is packaged partially.
func (l *Locator) FindAll(libraries []config.Library) ([]Located, error) {
	located := make([]Located, 0, len(libraries))
	for _, lib := range libraries {
		matches, err := l.Find(lib.Name)
		if err != nil {
			return nil, err
		}
		located = append(located, Located{Library: lib, Matches: matches})
	}
	return located, nil
}

// Basenames returns the directory-free names of matches, in order.
func Basenames(matches []Match) []string {
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.Base
	}
	return names
}

// PackageData groups located basenames by the package that ships them.
func PackageData(located []Located) map[string][]string {
	data := make(map[string][]string, len(located))
	for _, loc := range located {
		data[loc.Library.Package] = append(data[loc.Library.Package], Basenames(loc.Matches)...)
	}
	return data
}

// IsNotFound reports whether err means a component had no library.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLibraryNotFound)
}

// hiddenDir reports whether any directory segment of a slash path is hidden.
func hiddenDir(p string) bool {
	dir := path.Dir(p)
	if dir == "." {
		return false
	}
	for _, seg := range strings.Split(dir, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
