// Package pkgfind discovers the Python packages in a source tree.
package pkgfind

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/freesurfer/fspack/internal/config"
	fserrors "github.com/freesurfer/fspack/internal/errors"
)

// InitFile marks a directory as a package.
const InitFile = "__init__.py"

// Package is a discovered Python package.
type Package struct {
	// Name is the dotted package name, e.g. freesurfer.gems.
	Name string
	// Dir is the package directory on disk.
	Dir string
	// Modules are the .py files directly inside Dir, sorted.
	Modules []string
}

// ArchiveDir returns the package directory inside a wheel.
func (p Package) ArchiveDir() string {
	return strings.ReplaceAll(p.Name, ".", "/")
}

// Find walks root and returns every package whose dotted name matches one
// of include, sorted by name. Only package directories are descended into,
// and directories with a '.' in their name are never packages. An excluded
// package is still descended into since it may contain included subpackages.
func Find(root string, include []string) ([]Package, error) {
	var pkgs []Package

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || p == root {
			return nil
		}

		if strings.Contains(d.Name(), ".") || !isPackageDir(p) {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		name := strings.ReplaceAll(filepath.ToSlash(rel), "/", ".")
		if !config.PackageSelected(include, name) {
			return nil
		}

		modules, err := listModules(p)
		if err != nil {
			return err
		}
		pkgs = append(pkgs, Package{Name: name, Dir: p, Modules: modules})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(pkgs, func(i, j int) bool {
		return pkgs[i].Name < pkgs[j].Name
	})
	return pkgs, nil
}

// Resolve is Find plus a check that every literal (non-pattern) include
// entry was found.
func Resolve(root string, include []string) ([]Package, error) {
	pkgs, err := Find(root, include)
	if err != nil {
		return nil, err
	}

	found := make(map[string]bool, len(pkgs))
	for _, p := range pkgs {
		found[p.Name] = true
	}
	for _, name := range include {
		if strings.ContainsAny(name, "*?[") {
			continue
		}
		if !found[name] {
			return nil, fserrors.PackageNotFound(name, root)
		}
	}
	return pkgs, nil
}

// Names returns the dotted names of pkgs.
func Names(pkgs []Package) []string {
	names := make([]string, len(pkgs))
	for i, p := range pkgs {
		names[i] = p.Name
	}
	return names
}

func isPackageDir(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, InitFile))
	return err == nil && !info.IsDir()
}

func listModules(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var modules []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".py") {
			modules = append(modules, e.Name())
		}
	}
	sort.Strings(modules)
	return modules, nil
}
