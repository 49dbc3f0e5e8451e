// Package project ties a project directory and its configuration to the
// packaging steps: reading the manifest, locating libraries, discovering
// packages and assembling the wheel plan.
package project

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/freesurfer/fspack/internal/config"
	"github.com/freesurfer/fspack/internal/dist"
	fserrors "github.com/freesurfer/fspack/internal/errors"
	"github.com/freesurfer/fspack/internal/locate"
	"github.com/freesurfer/fspack/internal/pkgfind"
	"github.com/freesurfer/fspack/internal/requirements"
	"github.com/freesurfer/fspack/internal/wheel"
)

// Project is a directory being packaged.
type Project struct {
	// Dir is the absolute project directory. Relative paths in Config
	// are resolved against it.
	Dir    string
	Config *config.Config
}

// Plan is the resolved content of a distribution.
type Plan struct {
	Requirements []string
	Packages     []pkgfind.Package
	Libraries    []locate.Located
	Dist         *dist.Distribution
	Tag          wheel.Tag
	// TagConflicts lists libraries built for a different tag than Tag.
	TagConflicts []string
}

// New creates a Project for dir with an already loaded configuration.
func New(dir string, cfg *config.Config) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fserrors.Wrap(err, fserrors.ErrConfig, "invalid project directory")
	}
	return &Project{Dir: abs, Config: cfg}, nil
}

// Open loads the configuration of dir. An explicit configPath, relative to
// dir, replaces dir/fspack.yaml.
func Open(dir, configPath string) (*Project, error) {
	p, err := New(dir, nil)
	if err != nil {
		return nil, err
	}

	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.Load(p.Path(configPath))
	} else {
		cfg, err = config.LoadFromDir(p.Dir)
	}
	if err != nil {
		var le *config.LoadError
		if errors.As(err, &le) && config.IsParseError(err) {
			return nil, fserrors.ConfigParseError(le.Path, le.Err)
		}
		return nil, fserrors.Wrap(err, fserrors.ErrConfig, "failed to load configuration")
	}

	p.Config = cfg
	return p, nil
}

// Path resolves rel against the project directory.
func (p *Project) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Dir, rel)
}

// RequirementsPath is the dependency manifest.
func (p *Project) RequirementsPath() string {
	return p.Path(p.Config.Distribution.RequirementsFile)
}

// SourceRoot is the tree searched for packages and libraries.
func (p *Project) SourceRoot() string {
	return p.Path(p.Config.Source.Root)
}

// OutputDir receives built wheels.
func (p *Project) OutputDir() string {
	return p.Path(p.Config.Wheel.OutputDir)
}

// LogDir is the log file directory, or empty when file logging is off.
func (p *Project) LogDir() string {
	if p.Config.Log.Dir == "" {
		return ""
	}
	return p.Path(p.Config.Log.Dir)
}

// Locator returns a locator for the source root and configured platform.
func (p *Project) Locator() *locate.Locator {
	return locate.NewLocator(p.SourceRoot(), p.Config.Source.Platform)
}

// Requirements reads the dependency manifest.
func (p *Project) Requirements() ([]string, error) {
	return requirements.ReadFile(p.RequirementsPath())
}

// Libraries returns the configured libraries named by components, in the
// given order. A component that is not configured is searched for on its
// own. No names means every configured library.
func (p *Project) Libraries(components ...string) []config.Library {
	if len(components) == 0 {
		return p.Config.Libraries
	}
	libs := make([]config.Library, 0, len(components))
	for _, name := range components {
		lib := config.Library{Name: name}
		for _, l := range p.Config.Libraries {
			if l.Name == name {
				lib = l
				break
			}
		}
		libs = append(libs, lib)
	}
	return libs
}

// Locate finds the libraries for components. It fails on the first
// component with no match.
func (p *Project) Locate(components ...string) ([]locate.Located, error) {
	return p.Locator().FindAll(p.Libraries(components...))
}

// Prepare resolves everything needed to write the wheel. Libraries are
// located before any package is read, so a missing library aborts the
// run before anything is packaged.
func (p *Project) Prepare() (*Plan, error) {
	reqs, err := p.Requirements()
	if err != nil {
		return nil, err
	}

	located, err := p.Locate()
	if err != nil {
		return nil, err
	}

	pkgs, err := pkgfind.Resolve(p.SourceRoot(), p.Config.Distribution.Packages)
	if err != nil {
		return nil, err
	}

	// The located libraries are package data whatever include_package_data
	// says; that flag only concerns files outside package_data.
	d := dist.New(&p.Config.Distribution, reqs, pkgfind.Names(pkgs), locate.PackageData(located))
	if err := d.Validate(); err != nil {
		return nil, fserrors.Wrap(err, fserrors.ErrPackage, "invalid distribution")
	}

	var libs []string
	for _, loc := range located {
		libs = append(libs, locate.Basenames(loc.Matches)...)
	}
	tag, conflicts, err := wheel.ResolveTag(libs, wheel.TagOverride(p.Config.Wheel))
	if err != nil {
		return nil, fserrors.Wrap(err, fserrors.ErrWheel, "cannot tag wheel").
			WithDetails("platform", p.Locator().Platform)
	}

	return &Plan{
		Requirements: reqs,
		Packages:     pkgs,
		Libraries:    located,
		Dist:         d,
		Tag:          tag,
		TagConflicts: conflicts,
	}, nil
}

// WheelPlan converts plan into the input of the wheel builder.
func (p *Project) WheelPlan(plan *Plan) wheel.Plan {
	return wheel.Plan{
		Dist:       plan.Dist,
		Packages:   plan.Packages,
		Libraries:  plan.Libraries,
		SourceRoot: p.SourceRoot(),
		Tag:        plan.Tag,
		OutputDir:  p.OutputDir(),
	}
}

// Build prepares the project and writes its wheel with b.
func (p *Project) Build(ctx context.Context, b *wheel.Builder) (*Plan, *wheel.Result, error) {
	plan, err := p.Prepare()
	if err != nil {
		return nil, nil, err
	}
	res, err := b.Build(ctx, p.WheelPlan(plan))
	if err != nil {
		return plan, nil, err
	}
	return plan, res, nil
}
