package wheel

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freesurfer/fspack/internal/config"
	"github.com/freesurfer/fspack/internal/dist"
	fserrors "github.com/freesurfer/fspack/internal/errors"
	"github.com/freesurfer/fspack/internal/locate"
	"github.com/freesurfer/fspack/internal/pkgfind"
)

var linuxTag = Tag{Python: "cp38", ABI: "cp38", Platform: "linux_x86_64"}

const (
	gemsLib = "gems_python.cpython-38-x86_64-linux-gnu.so"
	algoLib = "algorithm_python.cpython-38-x86_64-linux-gnu.so"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

// newPlan lays out a source tree where gems_python sits in its package and
// algorithm_python is still in the build directory.
func newPlan(t *testing.T) Plan {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "freesurfer/__init__.py", "from . import gems\n")
	writeFile(t, root, "freesurfer/algorithm/__init__.py", "")
	writeFile(t, root, "freesurfer/gems/__init__.py", "")
	writeFile(t, root, "freesurfer/gems/"+gemsLib, "gems-binary")
	writeFile(t, root, "freesurfer/samseg/__init__.py", "")
	writeFile(t, root, "build/algorithm/"+algoLib, "algorithm-binary")

	pkgs, err := pkgfind.Resolve(root, config.DefaultPackages)
	require.NoError(t, err)

	located, err := locate.NewLocator(root, "linux").FindAll(config.DefaultLibraries)
	require.NoError(t, err)

	cfg := config.NewConfig()
	d := dist.New(&cfg.Distribution, []string{"numpy", "nibabel"}, pkgfind.Names(pkgs), locate.PackageData(located))

	return Plan{
		Dist:       d,
		Packages:   pkgs,
		Libraries:  located,
		SourceRoot: root,
		Tag:        linuxTag,
		OutputDir:  filepath.Join(t.TempDir(), "dist"),
	}
}

func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	files := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		files[f.Name] = string(data)
	}
	return files
}

func TestFilename(t *testing.T) {
	d := &dist.Distribution{Name: "freesurfer", Version: "0.0.1"}
	assert.Equal(t, "freesurfer-0.0.1-cp38-cp38-linux_x86_64.whl", Filename(d, linuxTag))
}

func TestBuild(t *testing.T) {
	plan := newPlan(t)
	b := NewBuilder("fspack (test)", nil)

	res, err := b.Build(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(plan.OutputDir, "freesurfer-0.0.1-cp38-cp38-linux_x86_64.whl"), res.Path)
	info, err := os.Stat(res.Path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), res.Size)
	assert.Len(t, res.SHA256, 64)

	files := readArchive(t, res.Path)
	assert.Equal(t, res.Files, len(files))

	assert.Equal(t, "gems-binary", files["freesurfer/gems/"+gemsLib])
	assert.Equal(t, "algorithm-binary", files["freesurfer/algorithm/"+algoLib], "library should fall back to the located path")
	assert.Equal(t, "from . import gems\n", files["freesurfer/__init__.py"])
	assert.Contains(t, files, "freesurfer/samseg/__init__.py")

	wheelMeta := files["freesurfer-0.0.1.dist-info/WHEEL"]
	assert.Contains(t, wheelMeta, "Root-Is-Purelib: false\n")
	assert.Contains(t, wheelMeta, "Tag: cp38-cp38-linux_x86_64\n")
	assert.Contains(t, wheelMeta, "Generator: fspack (test)\n")

	assert.Contains(t, files["freesurfer-0.0.1.dist-info/METADATA"], "Requires-Dist: nibabel\n")
	assert.Equal(t, "freesurfer\n", files["freesurfer-0.0.1.dist-info/top_level.txt"])

	// No temporary files are left behind.
	entries, err := os.ReadDir(plan.OutputDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBuild_Record(t *testing.T) {
	plan := newPlan(t)
	res, err := NewBuilder("fspack", nil).Build(context.Background(), plan)
	require.NoError(t, err)

	files := readArchive(t, res.Path)
	record := files["freesurfer-0.0.1.dist-info/RECORD"]
	lines := strings.Split(strings.TrimSuffix(record, "\n"), "\n")
	require.Len(t, lines, len(files))

	for _, line := range lines {
		parts := strings.Split(line, ",")
		require.Len(t, parts, 3, line)
		name := parts[0]
		if name == "freesurfer-0.0.1.dist-info/RECORD" {
			assert.Equal(t, "", parts[1])
			assert.Equal(t, "", parts[2])
			continue
		}
		content, ok := files[name]
		require.True(t, ok, "RECORD lists missing file %s", name)
		sum := sha256.Sum256([]byte(content))
		assert.Equal(t, "sha256="+base64.RawURLEncoding.EncodeToString(sum[:]), parts[1], name)
		assert.Equal(t, fmt.Sprint(len(content)), parts[2], name)
	}
	assert.Equal(t, "freesurfer-0.0.1.dist-info/RECORD,,", lines[len(lines)-1])
}

func TestBuild_Reproducible(t *testing.T) {
	plan := newPlan(t)
	b := NewBuilder("fspack", nil)
	b.ModTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first, err := b.Build(context.Background(), plan)
	require.NoError(t, err)
	second, err := b.Build(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, first.SHA256, second.SHA256)
}

func TestBuild_EntryOrder(t *testing.T) {
	plan := newPlan(t)
	b := NewBuilder("fspack", nil)

	names, err := b.Entries(plan)
	require.NoError(t, err)

	info := plan.Dist.DistInfoDir()
	n := len(names)
	require.GreaterOrEqual(t, n, 4)
	assert.Equal(t, []string{info + "/METADATA", info + "/WHEEL", info + "/top_level.txt", info + "/RECORD"}, names[n-4:])
	for i := 1; i < n-4; i++ {
		assert.Less(t, names[i-1], names[i])
	}
}

func TestBuild_Cancelled(t *testing.T) {
	plan := newPlan(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder("fspack", nil).Build(ctx, plan)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, errors.Is(err, fserrors.ErrWheel))

	_, statErr := os.Stat(filepath.Join(plan.OutputDir, Filename(plan.Dist, plan.Tag)))
	assert.True(t, os.IsNotExist(statErr), "no wheel should be written on failure")
}

func TestBuild_IncompleteTag(t *testing.T) {
	plan := newPlan(t)
	plan.Tag.Platform = ""

	_, err := NewBuilder("fspack", nil).Build(context.Background(), plan)
	assert.True(t, errors.Is(err, fserrors.ErrWheel))
}

func TestBuild_LibraryForUnknownPackage(t *testing.T) {
	plan := newPlan(t)
	plan.Libraries = append(plan.Libraries, locate.Located{
		Library: config.Library{Name: "viz_python", Package: "freesurfer.viz"},
		Matches: []locate.Match{{Path: "viz_python.linux.so", Base: "viz_python.linux.so"}},
	})

	_, err := NewBuilder("fspack", nil).Build(context.Background(), plan)
	assert.True(t, errors.Is(err, fserrors.ErrPackage))
}

func TestModTimeFromEnv(t *testing.T) {
	t.Setenv(SourceDateEpochEnv, "")
	assert.Equal(t, zipEpoch, ModTimeFromEnv())

	t.Setenv(SourceDateEpochEnv, "1700000000")
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), ModTimeFromEnv())

	t.Setenv(SourceDateEpochEnv, "yesterday")
	assert.Equal(t, zipEpoch, ModTimeFromEnv())

	t.Setenv(SourceDateEpochEnv, "0")
	assert.Equal(t, zipEpoch, ModTimeFromEnv())
}
