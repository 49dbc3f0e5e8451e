package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/freesurfer/fspack/internal/config"
	fserrors "github.com/freesurfer/fspack/internal/errors"
)

const (
	gemsLib = "gems_python.cpython-38-x86_64-linux-gnu.so"
	algoLib = "algorithm_python.cpython-38-x86_64-linux-gnu.so"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// newTree creates a FreeSurfer python tree. The libraries are placed only
// when withLibs is set.
func newTree(t *testing.T, withLibs bool) string {
	t.Helper()
	t.Setenv("FSPACK_SOURCE_PLATFORM", "linux")

	dir := t.TempDir()
	writeFile(t, dir, "requirements.txt", "# runtime\nnumpy\n# optional\nscipy>=1.4\n")
	writeFile(t, dir, "freesurfer/__init__.py", "")
	writeFile(t, dir, "freesurfer/algorithm/__init__.py", "")
	writeFile(t, dir, "freesurfer/gems/__init__.py", "")
	writeFile(t, dir, "freesurfer/samseg/__init__.py", "")
	if withLibs {
		writeFile(t, dir, "freesurfer/gems/"+gemsLib, "gems")
		writeFile(t, dir, "build/algorithm/"+algoLib, "algorithm")
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)

	root := NewRootCmd()
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantErr    bool
		wantOutput string
	}{
		{
			name:       "help flag",
			args:       []string{"--help"},
			wantOutput: "Available Commands:",
		},
		{
			name:       "version flag",
			args:       []string{"--version"},
			wantOutput: "fspack dev",
		},
		{
			name:    "unknown command",
			args:    []string{"unknown"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args...)

			if (err != nil) != tt.wantErr {
				t.Errorf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantOutput != "" && !strings.Contains(out, tt.wantOutput) {
				t.Errorf("output = %q, want it to contain %q", out, tt.wantOutput)
			}
		})
	}
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"build", "describe", "locate", "requirements", "publish", "init", "version"} {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestBuildCommand(t *testing.T) {
	dir := newTree(t, true)

	out, _, err := execute(t, "build", "-C", dir)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	want := filepath.Join(dir, "dist", "freesurfer-0.0.1-cp38-cp38-linux_x86_64.whl")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("wheel not written: %v", err)
	}
	if !strings.Contains(out, want) {
		t.Errorf("output = %q, want wheel path", out)
	}
	for _, lib := range []string{"gems_python", "algorithm_python"} {
		if !strings.Contains(out, lib) {
			t.Errorf("output = %q, want %s listed", out, lib)
		}
	}
}

func TestRootRunsBuild(t *testing.T) {
	dir := newTree(t, true)

	if _, _, err := execute(t, "-C", dir); err != nil {
		t.Fatalf("fspack failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "dist", "freesurfer-0.0.1-cp38-cp38-linux_x86_64.whl")); err != nil {
		t.Errorf("wheel not written: %v", err)
	}
}

func TestBuildCommand_MissingLibrary(t *testing.T) {
	dir := newTree(t, false)
	writeFile(t, dir, "build/algorithm/"+algoLib, "algorithm")

	_, _, err := execute(t, "build", "-C", dir)
	if err == nil {
		t.Fatal("expected error for missing gems_python")
	}
	if !errors.Is(err, fserrors.ErrLibrary) {
		t.Errorf("error = %v, want ErrLibrary", err)
	}

	msg := fserrors.FormatError(err)
	if !strings.Contains(msg, "could not find gems_python library that matches the current python version") {
		t.Errorf("FormatError() = %q, missing diagnostic", msg)
	}
	if _, err := os.Stat(filepath.Join(dir, "dist")); !os.IsNotExist(err) {
		t.Error("output directory should not be created when a library is missing")
	}
}

// TestExecuteMain runs Execute in a child process started by
// TestExecute_ExitCode.
func TestExecuteMain(t *testing.T) {
	dir := os.Getenv("FSPACK_TEST_EXECUTE_DIR")
	if dir == "" {
		t.Skip("only runs as a child of TestExecute_ExitCode")
	}
	os.Args = []string{"fspack", "build", "-C", dir}
	Execute()
}

func TestExecute_ExitCode(t *testing.T) {
	dir := newTree(t, false)
	writeFile(t, dir, "build/algorithm/"+algoLib, "algorithm")

	cmd := exec.Command(os.Args[0], "-test.run=^TestExecuteMain$")
	cmd.Env = append(os.Environ(),
		"FSPACK_TEST_EXECUTE_DIR="+dir,
		"FSPACK_SOURCE_PLATFORM=linux")
	stderr := new(bytes.Buffer)
	cmd.Stderr = stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Run() error = %v, want a non-zero exit", err)
	}
	if code := exitErr.ExitCode(); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "could not find gems_python library that matches the current python version") {
		t.Errorf("stderr = %q, missing diagnostic", stderr.String())
	}
}

func TestDescribeCommand(t *testing.T) {
	dir := newTree(t, true)

	out, _, err := execute(t, "describe", "-C", dir)
	if err != nil {
		t.Fatalf("describe failed: %v", err)
	}
	for _, want := range []string{
		"name: freesurfer",
		"pure: false",
		"ext_modules: true",
		"freesurfer.gems:",
		"- " + gemsLib,
		"- scipy>=1.4",
		"wheel: freesurfer-0.0.1-cp38-cp38-linux_x86_64.whl",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "dist")); !os.IsNotExist(err) {
		t.Error("describe should not write anything")
	}
}

func TestDescribeCommand_JSON(t *testing.T) {
	dir := newTree(t, true)

	out, _, err := execute(t, "describe", "-C", dir, "--format", "json")
	if err != nil {
		t.Fatalf("describe failed: %v", err)
	}

	var got struct {
		Name        string              `json:"name"`
		Pure        bool                `json:"pure"`
		ExtModules  bool                `json:"ext_modules"`
		PackageData map[string][]string `json:"package_data"`
		Requires    []string            `json:"install_requires"`
		Tag         struct {
			Platform string `json:"platform"`
		} `json:"tag"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}

	if got.Name != "freesurfer" || got.Pure || !got.ExtModules {
		t.Errorf("unexpected description: %+v", got)
	}
	if len(got.PackageData["freesurfer.algorithm"]) != 1 || got.PackageData["freesurfer.algorithm"][0] != algoLib {
		t.Errorf("package_data = %v", got.PackageData)
	}
	if strings.Join(got.Requires, ",") != "numpy,scipy>=1.4" {
		t.Errorf("install_requires = %v", got.Requires)
	}
	if got.Tag.Platform != "linux_x86_64" {
		t.Errorf("tag.platform = %q", got.Tag.Platform)
	}
}

func TestDescribeCommand_BadFormat(t *testing.T) {
	dir := newTree(t, true)

	_, _, err := execute(t, "describe", "-C", dir, "--format", "toml")
	if !errors.Is(err, fserrors.ErrConfig) {
		t.Errorf("error = %v, want ErrConfig", err)
	}
}

func TestRequirementsCommand(t *testing.T) {
	dir := newTree(t, false)

	out, _, err := execute(t, "requirements", "-C", dir)
	if err != nil {
		t.Fatalf("requirements failed: %v", err)
	}
	if out != "numpy\nscipy>=1.4\n" {
		t.Errorf("output = %q", out)
	}
}

func TestRequirementsCommand_MissingManifest(t *testing.T) {
	t.Setenv("FSPACK_SOURCE_PLATFORM", "linux")

	_, _, err := execute(t, "requirements", "-C", t.TempDir())
	if !errors.Is(err, fserrors.ErrManifest) {
		t.Errorf("error = %v, want ErrManifest", err)
	}
}

func TestLocateCommand(t *testing.T) {
	dir := newTree(t, true)

	out, _, err := execute(t, "locate", "-C", dir, "algorithm_python")
	if err != nil {
		t.Fatalf("locate failed: %v", err)
	}
	if !strings.Contains(out, algoLib) {
		t.Errorf("output = %q, want %s", out, algoLib)
	}
	if strings.Contains(out, gemsLib) {
		t.Errorf("output = %q, should only list the requested component", out)
	}
}

func TestLocateCommand_NotFound(t *testing.T) {
	dir := newTree(t, true)

	_, _, err := execute(t, "locate", "-C", dir, "viz_python")
	if !errors.Is(err, fserrors.ErrLibrary) {
		t.Errorf("error = %v, want ErrLibrary", err)
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, config.DefaultConfigPath)

	if _, _, err := execute(t, "init", "-C", dir); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if cfg.Distribution.Name != config.DefaultName {
		t.Errorf("Distribution.Name = %q, want %q", cfg.Distribution.Name, config.DefaultName)
	}
	if len(cfg.Libraries) != len(config.DefaultLibraries) {
		t.Errorf("Libraries = %v, want %v", cfg.Libraries, config.DefaultLibraries)
	}

	_, _, err = execute(t, "init", "-C", dir)
	if !errors.Is(err, fserrors.ErrConfig) {
		t.Errorf("second init error = %v, want ErrConfig", err)
	}

	if _, _, err := execute(t, "init", "-C", dir, "--force"); err != nil {
		t.Errorf("init --force failed: %v", err)
	}
}

func TestPublishCommand_RequiresStorage(t *testing.T) {
	dir := newTree(t, true)
	writeFile(t, dir, "dist/x.whl", "wheel")

	_, _, err := execute(t, "publish", "-C", dir, "dist/x.whl")
	if !errors.Is(err, fserrors.ErrConfig) {
		t.Errorf("error = %v, want ErrConfig", err)
	}
}

func TestPublishCommand_MissingWheel(t *testing.T) {
	dir := newTree(t, true)

	for _, arg := range []string{"dist/missing.whl", "freesurfer"} {
		_, _, err := execute(t, "publish", "-C", dir, arg)
		if !errors.Is(err, fserrors.ErrNotFound) {
			t.Errorf("publish %s: error = %v, want ErrNotFound", arg, err)
		}
		if errors.Is(err, fserrors.ErrConfig) || errors.Is(err, fserrors.ErrPublish) {
			t.Errorf("publish %s: wheel path should be checked before storage", arg)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version", "--short")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "fspack dev (commit: none") {
		t.Errorf("output = %q", out)
	}

	out, _, err = execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "OS/Arch:") {
		t.Errorf("output = %q", out)
	}
}
