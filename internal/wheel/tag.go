package wheel

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/freesurfer/fspack/internal/config"
)

// Tag is a wheel compatibility tag.
type Tag struct {
	Python   string `json:"python" yaml:"python"`
	ABI      string `json:"abi" yaml:"abi"`
	Platform string `json:"platform" yaml:"platform"`
}

// String returns the tag in file-name form, e.g. cp38-cp38-linux_x86_64.
func (t Tag) String() string {
	return t.Python + "-" + t.ABI + "-" + t.Platform
}

// Complete reports whether every component of the tag is set.
func (t Tag) Complete() bool {
	return t.Python != "" && t.ABI != "" && t.Platform != ""
}

// merge returns t with the non-empty fields of o applied on top.
func (t Tag) merge(o Tag) Tag {
	if o.Python != "" {
		t.Python = o.Python
	}
	if o.ABI != "" {
		t.ABI = o.ABI
	}
	if o.Platform != "" {
		t.Platform = o.Platform
	}
	return t
}

// TagOverride builds the override tag from wheel configuration.
func TagOverride(cfg config.WheelConfig) Tag {
	return Tag{Python: cfg.PythonTag, ABI: cfg.ABITag, Platform: cfg.PlatformTag}
}

// darwinArch maps GOARCH to the macOS architecture names used in tags.
var darwinArch = map[string]string{
	"amd64": "x86_64",
	"arm64": "arm64",
}

// ParseExtensionSuffix derives the tag from a CPython extension file name:
//
//	gems_python.cpython-38-x86_64-linux-gnu.so -> cp38-cp38-linux_x86_64
//	gems_python.cpython-37m-x86_64-linux-gnu.so -> cp37-cp37m-linux_x86_64
//	gems_python.cpython-310-darwin.so -> cp310-cp310-macosx_11_0_<arch>
func ParseExtensionSuffix(filename string) (Tag, error) {
	name := strings.TrimSuffix(filename, ".so")
	dot := strings.Index(name, ".")
	if dot < 0 || name == filename {
		return Tag{}, fmt.Errorf("%s is not an extension module", filename)
	}

	parts := strings.Split(name[dot+1:], "-")
	if len(parts) < 3 || parts[0] != "cpython" {
		return Tag{}, fmt.Errorf("%s: unsupported extension suffix %q", filename, name[dot+1:])
	}

	abi := parts[1]
	ver := strings.TrimRight(abi, "dmut")
	if ver == "" || strings.Trim(ver, "0123456789") != "" {
		return Tag{}, fmt.Errorf("%s: bad interpreter version %q", filename, abi)
	}

	tag := Tag{Python: "cp" + ver, ABI: "cp" + abi}

	switch triple := parts[2:]; {
	case len(triple) >= 2 && triple[1] == "linux":
		tag.Platform = "linux_" + sanitize(triple[0])
	case triple[0] == "darwin":
		arch, ok := darwinArch[runtime.GOARCH]
		if !ok {
			arch = sanitize(runtime.GOARCH)
		}
		tag.Platform = "macosx_11_0_" + arch
	default:
		return Tag{}, fmt.Errorf("%s: unknown platform %q", filename, strings.Join(triple, "-"))
	}
	return tag, nil
}

func sanitize(s string) string {
	return strings.NewReplacer("-", "_", ".", "_").Replace(s)
}

// ResolveTag picks the wheel tag for a set of library file names. The
// first parsable library decides; fields set in override always win.
// Libraries whose own tag differs from the result are returned as
// conflicts.
func ResolveTag(filenames []string, override Tag) (Tag, []string, error) {
	var derived Tag
	var tags []Tag
	var names []string
	for _, f := range filenames {
		t, err := ParseExtensionSuffix(f)
		if err != nil {
			continue
		}
		if !derived.Complete() {
			derived = t
		}
		tags = append(tags, t)
		names = append(names, f)
	}

	tag := derived.merge(override)
	if !tag.Complete() {
		return Tag{}, nil, fmt.Errorf("cannot determine wheel tag from %s; set wheel.python_tag, wheel.abi_tag and wheel.platform_tag",
			strings.Join(filenames, ", "))
	}

	var conflicts []string
	for i, t := range tags {
		if t.merge(override) != tag {
			conflicts = append(conflicts, names[i])
		}
	}
	return tag, conflicts, nil
}
