// Package wheel writes binary wheel archives.
//
// Entries are written in a fixed order with a fixed timestamp, so the same
// inputs always give a byte-identical archive. The .dist-info directory is
// written last and RECORD is its final entry.
package wheel

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/freesurfer/fspack/internal/dist"
	fserrors "github.com/freesurfer/fspack/internal/errors"
	"github.com/freesurfer/fspack/internal/locate"
	"github.com/freesurfer/fspack/internal/logging"
	"github.com/freesurfer/fspack/internal/pkgfind"
)

// Version is the wheel format version written to WHEEL.
const Version = "1.0"

// SourceDateEpochEnv overrides the timestamp of archive entries.
const SourceDateEpochEnv = "SOURCE_DATE_EPOCH"

// zipEpoch is the earliest time a zip entry can carry.
var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Plan is everything needed to write one wheel.
type Plan struct {
	Dist      *dist.Distribution
	Packages  []pkgfind.Package
	Libraries []locate.Located
	// SourceRoot is the directory located library paths are relative to.
	SourceRoot string
	Tag        Tag
	OutputDir  string
}

// Result describes a written wheel.
type Result struct {
	Path   string `json:"path" yaml:"path"`
	Files  int    `json:"files" yaml:"files"`
	Size   int64  `json:"size" yaml:"size"`
	SHA256 string `json:"sha256" yaml:"sha256"`
}

// Builder writes wheels.
type Builder struct {
	// Generator is written to the WHEEL file.
	Generator string
	// ModTime is the timestamp of every entry.
	ModTime time.Time
	Logger  *logging.Logger
}

// NewBuilder creates a Builder with the entry timestamp taken from
// SOURCE_DATE_EPOCH, or the zip epoch when unset or invalid.
func NewBuilder(generator string, logger *logging.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNoop()
	}
	return &Builder{
		Generator: generator,
		ModTime:   ModTimeFromEnv(),
		Logger:    logger,
	}
}

// ModTimeFromEnv returns the entry timestamp for reproducible builds.
func ModTimeFromEnv() time.Time {
	raw := strings.TrimSpace(os.Getenv(SourceDateEpochEnv))
	if raw == "" {
		return zipEpoch
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return zipEpoch
	}
	t := time.Unix(secs, 0).UTC()
	if t.Before(zipEpoch) {
		return zipEpoch
	}
	return t
}

// Filename returns the wheel file name for d and tag.
func Filename(d *dist.Distribution, tag Tag) string {
	return fmt.Sprintf("%s-%s-%s.whl", d.EscapedName(), d.EscapedVersion(), tag)
}

// entry is one file in the archive, read from src or held in data.
type entry struct {
	name string
	src  string
	data []byte
	mode os.FileMode
}

// Entries returns the archive paths the plan would write, in order,
// without touching the output directory.
func (b *Builder) Entries(plan Plan) ([]string, error) {
	entries, err := b.collect(plan)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries)+1)
	for _, e := range entries {
		names = append(names, e.name)
	}
	return append(names, plan.Dist.DistInfoDir()+"/RECORD"), nil
}

// Build writes the wheel described by plan into plan.OutputDir. The
// archive is written to a temporary file and renamed into place.
func (b *Builder) Build(ctx context.Context, plan Plan) (*Result, error) {
	if err := plan.Dist.Validate(); err != nil {
		return nil, fserrors.Wrap(err, fserrors.ErrWheel, "invalid distribution")
	}
	if !plan.Tag.Complete() {
		return nil, fserrors.New(fserrors.ErrWheel, "incomplete wheel tag "+plan.Tag.String())
	}

	entries, err := b.collect(plan)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(plan.OutputDir, 0755); err != nil {
		return nil, fserrors.WheelWriteFailed(plan.OutputDir, err)
	}
	outPath := filepath.Join(plan.OutputDir, Filename(plan.Dist, plan.Tag))

	tmp, err := os.CreateTemp(plan.OutputDir, ".fspack-*.whl")
	if err != nil {
		return nil, fserrors.WheelWriteFailed(outPath, err)
	}
	defer os.Remove(tmp.Name())

	hasher := sha256.New()
	counter := &countingWriter{w: io.MultiWriter(tmp, hasher)}

	if err := b.write(ctx, counter, plan.Dist.DistInfoDir(), entries); err != nil {
		tmp.Close()
		return nil, fserrors.WheelWriteFailed(outPath, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fserrors.WheelWriteFailed(outPath, err)
	}
	if err := os.Rename(tmp.Name(), outPath); err != nil {
		return nil, fserrors.WheelWriteFailed(outPath, err)
	}

	b.Logger.Info("wrote wheel", "path", outPath, "files", len(entries)+1, "bytes", counter.n)

	return &Result{
		Path:   outPath,
		Files:  len(entries) + 1,
		Size:   counter.n,
		SHA256: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// collect lists the package modules, the package data and the metadata
// files, in archive order.
func (b *Builder) collect(plan Plan) ([]entry, error) {
	byName := make(map[string]pkgfind.Package, len(plan.Packages))
	for _, p := range plan.Packages {
		byName[p.Name] = p
	}

	seen := make(map[string]bool)
	var files []entry
	add := func(e entry) {
		if seen[e.name] {
			b.Logger.Warn("skipping duplicate archive entry", "entry", e.name, "source", e.src)
			return
		}
		seen[e.name] = true
		files = append(files, e)
	}

	for _, p := range plan.Packages {
		for _, m := range p.Modules {
			add(entry{name: p.ArchiveDir() + "/" + m, src: filepath.Join(p.Dir, m), mode: 0644})
		}
	}

	for _, loc := range plan.Libraries {
		pkg, ok := byName[loc.Library.Package]
		if !ok {
			return nil, fserrors.PackageNotFound(loc.Library.Package, plan.SourceRoot)
		}
		for _, m := range loc.Matches {
			src := filepath.Join(pkg.Dir, m.Base)
			if _, err := os.Stat(src); err != nil {
				// Not copied into the package yet: take the located build output.
				src = filepath.Join(plan.SourceRoot, m.Path)
				b.Logger.Debug("library not in package directory", "library", m.Base, "source", src)
			}
			add(entry{name: pkg.ArchiveDir() + "/" + m.Base, src: src, mode: 0755})
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].name < files[j].name
	})

	info := plan.Dist.DistInfoDir()
	files = append(files,
		entry{name: info + "/METADATA", data: plan.Dist.Metadata(), mode: 0644},
		entry{name: info + "/WHEEL", data: b.wheelFile(plan.Tag), mode: 0644},
		entry{name: info + "/top_level.txt", data: []byte(strings.Join(plan.Dist.TopLevel(), "\n") + "\n"), mode: 0644},
	)
	return files, nil
}

func (b *Builder) wheelFile(tag Tag) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Wheel-Version: %s\n", Version)
	fmt.Fprintf(&buf, "Generator: %s\n", b.Generator)
	// Native libraries make the distribution platform-specific.
	buf.WriteString("Root-Is-Purelib: false\n")
	fmt.Fprintf(&buf, "Tag: %s\n", tag)
	return buf.Bytes()
}

func (b *Builder) write(ctx context.Context, w io.Writer, distInfo string, entries []entry) error {
	zw := zip.NewWriter(w)
	record := &bytes.Buffer{}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		data := e.data
		if data == nil {
			var err error
			data, err = os.ReadFile(e.src)
			if err != nil {
				return err
			}
		}
		if err := b.writeEntry(zw, e.name, data, e.mode); err != nil {
			return err
		}

		sum := sha256.Sum256(data)
		fmt.Fprintf(record, "%s,sha256=%s,%d\n", e.name, base64.RawURLEncoding.EncodeToString(sum[:]), len(data))
	}

	recordName := distInfo + "/RECORD"
	fmt.Fprintf(record, "%s,,\n", recordName)
	if err := b.writeEntry(zw, recordName, record.Bytes(), 0644); err != nil {
		return err
	}

	return zw.Close()
}

func (b *Builder) writeEntry(zw *zip.Writer, name string, data []byte, mode os.FileMode) error {
	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: b.ModTime,
	}
	hdr.SetMode(mode)

	fw, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
