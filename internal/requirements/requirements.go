// Package requirements reads the install-requirements manifest.
//
// The manifest holds one requirement specifier per line. Lines that start
// with '#' are comments and are dropped; every other line is kept verbatim,
// in file order.
package requirements

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	fserrors "github.com/freesurfer/fspack/internal/errors"
)

// CommentMarker starts a comment line.
const CommentMarker = "#"

// maxLineSize bounds a single manifest line.
const maxLineSize = 1024 * 1024

// Parse returns the non-comment lines of r. Both LF and CRLF line endings
// are accepted; the line terminator is never part of an entry.
func Parse(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	reqs := []string{}
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.HasPrefix(line, CommentMarker) {
			continue
		}
		reqs = append(reqs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}
	return reqs, nil
}

// ReadFile opens path and parses it.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fserrors.ManifestUnreadable(path, err)
	}
	defer f.Close()

	reqs, err := Parse(f)
	if err != nil {
		return nil, fserrors.ManifestUnreadable(path, err)
	}
	return reqs, nil
}

// Specifiers returns the entries that carry a requirement, trimmed.
// Blank entries are kept by Parse but have nothing to declare.
func Specifiers(reqs []string) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		if s := strings.TrimSpace(r); s != "" {
			out = append(out, s)
		}
	}
	return out
}
