// Package errors provides error types for fspack.
// This file contains manifest, library and packaging errors.
package errors

import (
	"fmt"
	"strings"
)

// LibraryNotFound creates the error raised when no compiled library matches
// the expected pattern for a component.
func LibraryNotFound(component, pattern, root string) *PackError {
	return &PackError{
		Kind:    ErrLibrary,
		Message: fmt.Sprintf("could not find %s library that matches the current python version", component),
		Details: map[string]string{
			"component": component,
			"pattern":   pattern,
			"root":      root,
		},
		Suggestion: `Build the native extensions before packaging.

The library must be compiled for the interpreter and operating system
you are packaging for, e.g. gems_python.cpython-38-x86_64-linux-gnu.so.
To package for another host OS set source.platform in fspack.yaml.`,
	}
}

// ManifestUnreadable creates an error for a requirements file that cannot
// be opened or read.
func ManifestUnreadable(path string, cause error) *PackError {
	return &PackError{
		Kind:    ErrManifest,
		Message: fmt.Sprintf("failed to read requirements manifest: %s", path),
		Cause:   cause,
		Details: map[string]string{
			"path": path,
		},
		Suggestion: `Create the manifest with one requirement per line, or point
distribution.requirements_file in fspack.yaml at an existing file.`,
	}
}

// PackageNotFound creates an error for a configured package with no
// __init__.py under the source root.
func PackageNotFound(name, root string) *PackError {
	return &PackError{
		Kind:    ErrPackage,
		Message: fmt.Sprintf("package not found: %s", name),
		Details: map[string]string{
			"package": name,
			"root":    root,
		},
		Suggestion: fmt.Sprintf("Make sure %s/__init__.py exists under the source root.",
			strings.ReplaceAll(name, ".", "/")),
	}
}

// WheelWriteFailed creates an error for failures while writing the archive.
func WheelWriteFailed(path string, cause error) *PackError {
	return &PackError{
		Kind:    ErrWheel,
		Message: "failed to write wheel",
		Cause:   cause,
		Details: map[string]string{
			"path": path,
		},
	}
}

// WheelNotFound creates an error for a wheel path that does not name a
// regular file.
func WheelNotFound(path string) *PackError {
	return &PackError{
		Kind:    ErrNotFound,
		Message: fmt.Sprintf("wheel not found: %s", path),
		Details: map[string]string{
			"path": path,
		},
		Suggestion: `Run fspack build first, or run fspack publish without an
argument to build and upload in one step.`,
	}
}

// PublishFailed creates an error for upload failures.
func PublishFailed(bucket, key string, cause error) *PackError {
	return &PackError{
		Kind:    ErrPublish,
		Message: "failed to upload distribution",
		Cause:   cause,
		Details: map[string]string{
			"bucket": bucket,
			"key":    key,
		},
		Suggestion: `Check the publish section of fspack.yaml and the
FSPACK_PUBLISH_ACCESS_KEY / FSPACK_PUBLISH_SECRET_KEY credentials.`,
	}
}
