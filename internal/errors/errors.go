// Package errors provides error types with actionable suggestions for fspack.
// Errors carry the packaging context (paths, components, patterns) so the
// CLI can tell the user what to fix.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common sentinel errors for use with errors.Is().
var (
	// ErrConfig indicates a configuration error.
	ErrConfig = errors.New("configuration error")
	// ErrManifest indicates the requirements manifest could not be read.
	ErrManifest = errors.New("manifest error")
	// ErrLibrary indicates a required native library is missing.
	ErrLibrary = errors.New("library error")
	// ErrPackage indicates a configured Python package could not be resolved.
	ErrPackage = errors.New("package error")
	// ErrWheel indicates the wheel archive could not be written.
	ErrWheel = errors.New("wheel error")
	// ErrPublish indicates an upload failure.
	ErrPublish = errors.New("publish error")
	// ErrNotFound indicates a resource was not found.
	ErrNotFound = errors.New("not found")
)

// PackError is the base error type for fspack errors.
type PackError struct {
	// Kind is the category of error (e.g., ErrLibrary, ErrConfig).
	Kind error
	// Message is the human-readable error message.
	Message string
	// Suggestion provides actionable advice for resolving the error.
	Suggestion string
	// Cause is the underlying error that caused this error.
	Cause error
	// Details provides additional context (e.g., file path, glob pattern).
	Details map[string]string
}

// Error implements the error interface.
func (e *PackError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *PackError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return e.Kind
}

// Is reports whether the error's kind matches the target.
func (e *PackError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// Format returns a formatted error message with details and suggestion.
// Details and the suggestion of wrapped PackErrors are included; the
// outermost value of a detail key or suggestion wins. Details are printed
// in key order so output is stable.
func (e *PackError) Format() string {
	var sb strings.Builder

	sb.WriteString("error: ")
	sb.WriteString(e.Error())
	sb.WriteString("\n")

	details, suggestion := e.collect()

	if len(details) > 0 {
		keys := make([]string, 0, len(details))
		for k := range details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("\nDetails:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", k, details[k]))
		}
	}

	if suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(suggestion)
		sb.WriteString("\n")
	}

	return sb.String()
}

// collect merges the details and picks the first suggestion along the
// chain of PackErrors starting at e.
func (e *PackError) collect() (map[string]string, string) {
	details := make(map[string]string)
	var suggestion string

	for cur := e; cur != nil; {
		for k, v := range cur.Details {
			if _, ok := details[k]; !ok {
				details[k] = v
			}
		}
		if suggestion == "" {
			suggestion = cur.Suggestion
		}

		var next *PackError
		if cur.Cause == nil || !errors.As(cur.Cause, &next) {
			break
		}
		cur = next
	}
	return details, suggestion
}

// WithDetails adds details to the error.
func (e *PackError) WithDetails(key, value string) *PackError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying cause of the error.
func (e *PackError) WithCause(cause error) *PackError {
	e.Cause = cause
	return e
}

// New creates a new PackError with the given kind and message.
func New(kind error, message string) *PackError {
	return &PackError{
		Kind:    kind,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, kind error, message string) *PackError {
	return &PackError{
		Kind:    kind,
		Message: message,
		Cause:   err,
	}
}

// WithSuggestion creates a new error with a suggestion.
func WithSuggestion(kind error, message, suggestion string) *PackError {
	return &PackError{
		Kind:       kind,
		Message:    message,
		Suggestion: suggestion,
	}
}

// FormatError renders err for the terminal. PackErrors get their full
// formatting; anything else is printed as a single line.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	var pe *PackError
	if errors.As(err, &pe) {
		return pe.Format()
	}
	return "error: " + err.Error() + "\n"
}
