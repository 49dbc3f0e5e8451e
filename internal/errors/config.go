// Package errors provides error types for fspack.
// This file contains configuration-related errors.
package errors

import (
	"fmt"
	"strings"
)

// ConfigParseError creates an error for YAML parsing failures.
func ConfigParseError(configPath string, parseErr error) *PackError {
	return &PackError{
		Kind:    ErrConfig,
		Message: fmt.Sprintf("failed to parse configuration: %s", configPath),
		Cause:   parseErr,
		Details: map[string]string{
			"path": configPath,
		},
		Suggestion: `Check fspack.yaml for syntax errors:
  1. Ensure proper YAML indentation (use spaces, not tabs)
  2. Lists need a '- ' prefix
  3. Regenerate a default file with: fspack init --force`,
	}
}

// ConfigValidationError creates an error for invalid configuration values.
func ConfigValidationError(field, message string, validOptions []string) *PackError {
	suggestion := fmt.Sprintf("Fix the %q field in fspack.yaml", field)
	if len(validOptions) > 0 {
		suggestion += fmt.Sprintf("\n  Valid options: %s", strings.Join(validOptions, ", "))
	}

	return &PackError{
		Kind:    ErrConfig,
		Message: fmt.Sprintf("invalid configuration: %s", message),
		Details: map[string]string{
			"field": field,
		},
		Suggestion: suggestion,
	}
}

// ConfigExists creates an error when init would overwrite a config file.
func ConfigExists(configPath string) *PackError {
	return &PackError{
		Kind:       ErrConfig,
		Message:    fmt.Sprintf("configuration already exists: %s", configPath),
		Details:    map[string]string{"path": configPath},
		Suggestion: "Use --force to overwrite it.",
	}
}
