// Package pathutil provides shared path validation helpers for
// user-supplied paths: output destinations, script files, and query
// files.
package pathutil

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Common errors for path validation.
var (
	// ErrEmptyPath is returned for an empty path.
	ErrEmptyPath = errors.New("file path cannot be empty")
	// ErrInvalidCharacters is returned for paths containing null bytes.
	ErrInvalidCharacters = errors.New("file path contains invalid characters")
	// ErrPathTraversal is returned for paths with ".." segments.
	ErrPathTraversal = errors.New("file path contains path traversal")
)

// ValidateFilePath validates a user-supplied file path. It rejects
// empty paths, null bytes, and ".." in any segment. Detection is
// segment-based so that "queries/../etc/passwd" is rejected before
// cleaning (the cleaned path would be "etc/passwd" and could bypass a
// simple prefix check), while names like "queries/..archive" pass.
func ValidateFilePath(filePath string) error {
	if filePath == "" {
		return ErrEmptyPath
	}
	if strings.Contains(filePath, "\x00") {
		return ErrInvalidCharacters
	}

	normalized := filepath.ToSlash(filePath)
	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return fmt.Errorf("%w: %q", ErrPathTraversal, filePath)
		}
	}
	return nil
}
