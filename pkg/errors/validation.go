package errors

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	maxNameLength = 256
	maxPathLength = 500
)

// ValidateLayerName validates an uploaded layer's display name.
// Layer names are the identity key of a layer, so they must be non-empty and
// printable. Path separators are allowed because browsers may send them.
func ValidateLayerName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidName, "layer name cannot be empty")
	}
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidName, "layer name too long (max %d characters)", maxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "layer name contains invalid control characters")
		}
	}
	return nil
}

// spriteNameRegex matches names that are safe as a download file stem.
var spriteNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 ._-]*$`)

// ValidateSpriteName validates the export file stem. The empty string is
// valid: exports then fall back to "sample".
func ValidateSpriteName(name string) error {
	if name == "" {
		return nil
	}
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidName, "sprite name too long (max %d characters)", maxNameLength)
	}
	if strings.Contains(name, "..") {
		return New(ErrCodeInvalidName, "sprite name cannot contain %q", "..")
	}
	if !spriteNameRegex.MatchString(name) {
		return New(ErrCodeInvalidName, "invalid sprite name: %q", name)
	}
	return nil
}

// categoryNameRegex matches category identifiers such as "hairs" or "back_items".
var categoryNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// ValidateCategoryName validates a category identifier.
func ValidateCategoryName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidCategory, "category name cannot be empty")
	}
	if !categoryNameRegex.MatchString(name) {
		return New(ErrCodeInvalidCategory, "invalid category name: %q", name)
	}
	return nil
}

// ValidatePath validates a layer file path listed in a project file.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative to the project file)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}
	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}
	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}
	return nil
}
