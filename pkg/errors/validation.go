package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// identifierRegex matches names usable for layers, nets, vias and rules.
// Bus-bit and hierarchy characters common in netlists are allowed.
var identifierRegex = regexp.MustCompile(`^[A-Za-z0-9_$\[\]<>./:|\\-]+$`)

// ValidateName validates a technology or design object name.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or whitespace
//   - Maximum length of 256 characters
func ValidateName(kind, name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "%s name cannot be empty", kind)
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "%s name too long (max 256 characters)", kind)
	}

	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "%s name %q contains invalid characters", kind, name)
		}
	}

	if !identifierRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid %s name: %q", kind, name)
	}

	return nil
}

// ValidatePath validates an input file path given on the command line.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateRunID validates a stored run identifier or unique prefix of one.
func ValidateRunID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "run id cannot be empty")
	}
	if len(id) > 36 {
		return New(ErrCodeInvalidInput, "run id too long: %q", id)
	}
	if strings.Trim(strings.ToLower(id), "0123456789abcdef-") != "" {
		return New(ErrCodeInvalidInput, "run id must be hexadecimal: %q", id)
	}
	return nil
}
