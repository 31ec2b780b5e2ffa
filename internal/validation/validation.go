// Package validation provides centralized input validation for rrdb.
package validation

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/xtxerr/rrdb/config"
	"github.com/xtxerr/rrdb/internal/errors"
)

// =============================================================================
// Name Validation
// =============================================================================

// NameRules defines the validation rules for one path component.
type NameRules struct {
	MinLength    int
	MaxLength    int
	AllowDots    bool
	AllowHyphens bool
	AllowUnders  bool
}

// FileNameRules returns the rules for database file name components.
func FileNameRules() NameRules {
	return NameRules{
		MinLength:    1,
		MaxLength:    255,
		AllowDots:    true,
		AllowHyphens: true,
		AllowUnders:  true,
	}
}

// ValidateName validates a name according to the given rules.
func ValidateName(name string, rules NameRules) error {
	if len(name) < rules.MinLength {
		return fmt.Errorf("name too short: minimum %d characters required", rules.MinLength)
	}
	if len(name) > rules.MaxLength {
		return fmt.Errorf("name too long: maximum %d characters allowed", rules.MaxLength)
	}

	if name == "." || name == ".." {
		return fmt.Errorf("name cannot be '.' or '..'")
	}

	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("name cannot start with '.'")
	}

	for i, r := range name {
		if r < 32 || r == 127 {
			return fmt.Errorf("name cannot contain control characters at position %d", i)
		}
		if r == '/' || r == '\\' {
			return fmt.Errorf("name cannot contain path separators at position %d", i)
		}
		if !isAllowedNameChar(r, rules) {
			return fmt.Errorf("invalid character '%c' at position %d", r, i)
		}
	}

	return nil
}

func isAllowedNameChar(r rune, rules NameRules) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '.':
		return rules.AllowDots
	case '-':
		return rules.AllowHyphens
	case '_':
		return rules.AllowUnders
	}
	return false
}

// =============================================================================
// Database File Names
// =============================================================================

// ValidateFilename validates a database file name given on the command
// line. It is relative to the data directory and may name subdirectories
// ("site/a.rrdb"), but may not leave it. Names of lock files are refused.
func ValidateFilename(name string) error {
	if name == "" {
		return errors.NewInvalidValue("filename", name, "cannot be empty")
	}
	if strings.HasPrefix(name, "/") {
		return errors.NewInvalidValue("filename", name, "must be relative to the data directory")
	}
	if strings.HasSuffix(name, config.LockSuffix) {
		return errors.NewInvalidValue("filename", name, "reserved for lock files")
	}
	if path.Clean(name) != name {
		return errors.NewInvalidValue("filename", name, "not in canonical form")
	}

	rules := FileNameRules()
	for _, part := range strings.Split(name, "/") {
		if err := ValidateName(part, rules); err != nil {
			return errors.NewInvalidValue("filename", name, err.Error())
		}
	}
	return nil
}
