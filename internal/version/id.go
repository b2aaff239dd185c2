package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	errpkg "github.com/openlaunch/resource-cache/internal/errors"
)

// separators between the components of a version-id.
const separators = ".-_"

var idPattern = regexp.MustCompile(`^[0-9a-zA-Z]+([._-][0-9a-zA-Z]+)*$`)

// ID is an immutable, ordered tuple of version components parsed from a
// version string such as "1.4.2" or "2.0-beta_1".
type ID struct {
	raw   string
	parts []string
}

// ParseID parses a version-id string. It fails with a format error when the
// string contains modifiers, separators in illegal positions or characters
// outside the version-id alphabet.
func ParseID(s string) (ID, error) {
	if !idPattern.MatchString(s) {
		return ID{}, fmt.Errorf("%w: %q is not a valid version-id", errpkg.ErrFormat, s)
	}
	return ID{raw: s, parts: strings.FieldsFunc(s, isSeparator)}, nil
}

// MustParseID is ParseID for statically known inputs; it panics on error.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func isSeparator(r rune) bool {
	return strings.ContainsRune(separators, r)
}

// String returns the literal form this ID was parsed from.
func (id ID) String() string {
	return id.raw
}

// IsZero reports whether the ID is the zero value, i.e. not parsed from any
// version string.
func (id ID) IsZero() bool {
	return id.raw == ""
}

// Compare orders two IDs component-wise. Missing components are padded with
// "0", components are compared numerically when both sides are numeric and
// lexicographically otherwise. It returns -1, 0 or 1.
func (id ID) Compare(other ID) int {
	n := len(id.parts)
	if len(other.parts) > n {
		n = len(other.parts)
	}
	for i := 0; i < n; i++ {
		if c := compareComponent(component(id.parts, i), component(other.parts, i)); c != 0 {
			return c
		}
	}
	return 0
}

// Equal reports whether the two IDs denote the same version. Trailing zero
// components are insignificant, so "1.0" equals "1.0.0".
func (id ID) Equal(other ID) bool {
	return id.Compare(other) == 0
}

// Matches reports whether the literal string form denotes the same version
// as this ID. Malformed input never matches.
func (id ID) Matches(s string) bool {
	other, err := ParseID(s)
	if err != nil {
		return false
	}
	return id.Equal(other)
}

// isPrefixOf reports whether every component of this ID equals the
// corresponding leading component of other, padding other with "0" when it
// is shorter. Used for the "*" modifier.
func (id ID) isPrefixOf(other ID) bool {
	for i, p := range id.parts {
		if compareComponent(p, component(other.parts, i)) != 0 {
			return false
		}
	}
	return true
}

func component(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return "0"
}

func compareComponent(a, b string) int {
	na, aerr := strconv.Atoi(a)
	nb, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}
