package version

import (
	"fmt"
	"strings"

	errpkg "github.com/openlaunch/resource-cache/internal/errors"
)

// Modifiers recognised at the end of a simple range token.
const (
	modifierPrefix  = "*"
	modifierAtLeast = "+"
	ampersand       = "&"
)

type matchMode int

const (
	matchExact matchMode = iota
	matchPrefix
	matchAtLeast
)

// SimpleRange is a single version constraint: a version-id optionally
// followed by "*" (prefix match) or "+" (this version or greater). Without a
// modifier the constraint is an exact match.
type SimpleRange struct {
	id   ID
	mode matchMode
}

func parseSimpleRange(token string) (SimpleRange, error) {
	mode := matchExact
	switch {
	case strings.HasSuffix(token, modifierPrefix):
		mode = matchPrefix
		token = strings.TrimSuffix(token, modifierPrefix)
	case strings.HasSuffix(token, modifierAtLeast):
		mode = matchAtLeast
		token = strings.TrimSuffix(token, modifierAtLeast)
	}
	id, err := ParseID(token)
	if err != nil {
		return SimpleRange{}, err
	}
	return SimpleRange{id: id, mode: mode}, nil
}

// Contains reports whether the given version-id satisfies this constraint.
func (r SimpleRange) Contains(id ID) bool {
	switch r.mode {
	case matchPrefix:
		return r.id.isPrefixOf(id)
	case matchAtLeast:
		return r.id.Compare(id) <= 0
	default:
		return r.id.Equal(id)
	}
}

// IsExact reports whether this constraint carries no modifier.
func (r SimpleRange) IsExact() bool {
	return r.mode == matchExact
}

func (r SimpleRange) String() string {
	switch r.mode {
	case matchPrefix:
		return r.id.String() + modifierPrefix
	case matchAtLeast:
		return r.id.String() + modifierAtLeast
	default:
		return r.id.String()
	}
}

// Range is an ordered, non-empty sequence of simple ranges combined with the
// "&" operator. A Range contains a version-id iff every simple range in the
// sequence contains it: the ampersand is a logical AND, not an alternation.
type Range struct {
	ranges []SimpleRange
}

// ParseRange parses a version-range string such as "1.4+" or "1.0&2.0+".
// Malformed input is rejected with a format error and never partially
// accepted.
func ParseRange(s string) (Range, error) {
	if s == "" {
		return Range{}, fmt.Errorf("%w: empty version-range", errpkg.ErrFormat)
	}
	tokens := strings.Split(s, ampersand)
	ranges := make([]SimpleRange, 0, len(tokens))
	for _, token := range tokens {
		r, err := parseSimpleRange(token)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q is not a valid version-range", errpkg.ErrFormat, s)
		}
		ranges = append(ranges, r)
	}
	return Range{ranges: ranges}, nil
}

// MustParseRange is ParseRange for statically known inputs; it panics on
// error.
func MustParseRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Contains reports whether every simple range of this Range contains id.
func (r Range) Contains(id ID) bool {
	for _, sr := range r.ranges {
		if !sr.Contains(id) {
			return false
		}
	}
	return true
}

// ContainsString is Contains over the literal string form of a version-id.
// Malformed input is never contained.
func (r Range) ContainsString(s string) bool {
	id, err := ParseID(s)
	if err != nil {
		return false
	}
	return r.Contains(id)
}

// IsZero reports whether the Range is the zero value (no constraint).
func (r Range) IsZero() bool {
	return len(r.ranges) == 0
}

// IsCompound reports whether the range joins more than one simple range.
func (r Range) IsCompound() bool {
	return len(r.ranges) > 1
}

// IsExact reports whether the range pins a single version without
// modifiers.
func (r Range) IsExact() bool {
	return len(r.ranges) == 1 && r.ranges[0].IsExact()
}

// ExactID returns the pinned version-id of an exact range.
func (r Range) ExactID() (ID, bool) {
	if !r.IsExact() {
		return ID{}, false
	}
	return r.ranges[0].id, true
}

// Equal is structural equality: same simple ranges in the same order.
func (r Range) Equal(other Range) bool {
	if len(r.ranges) != len(other.ranges) {
		return false
	}
	for i := range r.ranges {
		if r.ranges[i].mode != other.ranges[i].mode || r.ranges[i].id.raw != other.ranges[i].id.raw {
			return false
		}
	}
	return true
}

// String renders the canonical "&"-joined form. ParseRange(r.String()) is
// always equal to r.
func (r Range) String() string {
	parts := make([]string, len(r.ranges))
	for i, sr := range r.ranges {
		parts[i] = sr.String()
	}
	return strings.Join(parts, ampersand)
}
