package ontology

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a totally ordered package version tag: v1 < v2 < ...
// The zero value is invalid; versions start at v1.
type Version int

// ParseVersion parses a version tag of the form "vN" with N >= 1.
func ParseVersion(s string) (Version, error) {
	rest, ok := strings.CutPrefix(s, "v")
	if !ok {
		return 0, fmt.Errorf("invalid version tag %q: must start with 'v'", s)
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid version tag %q: %w", s, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("invalid version tag %q: versions start at v1", s)
	}
	return Version(n), nil
}

// MustVersion is like ParseVersion but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the canonical tag form, e.g. "v3".
func (v Version) String() string {
	return fmt.Sprintf("v%d", int(v))
}

// Valid reports whether the version is a meaningful tag (>= v1).
func (v Version) Valid() bool {
	return v >= 1
}
