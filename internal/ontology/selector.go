package ontology

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Selector is the 4-byte dispatch selector derived from a function signature.
type Selector [4]byte

// selectorPattern matches "0x" followed by exactly 8 hex digits.
var selectorPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{8}$`)

// ParseSelector parses a selector written as 0x + 8 hex digits.
// Input casing is accepted; selectors render lowercase.
func ParseSelector(s string) (Selector, error) {
	if !selectorPattern.MatchString(s) {
		return Selector{}, fmt.Errorf("invalid selector %q: want 0x followed by 8 hex digits", s)
	}
	raw, err := hex.DecodeString(strings.ToLower(s[2:]))
	if err != nil {
		return Selector{}, fmt.Errorf("invalid selector %q: %w", s, err)
	}
	var sel Selector
	copy(sel[:], raw)
	return sel, nil
}

// MustSelector is like ParseSelector but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSelector(s string) Selector {
	sel, err := ParseSelector(s)
	if err != nil {
		panic(err)
	}
	return sel
}

// String returns the canonical lowercase form, e.g. "0xa9059cbb".
func (s Selector) String() string {
	return "0x" + hex.EncodeToString(s[:])
}
