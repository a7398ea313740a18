// internal/classid/chain.go
package classid

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Separator joins chain segments.
const Separator = "."

// segmentRegex matches a single simple class name.
var segmentRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Chain is the structured form of an identity chain.
type Chain struct {
	Segments []string
}

// String serializes the chain into its canonical dotted form.
func (c Chain) String() string {
	return strings.Join(c.Segments, Separator)
}

// Len returns the number of segments.
func (c Chain) Len() int { return len(c.Segments) }

// Leaf returns the last segment, the class's own simple name.
func (c Chain) Leaf() string {
	if len(c.Segments) == 0 {
		return ""
	}
	return c.Segments[len(c.Segments)-1]
}

// Append returns a new chain with name added at the end.
func (c Chain) Append(name string) Chain {
	out := make([]string, len(c.Segments), len(c.Segments)+1)
	copy(out, c.Segments)
	return Chain{Segments: append(out, name)}
}

// Equal compares chains segment by segment.
func (c Chain) Equal(other Chain) bool {
	return slices.Equal(c.Segments, other.Segments)
}

// HasPrefix reports whether prefix is a leading part of c (or c itself).
func (c Chain) HasPrefix(prefix Chain) bool {
	if len(prefix.Segments) > len(c.Segments) {
		return false
	}
	return slices.Equal(c.Segments[:len(prefix.Segments)], prefix.Segments)
}

// Parse creates a Chain from its canonical string representation.
func Parse(raw string) (Chain, error) {
	if raw == "" {
		return Chain{}, fmt.Errorf("identity chain cannot be empty")
	}

	segments := strings.Split(raw, Separator)
	for _, s := range segments {
		if s == "" {
			return Chain{}, fmt.Errorf("identity chain %q contains an empty segment", raw)
		}
		if !segmentRegex.MatchString(s) {
			return Chain{}, fmt.Errorf("invalid class name %q in identity chain %q", s, raw)
		}
	}
	return Chain{Segments: segments}, nil
}
