package schema

import (
	"fmt"
	"strings"
)

// Locator points at a resource inside an external document.
type Locator struct {
	Path string
	Name string
}

func (l Locator) String() string { return l.Path + "@" + l.Name }

// LocatorError reports a locator that is not of the form "path@name".
type LocatorError struct {
	Locator string
	Reason  string
}

func (e *LocatorError) Error() string {
	return fmt.Sprintf("malformed resource locator %q: %s", e.Locator, e.Reason)
}

// ParseLocator splits "path@name" on the last '@', so paths may contain '@'
// but resource names may not.
func ParseLocator(s string) (Locator, error) {
	i := strings.LastIndex(s, "@")
	if i < 0 {
		return Locator{}, &LocatorError{Locator: s, Reason: "missing '@resource-name'"}
	}
	loc := Locator{Path: s[:i], Name: s[i+1:]}
	if loc.Path == "" {
		return Locator{}, &LocatorError{Locator: s, Reason: "empty file path"}
	}
	if loc.Name == "" {
		return Locator{}, &LocatorError{Locator: s, Reason: "empty resource name"}
	}
	return loc, nil
}
