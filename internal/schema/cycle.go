package schema

import (
	"fmt"
	"slices"
	"strings"
)

// CycleError reports classes that reach themselves again, either through
// their bases or through nested fields.
type CycleError struct {
	// Via is "base" or "nested field".
	Via string
	// Classes lists the cycle in order; the first class is repeated last.
	Classes []*Class
}

func (e *CycleError) Error() string {
	names := make([]string, len(e.Classes))
	for i, c := range e.Classes {
		names[i] = c.Name
	}
	return fmt.Sprintf("%s cycle: %s", e.Via, strings.Join(names, " -> "))
}

// BaseCycle returns the first inheritance cycle reachable from c, or nil.
func BaseCycle(c *Class) *CycleError {
	cycle := findCycle(c, func(k *Class) []*Class { return k.Bases })
	if cycle == nil {
		return nil
	}
	return &CycleError{Via: "base", Classes: cycle}
}

// NestedCycle returns the first cycle through the resolved nested fields of
// c and the classes they reach, or nil. Constructing any class on such a
// cycle would never terminate.
func NestedCycle(c *Class, r *Resolver) *CycleError {
	cycle := findCycle(c, func(k *Class) []*Class {
		var next []*Class
		for _, f := range r.Resolve(k).Fields() {
			if f.Kind.Tag == KindNested && f.Kind.Class != nil {
				next = append(next, f.Kind.Class)
			}
		}
		return next
	})
	if cycle == nil {
		return nil
	}
	return &CycleError{Via: "nested field", Classes: cycle}
}

// findCycle runs a depth-first search from start over next and returns the
// first back edge it meets as a closed path.
func findCycle(start *Class, next func(*Class) []*Class) []*Class {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[*Class]int)
	var stack []*Class

	var visit func(k *Class) []*Class
	visit = func(k *Class) []*Class {
		switch state[k] {
		case done:
			return nil
		case visiting:
			i := slices.Index(stack, k)
			return append(slices.Clone(stack[i:]), k)
		}
		state[k] = visiting
		stack = append(stack, k)
		for _, n := range next(k) {
			if n == nil || n == Root {
				continue
			}
			if cycle := visit(n); cycle != nil {
				return cycle
			}
		}
		stack = stack[:len(stack)-1]
		state[k] = done
		return nil
	}
	return visit(start)
}
