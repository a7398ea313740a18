package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/vk/rehydrator/internal/ctxlog"
	"github.com/vk/rehydrator/internal/scenegraph"
	"github.com/vk/rehydrator/internal/schema"
	"github.com/zclconf/go-cty/cty/convert"
	"go.uber.org/multierr"
	"golang.org/x/text/unicode/norm"
)

// Validate checks every registered declaration and returns all problems at
// once. Inheritance cycles and nested-field cycles are errors. Classes that
// cannot be encoded, and classes whose identity chains collide, are only
// logged: both fail, or are ambiguous, at use time by contract.
func (r *Registry) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	resolver := schema.NewResolver(0)
	chains := make(map[string]*schema.Class)
	classes := r.Classes()

	err := cycleErrors(classes, schema.BaseCycle)
	err = multierr.Append(err, cycleErrors(classes, func(c *schema.Class) *schema.CycleError {
		return schema.NestedCycle(c, resolver)
	}))
	for _, c := range classes {
		if lineage := c.Lineage(); lineage == nil {
			logger.Warn("Class has no persistable base and cannot be encoded.", "class", c.Name)
		} else {
			chain := chainOf(lineage)
			if prev, ok := chains[chain]; ok {
				logger.Warn("Two classes share an identity chain; decoding will return only one of them.", "chain", chain, "first", prev.Name, "second", c.Name)
			} else {
				chains[chain] = c
			}
		}

		for _, base := range c.Bases {
			if base != schema.Root && base.IsPersistable() && !r.Contains(base) {
				err = multierr.Append(err, fmt.Errorf("class '%s': base '%s' is not registered", c.Name, base.Name))
			}
		}

		seen := make(map[string]struct{}, len(c.Fields))
		for _, f := range c.Fields {
			err = multierr.Append(err, r.validateField(c, f))
			if _, dup := seen[f.Name]; dup {
				err = multierr.Append(err, fmt.Errorf("class '%s': field '%s' declared twice", c.Name, f.Name))
			}
			seen[f.Name] = struct{}{}
		}

		s := resolver.Resolve(c)
		for field, loc := range s.Appends() {
			if _, perr := schema.ParseLocator(loc); perr != nil {
				err = multierr.Append(err, fmt.Errorf("class '%s': append override for '%s': %w", c.Name, field, perr))
			}
			kind, ok := s.Kind(field)
			switch {
			case !ok:
				err = multierr.Append(err, fmt.Errorf("class '%s': append override for unknown field '%s'", c.Name, field))
			case !kind.IsGraph():
				err = multierr.Append(err, fmt.Errorf("class '%s': append override for opaque field '%s'", c.Name, field))
			}
		}
	}
	return err
}

func (r *Registry) validateField(c *schema.Class, f schema.Field) error {
	switch {
	case f.Name == "":
		return fmt.Errorf("class '%s': field with empty name", c.Name)
	case schema.IsReserved(f.Name):
		return fmt.Errorf("class '%s': field name '%s' is reserved", c.Name, f.Name)
	case !norm.NFC.IsNormalString(f.Name):
		return fmt.Errorf("class '%s': field name %q is not in Unicode normal form C", c.Name, f.Name)
	}

	switch f.Kind.Tag {
	case schema.KindNested:
		if f.Kind.Class == nil {
			return fmt.Errorf("class '%s': nested field '%s' has no class", c.Name, f.Name)
		}
		if !f.Kind.Class.IsPersistable() {
			return fmt.Errorf("class '%s': nested field '%s' uses non-persistable class '%s'", c.Name, f.Name, f.Kind.Class.Name)
		}
		if !r.Contains(f.Kind.Class) {
			return fmt.Errorf("class '%s': nested field '%s' uses unregistered class '%s'", c.Name, f.Name, f.Kind.Class.Name)
		}
	case schema.KindLeaf:
		if f.Kind.Payload < scenegraph.PayloadEmpty || f.Kind.Payload > scenegraph.PayloadSpeaker {
			return fmt.Errorf("class '%s': leaf field '%s' has unknown payload kind %d", c.Name, f.Name, int(f.Kind.Payload))
		}
	case schema.KindOpaque:
		if f.Default != nil {
			if _, cerr := convert.Convert(*f.Default, f.Kind.ValueType()); cerr != nil {
				return fmt.Errorf("class '%s': default for field '%s' does not fit type %s: %w", c.Name, f.Name, f.Kind, cerr)
			}
		}
	}
	if f.Default != nil && f.Kind.Tag != schema.KindOpaque {
		return fmt.Errorf("class '%s': field '%s' is a graph field and cannot have a default", c.Name, f.Name)
	}
	return nil
}

// cycleErrors reports each cycle find returns once, however many of the
// classes reach it.
func cycleErrors(classes []*schema.Class, find func(*schema.Class) *schema.CycleError) error {
	var err error
	reported := make(map[*schema.Class]bool)
	for _, c := range classes {
		cycle := find(c)
		if cycle == nil || slices.ContainsFunc(cycle.Classes, func(k *schema.Class) bool { return reported[k] }) {
			continue
		}
		for _, k := range cycle.Classes {
			reported[k] = true
		}
		err = multierr.Append(err, cycle)
	}
	return err
}

func chainOf(lineage []*schema.Class) string {
	names := make([]string, len(lineage))
	for i, k := range lineage {
		names[i] = k.Name
	}
	return strings.Join(names, ".")
}
