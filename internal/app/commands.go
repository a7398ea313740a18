package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/rehydrator/internal/ctxlog"
	"github.com/vk/rehydrator/internal/rehydrate"
	"github.com/vk/rehydrator/internal/scenegraph"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Classes prints every registered class by identity chain, followed by its
// resolved fields.
func (a *App) Classes() error {
	for _, c := range a.registry.Classes() {
		chain, err := a.engine.Codec().Encode(c)
		if err != nil {
			a.logger.Warn("Skipping class that cannot be encoded.", "class", c.Name, "error", err)
			continue
		}
		fmt.Fprintln(a.outW, chain)

		s := a.engine.Schema(c)
		for _, f := range s.Fields() {
			line := fmt.Sprintf("  %s: %s", f.Name, f.Kind)
			if loc, ok := s.Append(f.Name); ok {
				line += " <- " + loc
			}
			if f.Default != nil {
				if raw, err := formatValue(*f.Default); err == nil {
					line += " = " + raw
				}
			}
			fmt.Fprintln(a.outW, line)
		}
	}
	return nil
}

// Scene reconstructs every persisted instance in the document and prints it.
func (a *App) Scene(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	instances, err := a.engine.ReconstructAll(ctx, nil)
	if err != nil {
		return err
	}
	if len(instances) == 0 {
		a.logger.Info("No persisted instances found.")
		return nil
	}
	for _, inst := range instances {
		if err := a.printInstance(inst, ""); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) printInstance(inst *rehydrate.Instance, indent string) error {
	fmt.Fprintf(a.outW, "%s%s (%s)\n", indent, inst.Container().Name(), inst.Prefix())
	indent += "  "

	for _, name := range inst.Names() {
		if nested, ok := inst.Nested(name); ok {
			fmt.Fprintf(a.outW, "%s%s:\n", indent, name)
			if err := a.printInstance(nested, indent+"  "); err != nil {
				return err
			}
			continue
		}
		if c, ok := inst.Collection(name); ok {
			fmt.Fprintf(a.outW, "%s%s -> %s\n", indent, name, c)
			continue
		}
		if o, ok := inst.Object(name); ok {
			fmt.Fprintf(a.outW, "%s%s -> %s\n", indent, name, o)
			continue
		}
		if err := a.printValue(inst, name, indent); err != nil {
			return err
		}
	}

	extra := inst.Extra()
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := a.printValue(inst, name, indent+"+"); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) printValue(inst *rehydrate.Instance, name, indent string) error {
	v, ok := inst.Value(name)
	if !ok {
		return nil
	}
	raw, err := formatValue(v)
	if err != nil {
		return fmt.Errorf("attribute '%s' of %s: %w", name, inst, err)
	}
	fmt.Fprintf(a.outW, "%s%s = %s\n", indent, name, raw)
	return nil
}

// New constructs a fresh instance of the class named by chain and saves the
// document. A non-empty into names the existing collection to bind it to.
func (a *App) New(ctx context.Context, chain, into string) (*rehydrate.Instance, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	class, err := a.engine.Codec().Decode(chain)
	if err != nil {
		return nil, err
	}

	var container *scenegraph.Collection
	if into != "" {
		c, ok := a.store.Collection(ctx, into)
		if !ok {
			return nil, fmt.Errorf("no collection named '%s'", into)
		}
		container = c
	}

	inst, err := a.engine.Construct(ctx, class, container)
	if err != nil {
		return nil, fmt.Errorf("failed to construct %s: %w", chain, err)
	}
	if err := a.Save(ctx); err != nil {
		return nil, err
	}
	fmt.Fprintf(a.outW, "Created %s in '%s'.\n", inst.Prefix(), inst.Container().Name())
	return inst, nil
}

// Set assigns the value of the HCL expression src to key on the instance
// persisted in container, then saves the document.
func (a *App) Set(ctx context.Context, container, key, src string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	c, ok := a.store.Collection(ctx, container)
	if !ok {
		return fmt.Errorf("no collection named '%s'", container)
	}
	inst, err := a.engine.Reconstruct(ctx, c)
	if err != nil {
		return err
	}

	v, err := ParseValue(src)
	if err != nil {
		return err
	}
	if err := inst.Set(ctx, key, v); err != nil {
		return err
	}
	a.logger.Debug("Attribute assigned.", "container", container, "key", key)
	return a.Save(ctx)
}

// ParseValue evaluates src as a standalone HCL expression, e.g. `42`,
// `"text"` or `{ x = 1, tags = ["a"] }`. Variables and functions are not
// available.
func ParseValue(src string) (cty.Value, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "<value>", hcl.InitialPos)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("failed to parse value: %w", diags)
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("failed to evaluate value: %w", diags)
	}
	return v, nil
}

func formatValue(v cty.Value) (string, error) {
	raw, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
