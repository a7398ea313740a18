package manifest

import (
	"context"
	"fmt"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/rehydrator/internal/ctxlog"
	"github.com/vk/rehydrator/internal/fsutil"
	"github.com/vk/rehydrator/internal/registry"
	"github.com/vk/rehydrator/internal/schema"
	"github.com/zclconf/go-cty/cty/convert"
)

// Extension is the file suffix LoadDir looks for in directories.
const Extension = ".hcl"

// fileRoot is a struct used to decode all top-level blocks from any file.
type fileRoot struct {
	Classes []*classBlock `hcl:"class,block"`
}

type classBlock struct {
	Name    string        `hcl:"name,label"`
	Extends []string      `hcl:"extends,optional"`
	Fields  []*fieldBlock `hcl:"field,block"`
	Remain  hcl.Body      `hcl:",remain"`
}

type fieldBlock struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Default     hcl.Expression `hcl:"default,optional"`
	Description string         `hcl:"description,optional"`
}

// loader accumulates class blocks from every input before building any
// class, so files may reference each other in any order.
type loader struct {
	parser *hclparse.Parser
	blocks []*classBlock
}

func newLoader() *loader {
	return &loader{parser: hclparse.NewParser()}
}

func (l *loader) addFile(path string) hcl.Diagnostics {
	f, diags := l.parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return diags
	}
	return l.decode(f)
}

func (l *loader) addSource(src []byte, filename string) hcl.Diagnostics {
	f, diags := l.parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return diags
	}
	return l.decode(f)
}

func (l *loader) decode(f *hcl.File) hcl.Diagnostics {
	var root fileRoot
	diags := gohcl.DecodeBody(f.Body, nil, &root)
	l.blocks = append(l.blocks, root.Classes...)
	return diags
}

// LoadDir discovers manifests under paths, which may be files or
// directories, and registers every class they declare.
func LoadDir(ctx context.Context, reg *registry.Registry, paths ...string) ([]*schema.Class, error) {
	files, err := fsutil.CollectFiles(paths, Extension)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Discovered manifest files.", "count", len(files))
	return LoadFiles(ctx, reg, files...)
}

// LoadFiles parses the given manifest files and registers every class they
// declare.
func LoadFiles(ctx context.Context, reg *registry.Registry, files ...string) ([]*schema.Class, error) {
	l := newLoader()
	var diags hcl.Diagnostics
	for _, file := range files {
		diags = append(diags, l.addFile(file)...)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifests: %w", diags)
	}
	return l.build(ctx, reg)
}

// Parse registers the classes declared in a single in-memory manifest.
func Parse(ctx context.Context, reg *registry.Registry, src []byte, filename string) ([]*schema.Class, error) {
	l := newLoader()
	if diags := l.addSource(src, filename); diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", filename, diags)
	}
	return l.build(ctx, reg)
}

// build turns the collected blocks into classes in two passes: first every
// class is created by name, then bases, fields and appends are resolved
// against them. Nothing is registered unless the whole set is valid.
func (l *loader) build(ctx context.Context, reg *registry.Registry) ([]*schema.Class, error) {
	logger := ctxlog.FromContext(ctx)

	var diags hcl.Diagnostics
	declared := make(map[string]*schema.Class, len(l.blocks))
	classes := make([]*schema.Class, 0, len(l.blocks))
	for _, b := range l.blocks {
		if _, dup := declared[b.Name]; dup {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate class",
				Detail:   fmt.Sprintf("Class %q is declared more than once.", b.Name),
				Subject:  b.Remain.MissingItemRange().Ptr(),
			})
			continue
		}
		c := &schema.Class{Name: b.Name}
		declared[b.Name] = c
		classes = append(classes, c)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid manifests: %w", diags)
	}

	lookup := func(name string) (*schema.Class, error) {
		if c, ok := declared[name]; ok {
			return c, nil
		}
		if name == schema.Root.Name {
			return schema.Root, nil
		}
		found := reg.ByName(name)
		switch len(found) {
		case 0:
			return nil, fmt.Errorf("no class named %q is declared or registered", name)
		case 1:
			return found[0], nil
		default:
			return nil, fmt.Errorf("class name %q is ambiguous: %d registered classes share it", name, len(found))
		}
	}

	for i, b := range l.blocks {
		diags = append(diags, l.fill(classes[i], b, lookup)...)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid manifests: %w", diags)
	}
	if diags := l.checkCycles(classes); diags.HasErrors() {
		return nil, fmt.Errorf("invalid manifests: %w", diags)
	}

	reg.RegisterAll(classes...)
	logger.Debug("Manifest classes registered.", "count", len(classes))
	return classes, nil
}

// checkCycles rejects classes that inherit from themselves, and classes
// whose nested fields lead back to themselves. Only declared classes can
// close a cycle, since registered classes never refer to them.
func (l *loader) checkCycles(classes []*schema.Class) hcl.Diagnostics {
	blocks := make(map[*schema.Class]*classBlock, len(classes))
	for i, c := range classes {
		blocks[c] = l.blocks[i]
	}
	resolver := schema.NewResolver(0)
	finders := []struct {
		summary string
		find    func(*schema.Class) *schema.CycleError
	}{
		{"Inheritance cycle", schema.BaseCycle},
		{"Nested class cycle", func(c *schema.Class) *schema.CycleError { return schema.NestedCycle(c, resolver) }},
	}

	var diags hcl.Diagnostics
	for _, finder := range finders {
		reported := make(map[*schema.Class]bool)
		for _, c := range classes {
			cycle := finder.find(c)
			if cycle == nil || slices.ContainsFunc(cycle.Classes, func(k *schema.Class) bool { return reported[k] }) {
				continue
			}
			for _, k := range cycle.Classes {
				reported[k] = true
			}
			var subject *hcl.Range
			if b, ok := blocks[cycle.Classes[0]]; ok {
				subject = b.Remain.MissingItemRange().Ptr()
			}
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  finder.summary,
				Detail:   fmt.Sprintf("Class %q cannot be declared: %s.", cycle.Classes[0].Name, cycle),
				Subject:  subject,
			})
		}
	}
	return diags
}

func (l *loader) fill(c *schema.Class, b *classBlock, lookup classLookup) hcl.Diagnostics {
	var diags hcl.Diagnostics
	where := b.Remain.MissingItemRange().Ptr()

	if len(b.Extends) == 0 {
		c.Bases = []*schema.Class{schema.Root}
	}
	for _, name := range b.Extends {
		base, err := lookup(name)
		if err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unknown base class",
				Detail:   fmt.Sprintf("Class %q extends %q: %s.", b.Name, name, err),
				Subject:  where,
			})
			continue
		}
		c.Bases = append(c.Bases, base)
	}

	seen := make(map[string]struct{}, len(b.Fields))
	for _, fb := range b.Fields {
		if _, dup := seen[fb.Name]; dup {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate field",
				Detail:   fmt.Sprintf("Field %q is declared more than once in class %q.", fb.Name, b.Name),
				Subject:  fb.Type.Range().Ptr(),
			})
			continue
		}
		seen[fb.Name] = struct{}{}

		f, fdiags := buildField(fb, lookup)
		diags = append(diags, fdiags...)
		if !fdiags.HasErrors() {
			c.Fields = append(c.Fields, f)
		}
	}

	appends, adiags := appendOverrides(b)
	diags = append(diags, adiags...)
	if len(appends) > 0 {
		c.Appends = appends
	}
	return diags
}

func buildField(fb *fieldBlock, lookup classLookup) (schema.Field, hcl.Diagnostics) {
	kind, diags := fieldKind(fb.Type, lookup)
	if diags.HasErrors() {
		return schema.Field{}, diags
	}
	f := schema.Field{Name: fb.Name, Kind: kind, Description: fb.Description}

	if fb.Default == nil {
		return f, nil
	}
	val, vdiags := fb.Default.Value(nil)
	if vdiags.HasErrors() {
		return schema.Field{}, vdiags
	}
	if val.IsNull() {
		return f, nil
	}
	if kind.IsGraph() {
		return schema.Field{}, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Default on graph field",
			Detail:   fmt.Sprintf("Field %q is a %s and cannot have a default.", fb.Name, kind),
			Subject:  fb.Default.Range().Ptr(),
		}}
	}
	converted, err := convert.Convert(val, kind.ValueType())
	if err != nil {
		return schema.Field{}, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid default value",
			Detail:   fmt.Sprintf("Default for field %q does not fit type %s: %s.", fb.Name, kind, err),
			Subject:  fb.Default.Range().Ptr(),
		}}
	}
	f.Default = &converted
	return f, nil
}

// appendOverrides reads the `<field>_append_from` attributes left over after
// decoding. Any other leftover attribute is an error.
func appendOverrides(b *classBlock) (map[string]string, hcl.Diagnostics) {
	attrs, diags := b.Remain.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	out := make(map[string]string, len(attrs))
	for name, attr := range attrs {
		if !schema.IsAppendName(name) {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unsupported argument",
				Detail:   fmt.Sprintf("An argument named %q is not expected in class %q.", name, b.Name),
				Subject:  attr.NameRange.Ptr(),
			})
			continue
		}
		var locator string
		if vdiags := gohcl.DecodeExpression(attr.Expr, nil, &locator); vdiags.HasErrors() {
			diags = append(diags, vdiags...)
			continue
		}
		out[name[:len(name)-len(schema.AppendSuffix)]] = locator
	}
	return out, diags
}
