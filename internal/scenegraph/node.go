package scenegraph

import (
	"fmt"
	"maps"
	"slices"
)

// PayloadKind enumerates the typed payloads an Object can carry.
type PayloadKind int

const (
	PayloadEmpty PayloadKind = iota // no payload at all
	PayloadMesh
	PayloadCurve
	PayloadSurface
	PayloadMetaBall
	PayloadText
	PayloadVolume
	PayloadGreasePencil
	PayloadArmature
	PayloadImage
	PayloadLight
	PayloadLightProbe
	PayloadCamera
	PayloadSpeaker
)

var payloadKindNames = map[PayloadKind]string{
	PayloadEmpty:        "empty",
	PayloadMesh:         "mesh",
	PayloadCurve:        "curve",
	PayloadSurface:      "surface",
	PayloadMetaBall:     "metaball",
	PayloadText:         "text",
	PayloadVolume:       "volume",
	PayloadGreasePencil: "grease_pencil",
	PayloadArmature:     "armature",
	PayloadImage:        "image",
	PayloadLight:        "light",
	PayloadLightProbe:   "light_probe",
	PayloadCamera:       "camera",
	PayloadSpeaker:      "speaker",
}

func (k PayloadKind) String() string {
	if name, ok := payloadKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("PayloadKind(%d)", int(k))
}

// ParsePayloadKind is the inverse of PayloadKind.String.
func ParsePayloadKind(s string) (PayloadKind, error) {
	for kind, name := range payloadKindNames {
		if name == s {
			return kind, nil
		}
	}
	return PayloadEmpty, fmt.Errorf("unknown payload kind %q", s)
}

// PayloadKinds returns every known kind in declaration order.
func PayloadKinds() []PayloadKind {
	kinds := make([]PayloadKind, 0, len(payloadKindNames))
	for k := PayloadEmpty; k <= PayloadSpeaker; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Payload is the typed data block an Object points at.
type Payload struct {
	Kind PayloadKind
	Name string
}

// props is the string-keyed property bag shared by both node shapes.
type props struct {
	values map[string]string
}

// Prop returns the property stored under key.
func (p *props) Prop(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// HasProp reports whether key is set.
func (p *props) HasProp(key string) bool {
	_, ok := p.values[key]
	return ok
}

// SetProp stores value under key, replacing any previous value.
func (p *props) SetProp(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	p.values[key] = value
}

// Props returns a copy of every property on the node.
func (p *props) Props() map[string]string {
	return maps.Clone(p.values)
}

// Object is a leaf node.
type Object struct {
	props
	name string
	data *Payload
}

// NewObject builds an unlinked object. Store implementations use it; callers
// should go through Store.NewObject so the name stays unique.
func NewObject(name string, data *Payload) *Object {
	return &Object{name: name, data: data}
}

// Name returns the datablock name of the object.
func (o *Object) Name() string { return o.name }

// Data returns the payload, or nil for an empty.
func (o *Object) Data() *Payload { return o.data }

func (o *Object) String() string { return "object " + o.name }

// Collection is a composite grouping node.
type Collection struct {
	props
	name     string
	children []*Collection
	objects  []*Object
}

// NewCollection builds an unlinked collection. Store implementations use it;
// callers should go through Store.NewCollection so the name stays unique.
func NewCollection(name string) *Collection {
	return &Collection{name: name}
}

// Name returns the datablock name of the collection.
func (c *Collection) Name() string { return c.name }

// Children returns the direct child collections in link order.
func (c *Collection) Children() []*Collection { return slices.Clone(c.children) }

// Objects returns the direct child objects in link order.
func (c *Collection) Objects() []*Object { return slices.Clone(c.objects) }

// AttachChild appends child to the collection's children. It is a no-op when
// child is already linked here.
func (c *Collection) AttachChild(child *Collection) {
	if slices.Contains(c.children, child) {
		return
	}
	c.children = append(c.children, child)
}

// AttachObject appends obj to the collection's objects. It is a no-op when obj
// is already linked here.
func (c *Collection) AttachObject(obj *Object) {
	if slices.Contains(c.objects, obj) {
		return
	}
	c.objects = append(c.objects, obj)
}

// Contains reports whether target is c or is reachable from c through child
// links.
func (c *Collection) Contains(target *Collection) bool {
	if c == target {
		return true
	}
	for _, child := range c.children {
		if child.Contains(target) {
			return true
		}
	}
	return false
}

func (c *Collection) String() string { return "collection " + c.name }
