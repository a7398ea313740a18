package blob

import (
	"encoding/base64"
	"fmt"
	"maps"

	"github.com/zclconf/go-cty/cty"
	ctymsgpack "github.com/zclconf/go-cty/cty/msgpack"
)

// Property is the node property the serialized mapping lives in.
const Property = "__data"

// Holder is the part of a scene node the store needs.
type Holder interface {
	Prop(key string) (string, bool)
	SetProp(key, value string)
}

// Init resets the node's mapping to empty.
func Init(node Holder) error {
	raw, err := Encode(nil)
	if err != nil {
		return err
	}
	node.SetProp(Property, raw)
	return nil
}

// Read returns a copy of the node's mapping. A node that was never
// initialized reads as empty.
func Read(node Holder) (map[string]cty.Value, error) {
	raw, ok := node.Prop(Property)
	if !ok || raw == "" {
		return map[string]cty.Value{}, nil
	}
	return Decode(raw)
}

// Write stores value under key, preserving every other key.
func Write(node Holder, key string, value cty.Value) error {
	return Update(node, func(m map[string]cty.Value) error {
		m[key] = value
		return nil
	})
}

// Update reads the mapping, lets fn mutate it, and writes it back. When fn
// returns an error nothing is written and the stored mapping is unchanged.
func Update(node Holder, fn func(map[string]cty.Value) error) error {
	m, err := Read(node)
	if err != nil {
		return err
	}
	if err := fn(m); err != nil {
		return err
	}
	raw, err := Encode(m)
	if err != nil {
		return err
	}
	node.SetProp(Property, raw)
	return nil
}

// Encode serializes a mapping. Each value keeps its own type.
func Encode(m map[string]cty.Value) (string, error) {
	for k, v := range m {
		if !v.IsWhollyKnown() {
			return "", fmt.Errorf("attribute '%s': value is not wholly known", k)
		}
	}

	obj := cty.EmptyObjectVal
	if len(m) > 0 {
		obj = cty.ObjectVal(m)
	}
	b, err := ctymsgpack.Marshal(obj, cty.DynamicPseudoType)
	if err != nil {
		return "", fmt.Errorf("failed to encode attributes: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Decode parses a mapping produced by Encode.
func Decode(raw string) (map[string]cty.Value, error) {
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode attribute blob: %w", err)
	}
	obj, err := ctymsgpack.Unmarshal(b, cty.DynamicPseudoType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode attribute blob: %w", err)
	}
	if !obj.Type().IsObjectType() || obj.IsNull() {
		return nil, fmt.Errorf("attribute blob holds %s, not an object", obj.Type().FriendlyName())
	}

	out := make(map[string]cty.Value, len(obj.Type().AttributeTypes()))
	maps.Copy(out, obj.AsValueMap())
	return out, nil
}
