// internal/classid/codec.go
package classid

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vk/rehydrator/internal/registry"
	"github.com/vk/rehydrator/internal/schema"
)

// DefaultCacheSize bounds each of the codec's two caches.
const DefaultCacheSize = 1024

// SchemaError is returned when a class without a persistable base is encoded.
type SchemaError struct {
	Class string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("class '%s' does not extend %s", e.Class, schema.Root.Name)
}

// NotFoundError is returned when no registered class matches an identity
// chain.
type NotFoundError struct {
	Name string
	Err  error // parse failure, if the name was not a valid chain
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no registered class for identity '%s': %v", e.Name, e.Err)
	}
	return fmt.Sprintf("no registered class for identity '%s'", e.Name)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

type encodeKey struct {
	generation uint64
	class      *schema.Class
}

type decodeKey struct {
	generation uint64
	name       string
}

// Codec encodes and decodes identity chains against a registry. Both
// directions are memoized; entries are keyed by the registry generation, so a
// registration made after a lookup is always seen by the next lookup.
type Codec struct {
	registry *registry.Registry
	encoded  *lru.Cache[encodeKey, Chain]
	decoded  *lru.Cache[decodeKey, *schema.Class]
}

// NewCodec creates a codec over reg with caches of the given size.
func NewCodec(reg *registry.Registry, size int) *Codec {
	if size <= 0 {
		size = DefaultCacheSize
	}
	encoded, err := lru.New[encodeKey, Chain](size)
	if err != nil {
		panic(err)
	}
	decoded, err := lru.New[decodeKey, *schema.Class](size)
	if err != nil {
		panic(err)
	}
	return &Codec{registry: reg, encoded: encoded, decoded: decoded}
}

// Encode returns the identity chain string of c.
func (c *Codec) Encode(class *schema.Class) (string, error) {
	chain, err := c.EncodeChain(class)
	if err != nil {
		return "", err
	}
	return chain.String(), nil
}

// EncodeChain joins the simple names of the class's lineage, root-to-leaf.
func (c *Codec) EncodeChain(class *schema.Class) (Chain, error) {
	key := encodeKey{generation: c.registry.Generation(), class: class}
	if chain, ok := c.encoded.Get(key); ok {
		return chain, nil
	}

	lineage := class.Lineage()
	if lineage == nil {
		return Chain{}, &SchemaError{Class: class.Name}
	}
	var chain Chain
	for _, k := range lineage {
		chain = chain.Append(k.Name)
	}
	c.encoded.Add(key, chain)
	return chain, nil
}

// Decode finds the registered class whose identity chain is name.
//
// The search is depth-first over the registered subclass tree of the root,
// in registration order, building a candidate chain at every node. A subtree
// is only entered when its candidate is a prefix of name. The first exact
// match wins.
func (c *Codec) Decode(name string) (*schema.Class, error) {
	key := decodeKey{generation: c.registry.Generation(), name: name}
	if class, ok := c.decoded.Get(key); ok {
		return class, nil
	}

	target, err := Parse(name)
	if err != nil {
		return nil, &NotFoundError{Name: name, Err: err}
	}

	class := c.search(Chain{}, schema.Root, target)
	if class == nil {
		return nil, &NotFoundError{Name: name}
	}
	c.decoded.Add(key, class)
	return class, nil
}

func (c *Codec) search(prefix Chain, parent *schema.Class, target Chain) *schema.Class {
	for _, sub := range c.registry.Subclasses(parent) {
		candidate := prefix.Append(sub.Name)
		if candidate.Equal(target) {
			return sub
		}
		if !target.HasPrefix(candidate) {
			continue
		}
		if found := c.search(candidate, sub, target); found != nil {
			return found
		}
	}
	return nil
}
