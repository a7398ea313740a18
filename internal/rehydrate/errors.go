package rehydrate

import (
	"errors"
	"fmt"

	"github.com/vk/rehydrator/internal/scenegraph"
	"github.com/vk/rehydrator/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// ErrReservedName is returned when a caller assigns to a name the engine keeps
// for itself.
var ErrReservedName = errors.New("name is reserved")

// UnsupportedTypeError is returned when a leaf field's payload kind has no
// construction rule.
type UnsupportedTypeError struct {
	Class   string
	Field   string
	Payload scenegraph.PayloadKind
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("class '%s': field '%s': payload kind '%s' not supported", e.Class, e.Field, e.Payload)
}

// NotAPersistedNodeError is returned when a container has no data node or no
// identity marker.
type NotAPersistedNodeError struct {
	Container string
}

func (e *NotAPersistedNodeError) Error() string {
	return fmt.Sprintf("collection '%s' is not a persisted instance", e.Container)
}

// AlreadyPersistedError is returned when Construct is given a container that
// already holds a persisted instance.
type AlreadyPersistedError struct {
	Container string
	Prefix    string
}

func (e *AlreadyPersistedError) Error() string {
	return fmt.Sprintf("collection '%s' already holds a persisted %s", e.Container, e.Prefix)
}

// FieldTypeError is returned when a value does not fit the field it is
// assigned to.
type FieldTypeError struct {
	Field string
	Kind  schema.FieldKind
	Got   string
	Err   error
}

func (e *FieldTypeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("field '%s' (%s): cannot assign %s: %v", e.Field, e.Kind, e.Got, e.Err)
	}
	return fmt.Sprintf("field '%s' (%s): cannot assign %s", e.Field, e.Kind, e.Got)
}

func (e *FieldTypeError) Unwrap() error { return e.Err }

func describe(v any) string {
	switch v := v.(type) {
	case nil:
		return "nil"
	case cty.Value:
		return v.Type().FriendlyName()
	case *scenegraph.Collection:
		return v.String()
	case *scenegraph.Object:
		return v.String()
	case *Instance:
		return "instance of " + v.class.Name
	default:
		return fmt.Sprintf("%T", v)
	}
}
