package oop

import (
	"reflect"

	"github.com/google/uuid"
)

// Cloner is implemented by values with a custom clone hook. The hook should
// register the clone it produces with m.Put before cloning anything it
// references, so that cycles resolve to the clone.
type Cloner interface {
	CloneWith(m *CloneMap) any
}

// NotClonable is implemented by values that Clone returns unchanged.
type NotClonable interface {
	NotClonable()
}

// CloneMap records values already cloned during one Clone call, keyed by
// identity.
type CloneMap struct {
	seen map[any]any
}

// NewCloneMap returns an empty CloneMap.
func NewCloneMap() *CloneMap { return &CloneMap{make(map[any]any)} }

// Get returns the clone already produced for v.
func (m *CloneMap) Get(v any) (any, bool) {
	k, ok := identity(v)
	if !ok {
		return nil, false
	}
	c, ok := m.seen[k]
	return c, ok
}

// Put records c as the clone of v.
func (m *CloneMap) Put(v, c any) {
	if k, ok := identity(v); ok {
		m.seen[k] = c
	}
}

type refKey struct {
	typ reflect.Type
	ptr uintptr
	len int
}

// identity returns a comparable key identifying a reference value.
func identity(v any) (any, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map:
		if rv.IsNil() {
			return nil, false
		}
		return refKey{rv.Type(), rv.Pointer(), 0}, true
	case reflect.Slice:
		if rv.Len() == 0 {
			return nil, false
		}
		return refKey{rv.Type(), rv.Pointer(), rv.Len()}, true
	}
	return nil, false
}

// Clone makes a deep copy of a value:
//
//   - nil, strings, booleans and numbers are returned unchanged, as are values
//     implementing NotClonable, functions and values of types not listed
//     below;
//
//   - values implementing Cloner delegate to their hook;
//
//   - slices of type []any are cloned element-wise;
//
//   - Fields and map[string]any are cloned entry-wise;
//
//   - a class is cloned by declaring an empty subclass of it; an interface by
//     copying it under a new identity;
//
//   - objects are cloned field by field and get a new identity.
//
// A value reachable more than once from v is cloned once; all references to
// it in the result point at that clone.
func Clone(v any) any {
	return CloneWith(v, nil)
}

// CloneWith is like Clone, but records clones in m. It is meant for Cloner
// hooks cloning the values they reference.
func CloneWith(v any, m *CloneMap) any {
	switch v := v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, uintptr,
		float32, float64, complex64, complex128:
		return v
	case NotClonable:
		return v
	}
	if m == nil {
		m = NewCloneMap()
	}
	if c, ok := m.Get(v); ok {
		return c
	}
	switch v := v.(type) {
	case Cloner:
		return v.CloneWith(m)
	case []any:
		c := make([]any, len(v))
		m.Put(v, c)
		for i, e := range v {
			c[i] = CloneWith(e, m)
		}
		return c
	case Fields:
		c := make(Fields, len(v))
		m.Put(v, c)
		for k, e := range v {
			c[k] = CloneWith(e, m)
		}
		return c
	case map[string]any:
		c := make(map[string]any, len(v))
		m.Put(v, c)
		for k, e := range v {
			c[k] = CloneWith(e, m)
		}
		return c
	case *Template:
		var c *Template
		if v.kind == KindClass {
			c = v.subclass()
		} else {
			c = v.cloneInterface()
		}
		m.Put(v, c)
		return c
	case *Object:
		return v.cloneWith(m)
	}
	return v
}

func (o *Object) cloneWith(m *CloneMap) *Object {
	// A shared class is never changed by Extend, so a clone of a plain
	// object shares it. The instance-private class of an extended object
	// is copied instead.
	c := &Object{id: uuid.New(), class: o.class, fields: make(Fields, len(o.fields))}
	if o.extended {
		c.class = newTemplate(o.class.kind, o.class.name)
		c.class.copyState(o.class)
		c.extended = true
	}
	m.Put(o, c)
	for k, v := range o.fields {
		c.fields[k] = CloneWith(v, m)
	}
	return c
}
