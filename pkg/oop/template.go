// Package oop implements the object runtime: classes with single inheritance,
// interfaces mixed into classes, proxy methods with super dispatch, instances
// that can be extended after construction, and deep cloning.
//
// Classes and interfaces are both represented by *Template. A template is
// declared from a method list:
//
//	A := oop.MustClass("A", nil,
//		oop.Constructor(func(c *oop.Call, args ...any) (any, error) {
//			c.This.Set("x", args[0])
//			return nil, nil
//		}),
//		oop.Method("f", func(c *oop.Call, args ...any) (any, error) {
//			return "A.f", nil
//		}))
//
//	B := oop.MustClass("B", []*oop.Template{A},
//		oop.Method("f", func(c *oop.Call, args ...any) (any, error) {
//			s, err := c.Super(args...)
//			return "B." + s.(string), err
//		}))
//
// The runtime follows a single-threaded cooperative model. Declarations are
// expected to happen during initialization; a template that is being
// declared or an instance that is being extended must not be used from other
// goroutines at the same time.
package oop

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/google/uuid"
	"src.zkit.sh/pkg/logutil"
)

var logger = logutil.GetLogger("oop")

// Kind distinguishes class templates from interface templates.
type Kind int

// Kinds of templates.
const (
	KindClass Kind = iota
	KindInterface
)

func (k Kind) String() string {
	if k == KindInterface {
		return "interface"
	}
	return "class"
}

// Template is the descriptor shared by classes and interfaces.
type Template struct {
	id   uuid.UUID
	kind Kind
	name string
	// Parent class; always nil for interfaces.
	parent *Template
	// Flattened transitive ancestry, keyed by identity.
	ancestry map[uuid.UUID]*Template
	// Ancestry in the order entries were added, for deterministic
	// iteration.
	ancestors []*Template
	methods   map[string]*ProxyMethod
	defaults  Fields
	statics   Fields
	// Initializers of default field values declared by an interface; they
	// are replayed on every class the interface is mixed into.
	protoInits []func(*Template, Fields)
	// Non-propagating templates are not copied into the ancestry of
	// templates that inherit from a template inheriting them.
	nonPropagating bool
}

func newTemplate(kind Kind, name string) *Template {
	return &Template{
		id:       uuid.New(),
		kind:     kind,
		name:     name,
		ancestry: make(map[uuid.UUID]*Template),
		methods:  make(map[string]*ProxyMethod),
		defaults: make(Fields),
		statics:  make(Fields),
	}
}

// copyState replaces the inheritance, methods, defaults and statics of t with
// copies of those of src. Methods bound to src are rebound to t.
func (t *Template) copyState(src *Template) {
	t.parent = src.parent
	t.ancestry = maps.Clone(src.ancestry)
	t.ancestors = slices.Clone(src.ancestors)
	t.methods = make(map[string]*ProxyMethod, len(src.methods))
	for n, m := range src.methods {
		t.methods[n] = m.moveTo(src, t)
	}
	t.defaults = maps.Clone(src.defaults)
	t.statics = maps.Clone(src.statics)
	t.protoInits = slices.Clone(src.protoInits)
	t.nonPropagating = src.nonPropagating
}

// makeTemplate stamps out a template of the given kind and builds its
// ancestry from the inheritance list. For classes, a leading class in the
// list becomes the parent; every other entry must be an interface.
func makeTemplate(kind Kind, name string, inherit []*Template) (*Template, error) {
	t := newTemplate(kind, name)
	for i, in := range inherit {
		if in == nil {
			return nil, t.declError("", fmt.Errorf("%w: nil at position %d", ErrInvalidInheritance, i))
		}
		if in.kind == KindClass {
			if kind == KindInterface || i > 0 {
				return nil, t.declError("", fmt.Errorf("%w: %s at position %d", ErrNotInterface, in, i))
			}
			t.parent = in
		}
		if err := t.inherit(in); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// inherit inserts in and the propagating part of its ancestry into the
// ancestry of t.
func (t *Template) inherit(in *Template) error {
	if _, dup := t.ancestry[in.id]; dup {
		return t.declError("", fmt.Errorf("%w: %s", ErrDuplicateInheritance, in))
	}
	t.addAncestor(in)
	for _, a := range in.ancestors {
		if a.nonPropagating {
			continue
		}
		if _, dup := t.ancestry[a.id]; dup {
			return t.declError("", fmt.Errorf("%w: %s (through %s)", ErrDuplicateInheritance, a, in))
		}
		t.addAncestor(a)
	}
	return nil
}

func (t *Template) addAncestor(a *Template) {
	t.ancestry[a.id] = a
	t.ancestors = append(t.ancestors, a)
}

func (t *Template) declError(member string, err error) error {
	return &DeclError{Kind: t.kind.String(), Name: t.name, Member: member, Err: err}
}

// ID returns the process-unique identity of the template.
func (t *Template) ID() uuid.UUID { return t.id }

// Kind returns whether the template is a class or an interface.
func (t *Template) Kind() Kind { return t.kind }

// Name returns the display name of the template, which may be empty.
func (t *Template) Name() string { return t.name }

// SetName sets the display name of the template if it doesn't have one yet.
// It reports whether the name was set.
func (t *Template) SetName(name string) bool {
	if t.name != "" {
		return false
	}
	t.name = name
	return true
}

// Parent returns the parent class, or nil.
func (t *Template) Parent() *Template { return t.parent }

// Ancestors returns the flattened ancestry in inheritance order.
func (t *Template) Ancestors() []*Template {
	return append([]*Template(nil), t.ancestors...)
}

// IsAbstract returns whether the class directly inherits AbstractMarker.
func (t *Template) IsAbstract() bool {
	_, ok := t.ancestry[AbstractMarker.id]
	return ok
}

// IsInherit returns whether other is a proper ancestor of t.
func (t *Template) IsInherit(other *Template) bool {
	if other == nil || other == t {
		return false
	}
	if other.kind == KindClass && t.kind == KindClass {
		for p := t.parent; p != nil; p = p.parent {
			if p == other {
				return true
			}
		}
		return false
	}
	return t.ancestry[other.id] == other
}

// Method returns the method with the given name, or nil.
func (t *Template) Method(name string) *ProxyMethod { return t.methods[name] }

// MethodNames returns the sorted names of all methods in the method table,
// including the constructor if there is one.
func (t *Template) MethodNames() []string {
	names := make([]string, 0, len(t.methods))
	for name := range t.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the default value of an instance field.
func (t *Template) Default(name string) (any, bool) {
	v, ok := t.defaults[name]
	return v, ok
}

// Static returns a static field.
func (t *Template) Static(name string) (any, bool) {
	v, ok := t.statics[name]
	return v, ok
}

// SetStatic sets a static field. It is normally called from a Clazz
// initializer.
func (t *Template) SetStatic(name string, v any) { t.statics[name] = v }

// Statics returns a copy of the statics.
func (t *Template) Statics() Fields {
	s := make(Fields, len(t.statics))
	for k, v := range t.statics {
		s[k] = v
	}
	return s
}

func (t *Template) String() string {
	if t.name != "" {
		return t.name
	}
	return fmt.Sprintf("<%s %s>", t.kind, t.id)
}

// InstanceOf returns whether v is an *Object whose runtime class is t or has
// t in its ancestry. It returns false when t is nil.
func InstanceOf(v any, t *Template) bool {
	o, ok := v.(*Object)
	if !ok || o == nil || t == nil {
		return false
	}
	c := o.class
	if c == t {
		return true
	}
	_, ok = c.ancestry[t.id]
	return ok
}
