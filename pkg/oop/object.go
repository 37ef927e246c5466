package oop

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"src.zkit.sh/pkg/must"
)

// Object is an instance of a class.
type Object struct {
	id uuid.UUID
	// Runtime class. Replaced once by an instance-private subclass when the
	// object is extended.
	class    *Template
	fields   Fields
	extended bool
}

// ID returns the identity of the object. It changes when the runtime class
// is swapped by Extend; clones get new identities.
func (o *Object) ID() uuid.UUID { return o.id }

// Class returns the runtime class of the object.
func (o *Object) Class() *Template { return o.class }

// Get returns the value of a field. Fields that have not been set on the
// object fall back to the default values of its class.
func (o *Object) Get(name string) (any, bool) {
	if v, ok := o.fields[name]; ok {
		return v, true
	}
	return o.class.Default(name)
}

// Set sets a field of the object.
func (o *Object) Set(name string, v any) { o.fields[name] = v }

// Delete removes a field from the object. A default value of the class
// becomes visible again.
func (o *Object) Delete(name string) { delete(o.fields, name) }

// Has returns whether the object has a field, including defaults.
func (o *Object) Has(name string) bool {
	_, ok := o.Get(name)
	return ok
}

// FieldNames returns the sorted names of the fields set on the object.
func (o *Object) FieldNames() []string {
	names := make([]string, 0, len(o.fields))
	for name := range o.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Method returns the method with the given name from the runtime class, or
// nil.
func (o *Object) Method(name string) *ProxyMethod { return o.class.methods[name] }

// Call calls a method of the object.
func (o *Object) Call(name string, args ...any) (any, error) {
	m := o.Method(name)
	if m == nil {
		return nil, &MethodNotFoundError{Class: o.class.name, Method: name, Argc: len(args)}
	}
	return m.Invoke(o, args...)
}

func (o *Object) String() string {
	return fmt.Sprintf("<%s %s>", o.class, o.id)
}

// New instantiates a class. The constructor, if any, is called with args.
//
// If the last argument is a []Def, an anonymous subclass of t is declared on
// the fly with that method list and instantiated instead; interfaces
// immediately preceding the method list are mixed into the anonymous
// subclass. The anonymous subclass has the same display name as t.
//
// If t is abstract, a concrete implementation is instantiated instead.
func (t *Template) New(args ...any) (*Object, error) {
	if t.kind != KindClass {
		return nil, t.declError("", ErrNotClass)
	}
	if n := len(args); n > 0 {
		if defs, ok := args[n-1].([]Def); ok {
			k := n - 2
			for k >= 0 {
				if in, ok := args[k].(*Template); ok && in.kind == KindInterface {
					k--
				} else {
					break
				}
			}
			inherit := []*Template{t}
			for _, a := range args[k+1 : n-1] {
				inherit = append(inherit, a.(*Template))
			}
			anon, err := Class(t.name, inherit, defs...)
			if err != nil {
				return nil, err
			}
			return anon.instantiate(args[:k+1])
		}
	}
	if t.IsAbstract() {
		return t.newAbstract(args)
	}
	return t.instantiate(args)
}

// MustNew is like New, but panics on error.
func (t *Template) MustNew(args ...any) *Object {
	return must.OK1(t.New(args...))
}

func (t *Template) instantiate(args []any) (*Object, error) {
	o := &Object{id: uuid.New(), class: t, fields: make(Fields)}
	if ctor := t.methods[ConstructorName]; ctor != nil {
		if _, err := ctor.Invoke(o, args...); err != nil {
			return nil, err
		}
	}
	return o, nil
}

var abstractResolver func(*Template) *Template

// SetAbstractResolver installs the function used to find a concrete
// implementation of an abstract class. The resolver returns nil when it
// knows no implementation.
func SetAbstractResolver(f func(*Template) *Template) {
	abstractResolver = f
}

func (t *Template) newAbstract(args []any) (*Object, error) {
	if abstractResolver != nil {
		if impl := abstractResolver(t); impl != nil {
			return impl.New(args...)
		}
	}
	if t.methods[ConstructorName] != nil {
		return t.subclass().instantiate(args)
	}
	return nil, t.declError("", ErrNoAbstractImpl)
}

// Implement instantiates an interface through an anonymous class made of the
// methods of the interface and the given method list.
func Implement(in *Template, defs ...Def) (*Object, error) {
	if in == nil || in.kind != KindInterface {
		return nil, &DeclError{Kind: "interface", Name: fmt.Sprint(in), Err: ErrNotInterface}
	}
	c, err := Class(in.name, []*Template{in}, defs...)
	if err != nil {
		return nil, err
	}
	return c.instantiate(nil)
}

// Extend customizes the object with interfaces and then with methods, which
// take precedence over methods of the interfaces.
//
// The first time an object is extended, its runtime class is swapped for a
// new, otherwise empty subclass of it, so that Super in the added methods
// reaches the original implementations; the object also gets a new identity.
// Later calls add to that subclass. A method that redefines a method added by
// an earlier Extend call shadows it, and Super in the new method reaches the
// shadowed one.
//
// The method list is checked like the one of a class declaration. When any
// check fails, the object is left as it was.
//
// A constructor in defs is called as an initializer after all other methods
// have been added.
func (o *Object) Extend(ifaces []*Template, defs ...Def) error {
	base := o.class
	if !o.extended {
		base = o.class.subclass()
	}
	staged := &Template{id: base.id, kind: base.kind, name: base.name}
	staged.copyState(base)
	init, err := o.extendStaged(staged, ifaces, defs)
	if err != nil {
		return err
	}
	base.copyState(staged)
	if !o.extended {
		o.class = base
		o.id = uuid.New()
		o.extended = true
	}
	if init != nil {
		if _, err := wrap(ConstructorName, init, base).Invoke(o); err != nil {
			return err
		}
	}
	return nil
}

// extendStaged applies the arguments of Extend to c and returns the body of
// the initializer, if any.
func (o *Object) extendStaged(c *Template, ifaces []*Template, defs []Def) (Body, error) {
	for _, in := range ifaces {
		if in == nil || in.kind != KindInterface {
			return nil, c.declError("", fmt.Errorf("%w: %v", ErrNotInterface, in))
		}
		if _, ok := c.ancestry[in.id]; ok {
			return nil, c.declError("", fmt.Errorf("%w: %s", ErrAlreadyInherited, in))
		}
		if err := c.inherit(in); err != nil {
			return nil, err
		}
		if _, err := c.copyMethods(in); err != nil {
			return nil, err
		}
		c.inheritStatics(in)
	}
	var init Body
	names := make(map[string]bool)
	for _, d := range defs {
		switch d.kind {
		case defPrototype:
			d.prototype(c, c.defaults)
			continue
		case defClazz:
			d.clazz(c)
			continue
		case defAbstract:
			return nil, c.declError(d.name, ErrAbstractInClass)
		}
		if names[d.name] {
			return nil, c.declError(d.name, ErrDuplicateMethod)
		}
		names[d.name] = true
		if d.name == ConstructorName {
			init = d.body
			continue
		}
		_, isField := o.fields[d.name]
		_, isDefault := c.defaults[d.name]
		if isField || isDefault {
			return nil, c.declError(d.name, ErrMethodClash)
		}
		m := wrap(d.name, d.body, c)
		if old := c.methods[d.name]; old != nil && old.owner == c {
			m.shadowed = old
		}
		c.methods[d.name] = m
	}
	return init, nil
}
