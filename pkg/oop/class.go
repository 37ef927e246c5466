package oop

import (
	"sort"
	"strings"

	"src.zkit.sh/pkg/must"
)

// AbstractMarker is a marker interface. A class that inherits it directly is
// abstract: instantiating it resolves a concrete implementation instead (see
// SetAbstractResolver). The marker does not propagate, so subclasses of an
// abstract class are concrete.
var AbstractMarker = newMarker("Abstract")

func newMarker(name string) *Template {
	t := newTemplate(KindInterface, name)
	t.nonPropagating = true
	return t
}

// Class declares a class. The first element of inherit may be the parent
// class; every other element must be an interface.
//
// The method table of the new class is seeded with the parent's methods, then
// the methods of the interfaces are mixed in, then defs are applied; methods
// declared by the class take precedence over methods contributed by
// interfaces. Finally statics of the interfaces and of the parent are
// snapshotted into the class.
func Class(name string, inherit []*Template, defs ...Def) (*Template, error) {
	t, err := makeTemplate(KindClass, name, inherit)
	if err != nil {
		return nil, err
	}
	if p := t.parent; p != nil {
		for n, m := range p.methods {
			t.methods[n] = m
		}
		for k, v := range p.defaults {
			t.defaults[k] = v
		}
	}
	ifaces := interfacesOf(inherit)
	for _, in := range ifaces {
		if _, err := t.copyMethods(in); err != nil {
			return nil, err
		}
	}
	if err := t.mix(defs); err != nil {
		return nil, err
	}
	for _, in := range ifaces {
		t.inheritStatics(in)
	}
	if t.parent != nil {
		t.inheritStatics(t.parent)
	}
	return t, nil
}

// MustClass is like Class, but panics on error. It is meant for
// package-level declarations.
func MustClass(name string, inherit []*Template, defs ...Def) *Template {
	return must.OK1(Class(name, inherit, defs...))
}

// Interface declares an interface. Interfaces may inherit other interfaces,
// whose methods are mixed into the new interface; they never have a parent
// class and never declare a constructor.
func Interface(name string, inherit []*Template, defs ...Def) (*Template, error) {
	t, err := makeTemplate(KindInterface, name, inherit)
	if err != nil {
		return nil, err
	}
	for _, in := range inherit {
		if _, err := t.copyMethods(in); err != nil {
			return nil, err
		}
		t.inheritStatics(in)
	}
	names := make(map[string]bool)
	for _, d := range defs {
		switch d.kind {
		case defPrototype:
			t.protoInits = append(t.protoInits, d.prototype)
			continue
		case defClazz:
			d.clazz(t)
			continue
		}
		if d.name == ConstructorName {
			return nil, t.declError("", ErrCtorInInterface)
		}
		if names[d.name] {
			return nil, t.declError(d.name, ErrDuplicateMethod)
		}
		names[d.name] = true
		if d.kind == defAbstract {
			m := wrap(d.name, abstractBody(d.name), t)
			m.abstract = true
			t.methods[d.name] = m
		} else {
			t.methods[d.name] = wrap(d.name, d.body, t)
		}
	}
	return t, nil
}

// MustInterface is like Interface, but panics on error.
func MustInterface(name string, inherit []*Template, defs ...Def) *Template {
	return must.OK1(Interface(name, inherit, defs...))
}

func interfacesOf(inherit []*Template) []*Template {
	if len(inherit) > 0 && inherit[0].kind == KindClass {
		return inherit[1:]
	}
	return inherit
}

// mix applies a method list to a class.
func (t *Template) mix(defs []Def) error {
	names := make(map[string]bool)
	for _, d := range defs {
		switch d.kind {
		case defPrototype:
			d.prototype(t, t.defaults)
			continue
		case defClazz:
			d.clazz(t)
			continue
		case defAbstract:
			return t.declError(d.name, ErrAbstractInClass)
		}
		if names[d.name] {
			return t.declError(d.name, ErrDuplicateMethod)
		}
		if _, isField := t.defaults[d.name]; isField {
			return t.declError(d.name, ErrMethodClash)
		}
		t.methods[d.name] = wrap(d.name, d.body, t)
		names[d.name] = true
	}
	return nil
}

// copyMethods mixes the methods of an interface into t, rebinding them to t,
// and replays the default field initializers of the interface. An abstract
// stub never replaces an existing method, and a concrete method always
// replaces an abstract stub. It returns the number of stubs skipped.
func (t *Template) copyMethods(in *Template) (int, error) {
	if t.kind == KindClass {
		for _, init := range in.protoInits {
			init(t, t.defaults)
		}
	} else {
		t.protoInits = append(t.protoInits, in.protoInits...)
	}
	skipped := 0
	for _, name := range in.MethodNames() {
		m := in.methods[name]
		if old := t.methods[name]; old != nil {
			if m.abstract {
				skipped++
				continue
			}
			if old.owner == t && !old.abstract {
				return 0, t.declError(name, ErrMethodBound)
			}
		}
		t.methods[name] = m.rebind(t)
	}
	return skipped, nil
}

// inheritStatics snapshots the statics of src that t doesn't define and that
// are not private.
func (t *Template) inheritStatics(src *Template) {
	keys := make([]string, 0, len(src.statics))
	for k := range src.statics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.HasPrefix(k, PrivatePrefix) {
			continue
		}
		if _, ok := t.statics[k]; ok {
			continue
		}
		t.statics[k] = Clone(src.statics[k])
	}
}

// With returns a copy of an interface whose default field values are extended
// with the given fields.
func (t *Template) With(defaults Fields) (*Template, error) {
	if t.kind != KindInterface {
		return nil, t.declError("", ErrNotParametrizable)
	}
	c := t.cloneInterface()
	values := make(Fields, len(defaults))
	for k, v := range defaults {
		values[k] = v
	}
	c.protoInits = append(c.protoInits, func(_ *Template, d Fields) {
		for k, v := range values {
			d[k] = v
		}
	})
	return c, nil
}

// cloneInterface makes an interface with a new identity, the same ancestry,
// the methods of t rebound to it and a snapshot of the statics of t.
func (t *Template) cloneInterface() *Template {
	c := newTemplate(KindInterface, t.name)
	c.nonPropagating = t.nonPropagating
	for _, a := range t.ancestors {
		c.addAncestor(a)
	}
	for n, m := range t.methods {
		c.methods[n] = m.rebind(c)
	}
	for k, v := range t.statics {
		c.statics[k] = Clone(v)
	}
	c.protoInits = append(c.protoInits, t.protoInits...)
	return c
}

// subclass makes an empty subclass of a class. The subclass has the same
// display name.
func (t *Template) subclass() *Template {
	// A fresh class with a single parent cannot have conflicts.
	return must.OK1(Class(t.name, []*Template{t}))
}
