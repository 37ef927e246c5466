package oop

// Names with special meaning in method lists.
const (
	// ConstructorName is the name of the constructor in method tables.
	ConstructorName = ""
	// PrototypeName is the name of per-instance default field initializers.
	PrototypeName = "$prototype"
	// ClazzName is the name of class-level static initializers.
	ClazzName = "$clazz"
	// PrivatePrefix starts names of statics that are never inherited.
	PrivatePrefix = "$"
)

// Fields maps field names to values. It is used for instance fields, default
// field values and statics.
type Fields map[string]any

// Body is the Go implementation of a method. The Call gives access to the
// receiver and to super dispatch.
type Body func(c *Call, args ...any) (any, error)

type defKind int

const (
	defMethod defKind = iota
	defAbstract
	defPrototype
	defClazz
)

// Def is one entry of a method list passed to Class, Interface, New or
// Extend. Defs are built with Constructor, Method, Abstract, Prototype and
// Clazz.
type Def struct {
	name      string
	kind      defKind
	body      Body
	prototype func(t *Template, defaults Fields)
	clazz     func(t *Template)
}

// Name returns the name the entry is declared with.
func (d Def) Name() string { return d.name }

// Constructor declares the constructor.
func Constructor(body Body) Def {
	return Def{name: ConstructorName, body: body}
}

// Method declares an instance method.
func Method(name string, body Body) Def {
	return Def{name: name, body: body}
}

// Abstract declares an abstract method in an interface. Until it is
// overridden, calling it fails with *NotImplementedError.
func Abstract(name string) Def {
	return Def{name: name, kind: defAbstract}
}

// Prototype declares an initializer of default field values. It is called
// with the template being declared before the methods that follow it in the
// list are attached.
func Prototype(f func(t *Template, defaults Fields)) Def {
	return Def{name: PrototypeName, kind: defPrototype, prototype: f}
}

// Clazz declares an initializer of statics. It is called with the template
// being declared.
func Clazz(f func(t *Template)) Def {
	return Def{name: ClazzName, kind: defClazz, clazz: f}
}

func abstractBody(name string) Body {
	return func(*Call, ...any) (any, error) {
		return nil, &NotImplementedError{name}
	}
}
