package oop

import (
	"errors"
	"fmt"
)

// Reasons of declaration errors. They are wrapped in *DeclError and can be
// tested with errors.Is.
var (
	ErrInvalidInheritance   = errors.New("invalid parent class or interface")
	ErrNotInterface         = errors.New("inherited template is not an interface")
	ErrDuplicateInheritance = errors.New("duplicate inheritance")
	ErrDuplicateMethod      = errors.New("duplicate method declaration")
	ErrMethodClash          = errors.New("method clashes with field")
	ErrMethodBound          = errors.New("method bound to this class already exists")
	ErrCtorInInterface      = errors.New("constructor declaration is not allowed in interface")
	ErrAbstractInClass      = errors.New("abstract methods can only be declared in interfaces")
	ErrAlreadyInherited     = errors.New("interface has been already inherited")
	ErrNotClass             = errors.New("template is not a class")
	ErrNoAbstractImpl       = errors.New("abstract class implementation cannot be found")
	ErrNotParametrizable    = errors.New("only interfaces can be parametrized")
)

// ErrNoActiveCall is returned when super dispatch is requested without an
// active proxy method call.
var ErrNoActiveCall = errors.New("super is called outside of class context")

// DeclError is returned when a class or interface declaration, an instance
// extension or an instantiation is malformed.
type DeclError struct {
	// "class" or "interface".
	Kind string
	// Display name of the template being declared. May be empty.
	Name string
	// Name of the offending member, if any.
	Member string
	Err    error
}

func (e *DeclError) Error() string {
	what := e.Kind
	if e.Name != "" {
		what += " " + e.Name
	}
	if e.Member != "" {
		return fmt.Sprintf("%s: %s: %v", what, describeMethod(e.Member), e.Err)
	}
	return fmt.Sprintf("%s: %v", what, e.Err)
}

func (e *DeclError) Unwrap() error { return e.Err }

// MethodNotFoundError is returned when a method cannot be resolved, either on
// the receiver itself or among the ancestors during super dispatch.
type MethodNotFoundError struct {
	Class  string
	Method string
	Argc   int
}

func (e *MethodNotFoundError) Error() string {
	cls := e.Class
	if cls != "" {
		cls += "."
	}
	return fmt.Sprintf("method '%s%s(%d)' not found", cls, describeMethod(e.Method), e.Argc)
}

// NotImplementedError is returned when an abstract method stub that has not
// been overridden is invoked.
type NotImplementedError struct {
	Method string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("abstract method '%s(...)' is not implemented", e.Method)
}

func describeMethod(name string) string {
	if name == ConstructorName {
		return "constructor"
	}
	return name
}

// loggedError marks an error that a proxy method has already reported, so
// that enclosing proxy methods up the call chain don't report it again.
type loggedError struct{ error }

func (e loggedError) Unwrap() error { return e.error }
