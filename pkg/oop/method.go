package oop

import (
	"errors"

	"go.uber.org/zap"
)

// ProxyMethod is a proxy around a method body. It records the template that
// owns the override, which is where super dispatch starts, and reports
// failures of the body to the diagnostic sink.
type ProxyMethod struct {
	name     string
	body     Body
	owner    *Template
	abstract bool
	// Override with the same name and owner replaced by this one. Only set
	// on methods of instance-private templates that are extended more than
	// once.
	shadowed *ProxyMethod
}

// wrap makes a proxy method. Bodies are always raw: a *ProxyMethod cannot be
// passed where a Body is expected, so proxies never wrap proxies.
func wrap(name string, body Body, owner *Template) *ProxyMethod {
	return &ProxyMethod{name: name, body: body, owner: owner}
}

// rebind makes a proxy with the body of m owned by another template.
func (m *ProxyMethod) rebind(owner *Template) *ProxyMethod {
	return &ProxyMethod{name: m.name, body: m.body, owner: owner, abstract: m.abstract}
}

// moveTo returns m rebound to another template if it is bound to from,
// along with the methods it shadows. Other methods are returned as is.
func (m *ProxyMethod) moveTo(from, to *Template) *ProxyMethod {
	if m == nil || m.owner != from {
		return m
	}
	n := m.rebind(to)
	n.shadowed = m.shadowed.moveTo(from, to)
	return n
}

// Name returns the name of the method; the constructor has an empty name.
func (m *ProxyMethod) Name() string { return m.name }

// Owner returns the template the method is bound to.
func (m *ProxyMethod) Owner() *Template { return m.owner }

// IsAbstract returns whether the method is an abstract stub.
func (m *ProxyMethod) IsAbstract() bool { return m.abstract }

// Invoke calls the method with the given receiver. The Call passed to the
// body makes the method the active call for super dispatch; nested
// invocations get their own Call, so the active call is restored naturally
// when they return.
//
// An error returned by the body is logged with the method name and argument
// count before being returned; a panic is logged with a stack trace and
// re-raised.
func (m *ProxyMethod) Invoke(this *Object, args ...any) (ret any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("method panicked",
				"method", describeMethod(m.name), "argc", len(args), "panic", r,
				zap.StackSkip("stack", 1))
			panic(r)
		}
	}()
	ret, err = m.body(&Call{This: this, method: m}, args...)
	if err != nil {
		var logged loggedError
		if !errors.As(err, &logged) {
			logger.Warnw("method failed",
				"method", describeMethod(m.name), "argc", len(args), "error", err)
			err = loggedError{err}
		}
	}
	return ret, err
}

// Call is the context of a running method: the receiver and the active
// proxy method.
type Call struct {
	This   *Object
	method *ProxyMethod
}

// Method returns the active proxy method.
func (c *Call) Method() *ProxyMethod {
	if c == nil {
		return nil
	}
	return c.method
}

// Super calls the nearest ancestor implementation of the active method with
// the same receiver.
func (c *Call) Super(args ...any) (any, error) {
	if c == nil || c.method == nil {
		return nil, ErrNoActiveCall
	}
	m := c.resolve(c.method.name)
	if m == nil {
		return nil, &MethodNotFoundError{
			Class: c.This.Class().Name(), Method: c.method.name, Argc: len(args)}
	}
	return m.Invoke(c.This, args...)
}

// SoftSuper is like Super, but returns nil without an error when no ancestor
// implements the method.
func (c *Call) SoftSuper(args ...any) (any, error) {
	if c == nil || c.method == nil {
		return nil, ErrNoActiveCall
	}
	m := c.resolve(c.method.name)
	if m == nil {
		return nil, nil
	}
	return m.Invoke(c.This, args...)
}

// GetSuper returns the nearest ancestor implementation of the named method
// without calling it, or nil if there is none.
func (c *Call) GetSuper(name string) (*ProxyMethod, error) {
	if c == nil || c.method == nil {
		return nil, ErrNoActiveCall
	}
	return c.resolve(name), nil
}

// resolve walks the parent chain starting at the parent of the owner of the
// active method.
func (c *Call) resolve(name string) *ProxyMethod {
	if name == c.method.name && c.method.shadowed != nil {
		return c.method.shadowed
	}
	for t := c.method.owner.parent; t != nil; t = t.parent {
		if m := t.methods[name]; m != nil {
			return m
		}
	}
	return nil
}
