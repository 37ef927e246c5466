package oop

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"src.zkit.sh/pkg/logutil"
	"src.zkit.sh/pkg/must"
	"src.zkit.sh/pkg/testutil"
	"src.zkit.sh/pkg/tt"
)

func TestSuper_ResolutionOrder(t *testing.T) {
	var trace []string
	step := func(name string, super bool) Body {
		return func(c *Call, args ...any) (any, error) {
			trace = append(trace, name)
			if super {
				return c.Super(args...)
			}
			return nil, nil
		}
	}
	a := MustClass("A", nil, Method("f", step("A", false)))
	b := MustClass("B", inherit(a), Method("f", step("B", true)))
	c := MustClass("C", inherit(b), Method("f", step("C", true)))

	must.OK1(c.MustNew().Call("f"))

	if diff := cmp.Diff([]string{"C", "B", "A"}, trace); diff != "" {
		t.Errorf("call trace (-want +got):\n%s", diff)
	}
}

func TestSuper_SkipsLevelsWithoutOverride(t *testing.T) {
	a := MustClass("A", nil, Method("f", ret("A")))
	b := MustClass("B", inherit(a))
	c := MustClass("C", inherit(b), Method("f", prefixSuper("C>")))

	tt.Test(t, tt.Fn("Call", c.MustNew().Call), tt.Table{
		tt.Args("f").Rets("C>A", nil),
	})
}

func TestSuper_Arguments(t *testing.T) {
	a := MustClass("A", nil, Method("add", func(_ *Call, args ...any) (any, error) {
		return 10 + args[0].(int), nil
	}))
	b := MustClass("B", inherit(a), Method("add", func(c *Call, args ...any) (any, error) {
		v, err := c.Super(args...)
		if err != nil {
			return nil, err
		}
		return v.(int) * 10, nil
	}))
	tt.Test(t, tt.Fn("Call", b.MustNew().Call), tt.Table{
		tt.Args("add", 10).Rets(200, nil),
	})
}

func TestSuper_Constructor(t *testing.T) {
	a := MustClass("A", nil, Constructor(func(c *Call, args ...any) (any, error) {
		c.This.Set("a", args[0])
		return nil, nil
	}))
	b := MustClass("B", inherit(a), Constructor(func(c *Call, args ...any) (any, error) {
		c.This.Set("b", true)
		return c.Super(args...)
	}))
	o := b.MustNew("x")
	if v, _ := o.Get("a"); v != "x" {
		t.Errorf("a = %v, want x", v)
	}
	if v, _ := o.Get("b"); v != true {
		t.Errorf("b = %v, want true", v)
	}
}

func TestSuper_NotFound(t *testing.T) {
	a := MustClass("A", nil, Method("f", func(c *Call, args ...any) (any, error) {
		return c.Super(args...)
	}))
	_, err := a.MustNew().Call("f", 1, 2)
	var notFound *MethodNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("got error %v, want *MethodNotFoundError", err)
	}
	if diff := cmp.Diff(&MethodNotFoundError{Class: "A", Method: "f", Argc: 2}, notFound); diff != "" {
		t.Errorf("error (-want +got):\n%s", diff)
	}
	if want := "method 'A.f(2)' not found"; notFound.Error() != want {
		t.Errorf("message %q, want %q", notFound.Error(), want)
	}
}

func TestSoftSuper(t *testing.T) {
	a := MustClass("A", nil, Method("f", func(c *Call, args ...any) (any, error) {
		return c.SoftSuper(args...)
	}))
	tt.Test(t, tt.Fn("Call", a.MustNew().Call), tt.Table{
		tt.Args("f").Rets(nil, nil),
	})
}

func TestGetSuper(t *testing.T) {
	a := MustClass("A", nil, Method("g", ret("A.g")))
	var got *ProxyMethod
	b := MustClass("B", inherit(a),
		Method("g", ret("B.g")),
		Method("f", func(c *Call, _ ...any) (any, error) {
			var err error
			got, err = c.GetSuper("g")
			return nil, err
		}))
	must.OK1(b.MustNew().Call("f"))
	if got == nil || got.Owner() != a {
		t.Errorf("GetSuper(g) = %v, want the method of A", got)
	}
}

func TestNoActiveCall(t *testing.T) {
	var c *Call
	if _, err := c.Super(); err != ErrNoActiveCall {
		t.Errorf("Super: got %v, want ErrNoActiveCall", err)
	}
	if _, err := c.SoftSuper(); err != ErrNoActiveCall {
		t.Errorf("SoftSuper: got %v, want ErrNoActiveCall", err)
	}
	if _, err := c.GetSuper("f"); err != ErrNoActiveCall {
		t.Errorf("GetSuper: got %v, want ErrNoActiveCall", err)
	}
	if c.Method() != nil {
		t.Errorf("Method() of nil Call is not nil")
	}
}

func TestAbstractStub(t *testing.T) {
	i := MustInterface("I", nil, Abstract("draw"))
	o := MustClass("C", inherit(i)).MustNew()
	_, err := o.Call("draw")
	var notImpl *NotImplementedError
	if !errors.As(err, &notImpl) || notImpl.Method != "draw" {
		t.Errorf("got error %v, want *NotImplementedError for draw", err)
	}
	if !strings.Contains(err.Error(), "draw") {
		t.Errorf("error message %q does not name the method", err.Error())
	}
}

func TestAbstractStub_Overridden(t *testing.T) {
	i := MustInterface("I", nil, Abstract("draw"))
	p := MustClass("P", nil, Method("draw", ret("P")))

	tt.Test(t, tt.Fn("Call", (*Object).Call), tt.Table{
		// Declared by the class.
		tt.Args(MustClass("C1", inherit(i), Method("draw", ret("C1"))).MustNew(), "draw").
			Rets("C1", nil),
		// Concrete method from the parent wins over the stub.
		tt.Args(MustClass("C2", inherit(p, i)).MustNew(), "draw").Rets("P", nil),
		// Concrete method from a subclass replaces an inherited stub.
		tt.Args(MustClass("C3", inherit(MustClass("Base", inherit(i))), Method("draw", ret("C3"))).MustNew(), "draw").
			Rets("C3", nil),
	})
	if !MustClass("C", inherit(i)).Method("draw").IsAbstract() {
		t.Errorf("stub not marked abstract")
	}
}

var errBoom = errors.New("boom")

func TestInvoke_LogsFailureOnce(t *testing.T) {
	var buf bytes.Buffer
	logutil.SetOutput(&buf)
	t.Cleanup(func() { logutil.SetOutput(io.Discard) })

	a := MustClass("A", nil, Method("f", func(*Call, ...any) (any, error) {
		return nil, errBoom
	}))
	b := MustClass("B", inherit(a), Method("f", func(c *Call, args ...any) (any, error) {
		return c.Super(args...)
	}))
	_, err := b.MustNew().Call("f", 1)
	if !errors.Is(err, errBoom) {
		t.Errorf("got error %v, want errBoom", err)
	}
	if err.Error() != "boom" {
		t.Errorf("error message changed to %q", err.Error())
	}
	if n := strings.Count(buf.String(), "method failed"); n != 1 {
		t.Errorf("failure logged %d times, want 1:\n%s", n, buf.String())
	}
}

func TestInvoke_LogsAndRepanics(t *testing.T) {
	var buf bytes.Buffer
	logutil.SetOutput(&buf)
	t.Cleanup(func() { logutil.SetOutput(io.Discard) })

	o := MustClass("A", nil, Method("p", func(*Call, ...any) (any, error) {
		panic("oops")
	})).MustNew()

	if r := testutil.Recover(func() { o.Call("p") }); r != "oops" {
		t.Errorf("recovered %v, want oops", r)
	}
	out := buf.String()
	if !strings.Contains(out, "method panicked") || !strings.Contains(out, "stack") {
		t.Errorf("panic not logged with stack trace:\n%s", out)
	}
}
