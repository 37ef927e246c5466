package ns

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"src.zkit.sh/pkg/doit"
	"src.zkit.sh/pkg/errutil"
	"src.zkit.sh/pkg/must"
	"src.zkit.sh/pkg/oop"
	"src.zkit.sh/pkg/tt"
)

func TestPackage_CreatesPath(t *testing.T) {
	root := NewRoot("zk")
	grid := must.OK1(root.Package("ui.grid", nil))
	if name := grid.FullName(); name != "zk.ui.grid" {
		t.Errorf("FullName = %q, want %q", name, "zk.ui.grid")
	}
	ui := must.OK1(root.Package(" ui ", nil))
	if grid.Parent() != ui || ui.Parent() != root {
		t.Errorf("existing packages not reused")
	}
	if v := must.OK1(root.Lookup("ui.grid")); v != grid {
		t.Errorf("Lookup returned %v, want %v", v, grid)
	}
	if root.Parent() != nil || root.Name() != "zk" || grid.String() != "zk.ui.grid" {
		t.Errorf("unexpected root %v or name %v", root, grid)
	}
}

func TestPackage_Errors(t *testing.T) {
	root := NewRoot("zk")
	must.OK(root.Set("value", 1))
	declare := func(name string) error {
		_, err := root.Package(name, nil)
		return err
	}
	tt.Test(t, tt.Fn("declare", declare), tt.Table{
		tt.Args("").Rets(tt.ErrorIs(ErrInvalidName)),
		tt.Args("a").Rets(tt.ErrorIs(ErrInvalidName)),
		tt.Args("1ab").Rets(tt.ErrorIs(ErrInvalidName)),
		tt.Args("ab..cd").Rets(tt.ErrorIs(ErrInvalidName)),
		tt.Args("ab.c-d").Rets(tt.ErrorIs(ErrInvalidName)),
		tt.Args("value").Rets(tt.ErrorIs(ErrConflict)),
		tt.Args("value.sub").Rets(tt.ErrorIs(ErrConflict)),
		tt.Args("ab.cd").Rets(nil),
	})

	_, err := root.Package("value.sub", nil)
	if want := `package "value.sub": value conflicts with an existing member`; err.Error() != want {
		t.Errorf("got message %q, want %q", err, want)
	}
}

func TestPackage_PopulationOrder(t *testing.T) {
	root := NewRoot("zk")
	var log []string
	var jn func(...any)

	root.MustPackage("ui", func(p *Package) error {
		log = append(log, "first")
		jn = p.Join()
		return nil
	})
	root.MustPackage("ui", func(p *Package) error {
		log = append(log, "second")
		return nil
	})
	if diff := cmp.Diff([]string{"first"}, log); diff != "" {
		t.Fatalf("population before join (-want +got):\n%s", diff)
	}
	jn()
	if diff := cmp.Diff([]string{"first", "second"}, log); diff != "" {
		t.Errorf("population after join (-want +got):\n%s", diff)
	}
}

func TestPackage_NamesTemplates(t *testing.T) {
	root := NewRoot("zk")
	var jn func(...any)
	named := oop.MustClass("Named", nil)
	button := oop.MustClass("", nil, oop.Clazz(func(t *oop.Template) {
		t.SetStatic("Inner", oop.MustClass("", nil))
	}))
	ui := root.MustPackage("ui", func(p *Package) error {
		jn = p.Join()
		must.OK(p.Set("Button", button))
		must.OK(p.Set("Named", named))
		return nil
	})
	if button.Name() != "" {
		t.Errorf("class named before population completed: %q", button.Name())
	}
	jn()

	inner, _ := button.Static("Inner")
	for _, c := range []struct {
		t    *oop.Template
		want string
	}{
		{button, "zk.ui.Button"},
		{inner.(*oop.Template), "zk.ui.Button.Inner"},
		{named, "Named"},
	} {
		if got := c.t.Name(); got != c.want {
			t.Errorf("got name %q, want %q", got, c.want)
		}
	}
	if got := must.OK1(ui.ForName("Button")); got != button {
		t.Errorf("ForName returned %v", got)
	}
}

func TestPackage_PopulationErrorLogged(t *testing.T) {
	root := NewRoot("zk")
	var log []string
	root.MustPackage("ui", func(*Package) error { return errBoom })
	ui := root.MustPackage("ui", func(*Package) error {
		log = append(log, "second")
		return nil
	})
	if diff := cmp.Diff([]string{"second"}, log); diff != "" {
		t.Errorf("population after failure (-want +got):\n%s", diff)
	}
	if ui.Ready().State() == doit.Faulted {
		t.Errorf("readiness sequence left faulted")
	}
}

func TestRequire(t *testing.T) {
	root := NewRoot("zk")
	var jn func(...any)
	ui := root.MustPackage("ui", func(p *Package) error {
		jn = p.Join()
		return nil
	})
	io := root.MustPackage("io", nil)

	var got []*Package
	must.OK(root.Require([]string{"ui", "io"}, func(pkgs ...*Package) error {
		got = pkgs
		return nil
	}))
	if got != nil {
		t.Fatalf("callback ran before required packages were ready")
	}
	jn()
	if diff := cmp.Diff([]*Package{ui, io}, got, cmp.Comparer(func(a, b *Package) bool { return a == b })); diff != "" {
		t.Errorf("packages (-want +got):\n%s", diff)
	}
}

func TestRequire_Missing(t *testing.T) {
	root := NewRoot("zk")
	root.MustPackage("ui", nil)
	called := false
	err := root.Require([]string{"nope", "ui", "gone.away"}, func(...*Package) error {
		called = true
		return nil
	})
	if called {
		t.Errorf("callback called despite missing packages")
	}
	var paths []string
	for _, e := range errutil.Errors(err) {
		var lookupErr *LookupError
		if !errors.As(e, &lookupErr) {
			t.Fatalf("got %v, want *LookupError", e)
		}
		paths = append(paths, lookupErr.Path)
	}
	if diff := cmp.Diff([]string{"nope", "gone.away"}, paths); diff != "" {
		t.Errorf("missing packages (-want +got):\n%s", diff)
	}
}

func TestLookup(t *testing.T) {
	root := NewRoot("zk")
	ui := root.MustPackage("ui", nil)
	c := oop.MustClass("C", nil)
	must.OK(ui.Set("C", c))
	must.OK(ui.Set("size", 3))

	tt.Test(t, tt.Fn("Lookup", root.Lookup), tt.Table{
		tt.Args("ui.size").Rets(3, nil),
		tt.Args("ui.C").Rets(c, nil),
		tt.Args("ui.size.x").Rets(nil, tt.ErrorAs[*LookupError]()),
		tt.Args("ui.nope").Rets(nil, tt.ErrorAs[*LookupError]()),
		tt.Args("").Rets(nil, tt.ErrorAs[*LookupError]()),
	})
	tt.Test(t, tt.Fn("ForName", root.ForName), tt.Table{
		tt.Args("ui.C").Rets(c, nil),
		tt.Args("ui.size").Rets(tt.Any, tt.ErrorAs[*LookupError]()),
		tt.Args("ui").Rets(tt.Any, tt.ErrorAs[*LookupError]()),
	})
	if _, err := root.LookupPackage("ui.C"); err == nil {
		t.Errorf("LookupPackage of a class succeeded")
	}
	if v, ok := ui.Get("size"); !ok || v != 3 {
		t.Errorf("Get returned %v, %v", v, ok)
	}
}

func TestSet_Conflicts(t *testing.T) {
	root := NewRoot("zk")
	ui := root.MustPackage("ui", nil)
	if err := root.Set("ui", 1); !errors.Is(err, ErrConflict) {
		t.Errorf("overwriting a package: got %v", err)
	}
	if err := root.Set("other", ui); !errors.Is(err, ErrConflict) {
		t.Errorf("exporting a package: got %v", err)
	}
}

func TestCd(t *testing.T) {
	root := NewRoot("zk")
	grid := root.MustPackage("ui.grid", nil)
	ui := grid.Parent()

	cd := func(p *Package, path string) *Package {
		q, _ := p.Cd(path)
		return q
	}
	for _, c := range []struct {
		from *Package
		path string
		want *Package
	}{
		{root, "ui/grid", grid},
		{root, "/ui", ui},
		{grid, "..", ui},
		{grid, "../..", root},
		{grid, "../grid", grid},
		{root, "..", nil},
		{root, "nope", nil},
	} {
		if got := cd(c.from, c.path); got != c.want {
			t.Errorf("%v.Cd(%q) = %v, want %v", c.from, c.path, got, c.want)
		}
	}
	if _, err := root.Cd("nope"); err == nil || !strings.Contains(err.Error(), "package path") {
		t.Errorf("got error %v", err)
	}
}

func TestPackagesAndLs(t *testing.T) {
	root := NewRoot("zk")
	root.MustPackage("ui.grid", nil)
	root.MustPackage("ui.tree", nil)
	root.MustPackage("io", nil)
	must.OK(root.Set("b", 2))
	must.OK(root.Set("a", 1))
	must.OK(root.Set("$private", 0))
	must.OK(root.Set("_hidden", 0))

	var names []string
	collect := func(name string, _ *Package) bool {
		names = append(names, name)
		return false
	}
	root.Packages(collect, false)
	if diff := cmp.Diff([]string{"io", "ui"}, names); diff != "" {
		t.Errorf("Packages (-want +got):\n%s", diff)
	}
	names = nil
	root.Packages(collect, true)
	if diff := cmp.Diff([]string{"io", "ui", "grid", "tree"}, names); diff != "" {
		t.Errorf("recursive Packages (-want +got):\n%s", diff)
	}
	names = nil
	stopped := root.Packages(func(name string, _ *Package) bool {
		names = append(names, name)
		return name == "grid"
	}, true)
	if !stopped || len(names) != 3 {
		t.Errorf("Packages did not stop: %v, %v", stopped, names)
	}

	values := make(map[string]any)
	ls := func(all bool) map[string]any {
		clear(values)
		root.Ls(func(name string, v any) bool {
			values[name] = v
			return false
		}, all)
		return values
	}
	if diff := cmp.Diff(map[string]any{"a": 1, "b": 2}, ls(false)); diff != "" {
		t.Errorf("Ls (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"a": 1, "b": 2, "$private": 0, "_hidden": 0}, ls(true)); diff != "" {
		t.Errorf("Ls all (-want +got):\n%s", diff)
	}
}

func TestImports(t *testing.T) {
	root := NewRoot("zk")
	ui := root.MustPackage("ui", nil)
	io := root.MustPackage("io", nil)
	must.OK(ui.Set("Button", 1))
	must.OK(ui.Set("Size", 2))
	must.OK(io.Set("Size", 3))
	must.OK(root.Set("version", "1"))

	got := must.OK1(root.Imports("ui", "io"))
	if diff := cmp.Diff(map[string]any{"Button": 1, "Size": 3}, got); diff != "" {
		t.Errorf("Imports (-want +got):\n%s", diff)
	}
	got = must.OK1(root.Imports())
	if diff := cmp.Diff(map[string]any{"version": "1"}, got); diff != "" {
		t.Errorf("Imports of self (-want +got):\n%s", diff)
	}
	if _, err := root.Imports("ui", "nope"); err == nil {
		t.Errorf("Imports of a missing package succeeded")
	}
}

func TestRoot_ProcessWide(t *testing.T) {
	if Root("zk-test") != Root("zk-test") {
		t.Errorf("Root returned different packages for the same name")
	}
	if Root("zk-test") == NewRoot("zk-test") {
		t.Errorf("NewRoot returned the registered root")
	}
}
