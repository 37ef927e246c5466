// Package ns implements the package registry: a tree of named packages
// holding exported values.
//
// Every package owns a readiness sequence. The callbacks populating a package
// run on it in the order they were declared, even when an earlier one
// completes asynchronously, and Require defers its callback until the
// sequences of the required packages have drained.
//
// Packages are not safe for concurrent use; only the table of roots is.
package ns

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"src.zkit.sh/pkg/doit"
	"src.zkit.sh/pkg/errutil"
	"src.zkit.sh/pkg/logutil"
	"src.zkit.sh/pkg/must"
	"src.zkit.sh/pkg/oop"
)

var logger = logutil.GetLogger("ns")

var namePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]+(\.[a-zA-Z_][a-zA-Z0-9_]+)*$`)

// Package is a node of the registry.
type Package struct {
	name   string
	parent *Package
	ready  *doit.Sequence
	// Values are either *Package or exported values.
	members map[string]any
}

var (
	rootsMutex sync.Mutex
	roots      = make(map[string]*Package)
)

// Root returns the process-wide root package with the given name, creating it
// on first use.
func Root(name string) *Package {
	rootsMutex.Lock()
	defer rootsMutex.Unlock()
	if p, ok := roots[name]; ok {
		return p
	}
	p := NewRoot(name)
	roots[name] = p
	return p
}

// NewRoot creates a root package that is not registered process-wide.
func NewRoot(name string) *Package {
	return newPackage(name, nil)
}

func newPackage(name string, parent *Package) *Package {
	p := &Package{name: name, parent: parent, members: make(map[string]any)}
	p.ready = doit.New(doit.WithLogger(logger.With("package", p.FullName())))
	return p
}

// Name returns the name of the package within its parent.
func (p *Package) Name() string { return p.name }

// Parent returns the parent package, or nil for a root.
func (p *Package) Parent() *Package { return p.parent }

// FullName returns the dot-separated names of the package and its
// ancestors, starting from the root.
func (p *Package) FullName() string {
	var names []string
	for q := p; q != nil; q = q.parent {
		names = append(names, q.name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, ".")
}

func (p *Package) root() *Package {
	q := p
	for q.parent != nil {
		q = q.parent
	}
	return q
}

// Package returns the package with the given dot-separated name relative to
// p, creating missing packages along the way. If populate is not nil, it is
// added to the readiness sequence of that package; it may call Join on the
// package to complete asynchronously. Once it completes, class and interface
// templates exported by the package without a display name are named after
// their full path.
//
// An invalid name, or a segment that names a value other than a package, is
// an error.
func (p *Package) Package(dotted string, populate func(*Package) error) (*Package, error) {
	dotted = strings.TrimSpace(dotted)
	if !namePattern.MatchString(dotted) {
		return nil, &DeclError{Name: dotted, Err: ErrInvalidName}
	}
	target := p
	for _, seg := range strings.Split(dotted, ".") {
		v, ok := target.members[seg]
		if !ok {
			child := newPackage(seg, target)
			target.members[seg] = child
			target = child
			continue
		}
		child, ok := v.(*Package)
		if !ok {
			return nil, &DeclError{Name: dotted, Member: seg, Err: ErrConflict}
		}
		target = child
	}

	if populate != nil {
		leaf := target
		leaf.Then(func(s *doit.Sequence, _ ...any) (any, error) {
			if err := populate(leaf); err != nil {
				return nil, err
			}
			// Runs after any join callbacks requested by populate.
			s.Then(func(*doit.Sequence, ...any) (any, error) {
				leaf.nameTemplates()
				return nil, nil
			})
			return nil, nil
		})
	}
	return target, nil
}

// MustPackage is like Package, but panics on error.
func (p *Package) MustPackage(dotted string, populate func(*Package) error) *Package {
	return must.OK1(p.Package(dotted, populate))
}

// Then adds a step to the readiness sequence. An error from the step is
// logged and does not stop later steps.
func (p *Package) Then(step doit.Step) *Package {
	p.ready.Then(step).Catch(func(_ *doit.Sequence, err error) error {
		logger.Warnw("package step failed", "package", p.FullName(), "error", err)
		return nil
	})
	return p
}

// Join requests a join callback on the readiness sequence. Called from a
// population callback, it makes the population complete only once the
// callback has been called.
func (p *Package) Join() func(args ...any) { return p.ready.Join() }

// Ready returns the readiness sequence.
func (p *Package) Ready() *doit.Sequence { return p.ready }

// Require looks up the packages with the given dot-separated names relative
// to p and calls cb with them once their readiness sequences have drained.
// The call itself is added to the readiness sequence of p.
//
// If some names cannot be resolved, Require returns an error listing all of
// them and cb is never called.
func (p *Package) Require(names []string, cb func(pkgs ...*Package) error) error {
	pkgs := make([]*Package, 0, len(names))
	var errs []error
	for _, name := range names {
		q, err := p.LookupPackage(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pkgs = append(pkgs, q)
	}
	if err := errutil.Multi(errs...); err != nil {
		return err
	}
	for _, q := range pkgs {
		if q != p {
			p.ready.Till(q.ready)
		}
	}
	p.Then(func(*doit.Sequence, ...any) (any, error) {
		return nil, cb(pkgs...)
	})
	return nil
}

// Set exports a value from the package. A name already taken by a
// sub-package cannot be reused.
func (p *Package) Set(name string, v any) error {
	if _, ok := v.(*Package); ok {
		return &DeclError{Name: p.FullName(), Member: name, Err: ErrConflict}
	}
	if _, ok := p.members[name].(*Package); ok {
		return &DeclError{Name: p.FullName(), Member: name, Err: ErrConflict}
	}
	p.members[name] = v
	if t, ok := v.(*oop.Template); ok {
		owners.LoadOrStore(t, p)
	}
	return nil
}

// Get returns a member of the package: an exported value or a sub-package.
func (p *Package) Get(name string) (any, bool) {
	v, ok := p.members[name]
	return v, ok
}

// Lookup resolves a dot-separated path of members relative to p.
func (p *Package) Lookup(dotted string) (any, error) {
	dotted = strings.TrimSpace(dotted)
	if dotted == "" {
		return nil, &LookupError{What: "member", Path: dotted}
	}
	var v any = p
	for _, seg := range strings.Split(dotted, ".") {
		q, ok := v.(*Package)
		if !ok {
			return nil, &LookupError{What: "member", Path: dotted}
		}
		if v, ok = q.members[seg]; !ok {
			return nil, &LookupError{What: "member", Path: dotted}
		}
	}
	return v, nil
}

// LookupPackage is like Lookup, but requires the result to be a package.
func (p *Package) LookupPackage(dotted string) (*Package, error) {
	v, err := p.Lookup(dotted)
	if q, ok := v.(*Package); ok && err == nil {
		return q, nil
	}
	return nil, &LookupError{What: "package", Path: dotted}
}

// ForName resolves a dot-separated path to a class or interface template.
func (p *Package) ForName(dotted string) (*oop.Template, error) {
	v, err := p.Lookup(dotted)
	if t, ok := v.(*oop.Template); ok && err == nil {
		return t, nil
	}
	return nil, &LookupError{What: "class", Path: dotted}
}

// Cd resolves a slash-separated path of packages relative to p, where ".."
// names the parent. A leading slash is ignored.
func (p *Package) Cd(path string) (*Package, error) {
	q := p
	for _, seg := range strings.Split(strings.TrimPrefix(path, "/"), "/") {
		if seg == ".." {
			q = q.parent
		} else {
			q, _ = q.members[seg].(*Package)
		}
		if q == nil {
			return nil, &LookupError{What: "package path", Path: path}
		}
	}
	return q, nil
}

// Packages calls cb with the sub-packages of p, in the order of their names.
// If recursive is true, the sub-packages of every sub-package are visited
// right after it. Iteration stops when cb returns true; the return value
// reports whether that happened.
func (p *Package) Packages(cb func(name string, q *Package) bool, recursive bool) bool {
	for _, k := range p.sortedNames() {
		q, ok := p.members[k].(*Package)
		if !ok {
			continue
		}
		if cb(k, q) {
			return true
		}
		if recursive && q.Packages(cb, true) {
			return true
		}
	}
	return false
}

// Ls calls cb with the exported values of p, in the order of their names,
// skipping sub-packages. Names starting with "$" or "_" are skipped unless
// all is true. Iteration stops when cb returns true; the return value
// reports whether that happened.
func (p *Package) Ls(cb func(name string, v any) bool, all bool) bool {
	for _, k := range p.sortedNames() {
		v := p.members[k]
		if _, ok := v.(*Package); ok {
			continue
		}
		if !all && (strings.HasPrefix(k, "$") || strings.HasPrefix(k, "_")) {
			continue
		}
		if cb(k, v) {
			return true
		}
	}
	return false
}

// Imports returns the exported values of the packages with the given
// dot-separated names, or of p itself when no names are given, keyed by their
// names. A value exported by a later package replaces one of the same name
// from an earlier package.
func (p *Package) Imports(names ...string) (map[string]any, error) {
	pkgs := []*Package{p}
	if len(names) > 0 {
		pkgs = pkgs[:0]
		var errs []error
		for _, name := range names {
			q, err := p.LookupPackage(name)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			pkgs = append(pkgs, q)
		}
		if err := errutil.Multi(errs...); err != nil {
			return nil, err
		}
	}
	m := make(map[string]any)
	for _, q := range pkgs {
		q.Ls(func(k string, v any) bool {
			m[k] = v
			return false
		}, false)
	}
	return m, nil
}

func (p *Package) String() string { return p.FullName() }

func (p *Package) sortedNames() []string {
	names := make([]string, 0, len(p.members))
	for k := range p.members {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
