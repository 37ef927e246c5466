package ns

import (
	"sort"
	"strings"
	"sync"

	"src.zkit.sh/pkg/oop"
)

// Package that first exported a template, keyed by *oop.Template.
var owners sync.Map

func init() {
	oop.SetAbstractResolver(resolveAbstract)
}

// Names the templates exported by p that have no display name yet, and
// recursively the templates among their statics.
func (p *Package) nameTemplates() {
	prefix := p.FullName() + "."
	p.Ls(func(k string, v any) bool {
		if t, ok := v.(*oop.Template); ok {
			owners.LoadOrStore(t, p)
			nameTemplate(t, prefix+k)
		}
		return false
	}, false)
}

func nameTemplate(t *oop.Template, name string) {
	if !t.SetName(name) {
		return
	}
	statics := t.Statics()
	keys := make([]string, 0, len(statics))
	for k := range statics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if inner, ok := statics[k].(*oop.Template); ok && !strings.HasPrefix(k, oop.PrivatePrefix) {
			nameTemplate(inner, name+"."+k)
		}
	}
}

// Finds a concrete class inheriting an abstract class, first in the package
// that exported the abstract class and then in the whole registry it belongs
// to.
func resolveAbstract(abstract *oop.Template) *oop.Template {
	v, ok := owners.Load(abstract)
	if !ok {
		return nil
	}
	p := v.(*Package)
	if impl := p.findImpl(abstract); impl != nil {
		return impl
	}
	if root := p.root(); root != p {
		return root.findImpl(abstract)
	}
	return nil
}

func (p *Package) findImpl(abstract *oop.Template) *oop.Template {
	for _, k := range p.sortedNames() {
		if strings.HasPrefix(k, "$") {
			continue
		}
		switch v := p.members[k].(type) {
		case *oop.Template:
			if v.Kind() == oop.KindClass && v.IsInherit(abstract) && !v.IsAbstract() {
				return v
			}
		case *Package:
			if impl := v.findImpl(abstract); impl != nil {
				return impl
			}
		}
	}
	return nil
}
