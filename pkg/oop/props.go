package oop

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Factory is implemented by values in a property set that stand for a new
// value each time the set is applied.
type Factory interface {
	New() any
}

// SetterName returns the name of the setter method for a property, such as
// "setColor" for "color".
func SetterName(property string) string {
	r, size := utf8.DecodeRuneInString(property)
	return "set" + string(unicode.ToUpper(r)) + property[size:]
}

// Properties applies a property set to an object, in the order of the sorted
// property names:
//
//   - names starting with PrivatePrefix and function values are skipped;
//
//   - a name starting with "-" deletes the field named by the rest;
//
//   - values implementing Factory are replaced by what their New method
//     returns;
//
//   - if the object has a setter method for the property, it is called with
//     the value, or with the elements of the value if it is a []any;
//
//   - otherwise the value is set as a field.
func Properties(target *Object, p Fields) error {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := p[k]
		if k == "" || strings.HasPrefix(k, PrivatePrefix) || isFunc(v) {
			continue
		}
		if strings.HasPrefix(k, "-") {
			target.Delete(k[1:])
			continue
		}
		if f, ok := v.(Factory); ok {
			v = f.New()
		}
		setter := target.Method(SetterName(k))
		if setter == nil {
			target.Set(k, v)
			continue
		}
		var err error
		if list, ok := v.([]any); ok {
			_, err = setter.Invoke(target, list...)
		} else {
			_, err = setter.Invoke(target, v)
		}
		if err != nil {
			return fmt.Errorf("property %s: %w", k, err)
		}
	}
	return nil
}

func isFunc(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

// DecodeProperties reads a property set from a YAML mapping. An empty input
// yields an empty set.
func DecodeProperties(r io.Reader) (Fields, error) {
	var m map[string]any
	if err := yaml.NewDecoder(r).Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode properties: %w", err)
	}
	p := make(Fields, len(m))
	for k, v := range m {
		p[k] = v
	}
	return p, nil
}
