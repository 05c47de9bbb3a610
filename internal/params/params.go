package params

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Parameters is an immutable view over a nested parameter tree. The zero
// value is not usable; construct instances with Empty, New, or FromMap.
type Parameters struct {
	root cty.Value
}

// Empty returns a Parameters with no keys.
func Empty() *Parameters {
	return &Parameters{root: cty.EmptyObjectVal}
}

// New wraps an object-typed cty.Value as a Parameters tree.
func New(root cty.Value) (*Parameters, error) {
	if root.IsNull() || !root.Type().IsObjectType() {
		return nil, fmt.Errorf("parameters root must be a non-null object, got %s", root.Type().FriendlyName())
	}
	return &Parameters{root: root}, nil
}

// FromMap builds a Parameters from a flat map of top-level values. Nested
// namespaces are expressed as object-typed values.
func FromMap(values map[string]cty.Value) *Parameters {
	if len(values) == 0 {
		return Empty()
	}
	return &Parameters{root: cty.ObjectVal(values)}
}

// Root returns the underlying cty object.
func (p *Parameters) Root() cty.Value { return p.root }

// Len returns the number of top-level keys.
func (p *Parameters) Len() int {
	return p.root.LengthInt()
}

// isMapping reports whether a value behaves as a namespace.
func isMapping(v cty.Value) bool {
	if v.IsNull() {
		return false
	}
	t := v.Type()
	return t.IsObjectType() || t.IsMapType()
}

// lookup descends the tree along a dotted path.
func (p *Parameters) lookup(path string) (cty.Value, error) {
	if path == "" {
		return cty.NilVal, fmt.Errorf("empty parameter path")
	}

	current := p.root
	parts := strings.Split(path, ".")
	for i, part := range parts {
		if !isMapping(current) {
			return cty.NilVal, fmt.Errorf("parameter %q: %q is a %s, not a namespace",
				path, strings.Join(parts[:i], "."), current.Type().FriendlyName())
		}
		m := current.AsValueMap()
		next, ok := m[part]
		if !ok {
			return cty.NilVal, missingErr(strings.Join(parts[:i+1], "."))
		}
		current = next
	}
	return current, nil
}

// Has reports whether the dotted path exists in the tree.
func (p *Parameters) Has(path string) bool {
	_, err := p.lookup(path)
	return err == nil
}

// Get returns the raw value at the dotted path.
func (p *Parameters) Get(path string) (cty.Value, error) {
	return p.lookup(path)
}

// Namespace returns the sub-tree rooted at the dotted path. It is an error
// if the path is missing or holds a scalar.
func (p *Parameters) Namespace(path string) (*Parameters, error) {
	v, err := p.lookup(path)
	if err != nil {
		return nil, err
	}
	if !isMapping(v) {
		return nil, &TypeError{Path: path, Want: "namespace", Got: v.Type().FriendlyName()}
	}
	if v.LengthInt() == 0 {
		return Empty(), nil
	}
	return &Parameters{root: cty.ObjectVal(v.AsValueMap())}, nil
}

// OptionalNamespace is like Namespace but returns an empty tree when the
// path is absent.
func (p *Parameters) OptionalNamespace(path string) (*Parameters, error) {
	ns, err := p.Namespace(path)
	if err != nil {
		if isMissing(err) {
			return Empty(), nil
		}
		return nil, err
	}
	return ns, nil
}

// Keys returns the sorted top-level keys.
func (p *Parameters) Keys() []string {
	if p.root.LengthInt() == 0 {
		return nil
	}
	m := p.root.AsValueMap()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Unify returns a new tree holding this tree's keys overridden by the
// other's: for duplicate keys the other (child) value wins, except that two
// mappings merge recursively.
func (p *Parameters) Unify(other *Parameters) *Parameters {
	if other == nil {
		return p
	}
	return &Parameters{root: unifyValues(p.root, other.root)}
}

// unifyValues merges two cty values with child-over-parent precedence.
func unifyValues(parent, child cty.Value) cty.Value {
	if !isMapping(parent) || !isMapping(child) {
		return child
	}

	merged := make(map[string]cty.Value)
	if parent.LengthInt() > 0 {
		for k, v := range parent.AsValueMap() {
			merged[k] = v
		}
	}
	if child.LengthInt() > 0 {
		for k, v := range child.AsValueMap() {
			if existing, ok := merged[k]; ok {
				merged[k] = unifyValues(existing, v)
			} else {
				merged[k] = v
			}
		}
	}
	if len(merged) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(merged)
}

// AsMap converts the tree to plain Go values: map[string]any for
// namespaces, []any for sequences, string/bool/int64/float64 for scalars,
// nil for nulls. Whole numbers come back as int64.
func (p *Parameters) AsMap() map[string]any {
	out, _ := ctyToGo(p.root).(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	return out
}

func ctyToGo(v cty.Value) any {
	if v.IsNull() {
		return nil
	}
	t := v.Type()
	switch {
	case t.IsObjectType() || t.IsMapType():
		m := make(map[string]any)
		if v.LengthInt() > 0 {
			for k, elem := range v.AsValueMap() {
				m[k] = ctyToGo(elem)
			}
		}
		return m
	case t.IsTupleType() || t.IsListType() || t.IsSetType():
		var s []any
		for _, elem := range v.AsValueSlice() {
			s = append(s, ctyToGo(elem))
		}
		return s
	case t == cty.String:
		return v.AsString()
	case t == cty.Bool:
		return v.True()
	case t == cty.Number:
		f := v.AsBigFloat()
		if f.IsInt() {
			i, _ := f.Int64()
			return i
		}
		f64, _ := f.Float64()
		return f64
	default:
		return v.GoString()
	}
}

// Walk visits every leaf in the tree, depth-first with sorted keys, calling
// fn with the dotted path and value. Returning an error aborts the walk.
func (p *Parameters) Walk(fn func(path string, v cty.Value) error) error {
	return walkValue("", p.root, fn)
}

func walkValue(prefix string, v cty.Value, fn func(string, cty.Value) error) error {
	if isMapping(v) {
		if v.LengthInt() == 0 {
			return nil
		}
		m := v.AsValueMap()
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			childPath := k
			if prefix != "" {
				childPath = prefix + "." + k
			}
			if err := walkValue(childPath, m[k], fn); err != nil {
				return err
			}
		}
		return nil
	}
	if !v.IsNull() {
		t := v.Type()
		if t.IsTupleType() || t.IsListType() || t.IsSetType() {
			for i, elem := range v.AsValueSlice() {
				if err := walkValue(fmt.Sprintf("%s[%d]", prefix, i), elem, fn); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return fn(prefix, v)
}
