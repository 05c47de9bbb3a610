package params

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Interpolate returns a copy of the tree in which every %dotted.path%
// placeholder inside a string value has been replaced by the (stringified)
// value at that path in the fully merged tree. Resolution is transitive:
// a substituted value may itself contain placeholders. "%%" escapes a
// literal percent sign.
//
// Unresolvable references and reference cycles are reported as errors
// naming the placeholder and the value that contains it.
func (p *Parameters) Interpolate() (*Parameters, error) {
	r := &interpolator{
		source:   p,
		resolved: make(map[string]string),
		visiting: make(map[string]bool),
	}

	root, err := r.rewrite("", p.root)
	if err != nil {
		return nil, err
	}
	return &Parameters{root: root}, nil
}

// interpolator memoizes placeholder resolution across the whole tree and
// tracks in-progress paths for cycle detection.
type interpolator struct {
	source   *Parameters
	resolved map[string]string
	visiting map[string]bool
}

// rewrite walks the tree, replacing placeholders in string leaves.
func (r *interpolator) rewrite(path string, v cty.Value) (cty.Value, error) {
	if v.IsNull() {
		return v, nil
	}
	t := v.Type()
	switch {
	case t.IsObjectType() || t.IsMapType():
		if v.LengthInt() == 0 {
			return cty.EmptyObjectVal, nil
		}
		out := make(map[string]cty.Value)
		for k, elem := range v.AsValueMap() {
			childPath := k
			if path != "" {
				childPath = path + "." + k
			}
			rewritten, err := r.rewrite(childPath, elem)
			if err != nil {
				return cty.NilVal, err
			}
			out[k] = rewritten
		}
		return cty.ObjectVal(out), nil
	case t.IsTupleType() || t.IsListType() || t.IsSetType():
		elems := v.AsValueSlice()
		out := make([]cty.Value, 0, len(elems))
		for i, elem := range elems {
			rewritten, err := r.rewrite(fmt.Sprintf("%s[%d]", path, i), elem)
			if err != nil {
				return cty.NilVal, err
			}
			out = append(out, rewritten)
		}
		return cty.TupleVal(out), nil
	case t == cty.String:
		expanded, err := r.expand(path, v.AsString())
		if err != nil {
			return cty.NilVal, err
		}
		return cty.StringVal(expanded), nil
	default:
		return v, nil
	}
}

// expand substitutes every placeholder in a single string value.
func (r *interpolator) expand(path, s string) (string, error) {
	if !strings.ContainsRune(s, '%') {
		return s, nil
	}

	var out strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		if c != '%' {
			out.WriteByte(c)
			i++
			continue
		}
		if i+1 < len(s) && s[i+1] == '%' {
			out.WriteByte('%')
			i += 2
			continue
		}
		end := strings.IndexByte(s[i+1:], '%')
		if end < 0 {
			return "", fmt.Errorf("value at %q: unterminated placeholder in %q", path, s)
		}
		ref := s[i+1 : i+1+end]
		if ref == "" {
			return "", fmt.Errorf("value at %q: empty placeholder in %q", path, s)
		}
		replacement, err := r.resolve(path, ref)
		if err != nil {
			return "", err
		}
		out.WriteString(replacement)
		i += end + 2
	}
	return out.String(), nil
}

// resolve produces the fully expanded string for a referenced path.
func (r *interpolator) resolve(sourcePath, ref string) (string, error) {
	if cached, ok := r.resolved[ref]; ok {
		return cached, nil
	}
	if r.visiting[ref] {
		return "", fmt.Errorf("value at %q: placeholder %%%s%% is part of a reference cycle", sourcePath, ref)
	}

	v, err := r.source.lookup(ref)
	if err != nil {
		return "", fmt.Errorf("value at %q: placeholder %%%s%% does not resolve: %w", sourcePath, ref, err)
	}
	str, convErr := convert.Convert(v, cty.String)
	if convErr != nil {
		return "", fmt.Errorf("value at %q: placeholder %%%s%% refers to a %s, which has no string form",
			sourcePath, ref, v.Type().FriendlyName())
	}

	r.visiting[ref] = true
	defer delete(r.visiting, ref)

	expanded, err := r.expand(ref, str.AsString())
	if err != nil {
		return "", err
	}
	r.resolved[ref] = expanded
	return expanded, nil
}
