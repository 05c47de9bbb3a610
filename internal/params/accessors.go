package params

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// isMissing reports whether err is a missing-parameter error.
func isMissing(err error) bool {
	return errors.Is(err, ErrMissing)
}

// convertScalar fetches the value at path and converts it to the wanted cty
// type, producing a TypeError on mismatch.
func (p *Parameters) convertScalar(path string, want cty.Type) (cty.Value, error) {
	v, err := p.lookup(path)
	if err != nil {
		return cty.NilVal, err
	}
	if v.IsNull() {
		return cty.NilVal, &TypeError{Path: path, Want: want.FriendlyName(), Got: "null"}
	}
	converted, err := convert.Convert(v, want)
	if err != nil {
		return cty.NilVal, &TypeError{Path: path, Want: want.FriendlyName(), Got: v.Type().FriendlyName(), Err: err}
	}
	return converted, nil
}

// String returns the string value at the dotted path.
func (p *Parameters) String(path string) (string, error) {
	v, err := p.convertScalar(path, cty.String)
	if err != nil {
		return "", err
	}
	return v.AsString(), nil
}

// OptionalString returns the string at path, or def if the path is absent.
func (p *Parameters) OptionalString(path, def string) (string, error) {
	s, err := p.String(path)
	if err != nil {
		if isMissing(err) {
			return def, nil
		}
		return "", err
	}
	return s, nil
}

// Integer returns the integer value at the dotted path. Fractional numbers
// are rejected.
func (p *Parameters) Integer(path string) (int, error) {
	v, err := p.convertScalar(path, cty.Number)
	if err != nil {
		return 0, err
	}
	var i int
	if err := gocty.FromCtyValue(v, &i); err != nil {
		return 0, &TypeError{Path: path, Want: "integer", Got: v.Type().FriendlyName(), Err: err}
	}
	return i, nil
}

// OptionalInteger returns the integer at path, or def if the path is absent.
func (p *Parameters) OptionalInteger(path string, def int) (int, error) {
	i, err := p.Integer(path)
	if err != nil {
		if isMissing(err) {
			return def, nil
		}
		return 0, err
	}
	return i, nil
}

// Float returns the floating-point value at the dotted path.
func (p *Parameters) Float(path string) (float64, error) {
	v, err := p.convertScalar(path, cty.Number)
	if err != nil {
		return 0, err
	}
	var f float64
	if err := gocty.FromCtyValue(v, &f); err != nil {
		return 0, &TypeError{Path: path, Want: "float", Got: v.Type().FriendlyName(), Err: err}
	}
	return f, nil
}

// OptionalFloat returns the float at path, or def if the path is absent.
func (p *Parameters) OptionalFloat(path string, def float64) (float64, error) {
	f, err := p.Float(path)
	if err != nil {
		if isMissing(err) {
			return def, nil
		}
		return 0, err
	}
	return f, nil
}

// Boolean returns the boolean value at the dotted path.
func (p *Parameters) Boolean(path string) (bool, error) {
	v, err := p.convertScalar(path, cty.Bool)
	if err != nil {
		return false, err
	}
	return v.True(), nil
}

// OptionalBoolean returns the boolean at path, or def if the path is absent.
func (p *Parameters) OptionalBoolean(path string, def bool) (bool, error) {
	b, err := p.Boolean(path)
	if err != nil {
		if isMissing(err) {
			return def, nil
		}
		return false, err
	}
	return b, nil
}

// StringList returns the list of strings at the dotted path.
func (p *Parameters) StringList(path string) ([]string, error) {
	v, err := p.lookup(path)
	if err != nil {
		return nil, err
	}
	if v.IsNull() || !(v.Type().IsTupleType() || v.Type().IsListType() || v.Type().IsSetType()) {
		return nil, &TypeError{Path: path, Want: "list of string", Got: v.Type().FriendlyName()}
	}
	var out []string
	for i, elem := range v.AsValueSlice() {
		s, err := convert.Convert(elem, cty.String)
		if err != nil {
			return nil, &TypeError{
				Path: fmt.Sprintf("%s[%d]", path, i),
				Want: "string", Got: elem.Type().FriendlyName(), Err: err,
			}
		}
		out = append(out, s.AsString())
	}
	return out, nil
}

// OptionalStringList returns the string list at path, or nil if absent.
func (p *Parameters) OptionalStringList(path string) ([]string, error) {
	l, err := p.StringList(path)
	if err != nil {
		if isMissing(err) {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}

// Enum returns the string at path after checking it is one of the allowed
// values.
func (p *Parameters) Enum(path string, allowed ...string) (string, error) {
	s, err := p.String(path)
	if err != nil {
		return "", err
	}
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return "", fmt.Errorf("parameter %q: value %q is not one of %v", path, s, allowed)
}

// OptionalEnum returns def when path is absent, otherwise behaves like Enum.
func (p *Parameters) OptionalEnum(path, def string, allowed ...string) (string, error) {
	if !p.Has(path) {
		return def, nil
	}
	return p.Enum(path, allowed...)
}

// Memory returns the memory size at path, parsed from a unit-suffixed
// string such as "12G" or a bare mebibyte count.
func (p *Parameters) Memory(path string) (MemorySize, error) {
	v, err := p.lookup(path)
	if err != nil {
		return 0, err
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return 0, &TypeError{Path: path, Want: "memory size", Got: v.Type().FriendlyName(), Err: err}
	}
	size, err := ParseMemory(s.AsString())
	if err != nil {
		return 0, fmt.Errorf("parameter %q: %w", path, err)
	}
	return size, nil
}

// ExistingFile returns the string at path after checking it names an
// existing regular file.
func (p *Parameters) ExistingFile(path string) (string, error) {
	s, err := p.String(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(s)
	if err != nil {
		return "", fmt.Errorf("parameter %q: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("parameter %q: %s is a directory, not a file", path, s)
	}
	return s, nil
}

// ExistingDirectory returns the string at path after checking it names an
// existing directory.
func (p *Parameters) ExistingDirectory(path string) (string, error) {
	s, err := p.String(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(s)
	if err != nil {
		return "", fmt.Errorf("parameter %q: %w", path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("parameter %q: %s is not a directory", path, s)
	}
	return s, nil
}

// CreatableDirectory returns the string at path, creating the directory
// (and any parents) if it does not yet exist.
func (p *Parameters) CreatableDirectory(path string) (string, error) {
	s, err := p.String(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Clean(s), 0o755); err != nil {
		return "", fmt.Errorf("parameter %q: %w", path, err)
	}
	return s, nil
}
