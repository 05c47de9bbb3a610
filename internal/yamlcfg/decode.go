package yamlcfg

import (
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"
)

// goToCty normalizes a decoded YAML document into the cty value model.
// YAML's inferred scalar types map onto cty.String/Number/Bool; mappings
// become objects and sequences become tuples.
func goToCty(v any) (cty.Value, error) {
	switch val := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case map[string]any:
		if len(val) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(val))
		for k, elem := range val {
			converted, err := goToCty(elem)
			if err != nil {
				return cty.NilVal, fmt.Errorf("key %q: %w", k, err)
			}
			attrs[k] = converted
		}
		return cty.ObjectVal(attrs), nil
	case map[any]any:
		// yaml.v3 only produces this for non-string keys.
		return cty.NilVal, fmt.Errorf("mapping keys must be strings")
	case []any:
		if len(val) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, 0, len(val))
		for i, elem := range val {
			converted, err := goToCty(elem)
			if err != nil {
				return cty.NilVal, fmt.Errorf("index %d: %w", i, err)
			}
			elems = append(elems, converted)
		}
		return cty.TupleVal(elems), nil
	case string:
		return cty.StringVal(val), nil
	case bool:
		return cty.BoolVal(val), nil
	case int:
		return cty.NumberIntVal(int64(val)), nil
	case int64:
		return cty.NumberIntVal(val), nil
	case uint64:
		return cty.NumberUIntVal(val), nil
	case float64:
		return cty.NumberFloatVal(val), nil
	case time.Time:
		return cty.StringVal(val.Format(time.RFC3339)), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported value type %T", v)
	}
}
