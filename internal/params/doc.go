// Package params implements the hierarchical experiment-parameter model:
// a nested, string-keyed tree of values with child-over-parent unification,
// dotted-path lookup, %placeholder% interpolation, and typed accessors.
//
// Values are carried as cty.Value so that every configuration format the
// loader understands (YAML, HCL) normalizes into one type system, and typed
// accessors share a single conversion path (cty/convert + gocty).
package params
