package params

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// fixture builds a tree resembling a small experiment configuration.
func fixture() *Parameters {
	return FromMap(map[string]cty.Value{
		"experiment": cty.StringVal("object-learning"),
		"learner": cty.ObjectVal(map[string]cty.Value{
			"learner_type":    cty.StringVal("pursuit"),
			"learning_factor": cty.NumberFloatVal(0.02),
			"smoothing":       cty.True,
			"ontology":        cty.StringVal("phase2"),
		}),
		"num_samples": cty.NumberIntVal(400),
		"curriculum_files": cty.TupleVal([]cty.Value{
			cty.StringVal("objects.yaml"),
			cty.StringVal("attributes.yaml"),
		}),
	})
}

func TestLookupAndNamespace(t *testing.T) {
	p := fixture()

	t.Run("top-level scalar", func(t *testing.T) {
		s, err := p.String("experiment")
		require.NoError(t, err)
		assert.Equal(t, "object-learning", s)
	})

	t.Run("dotted path descends namespaces", func(t *testing.T) {
		s, err := p.String("learner.learner_type")
		require.NoError(t, err)
		assert.Equal(t, "pursuit", s)
	})

	t.Run("namespace view", func(t *testing.T) {
		ns, err := p.Namespace("learner")
		require.NoError(t, err)

		f, err := ns.Float("learning_factor")
		require.NoError(t, err)
		assert.InDelta(t, 0.02, f, 1e-9)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := p.String("learner.gamma")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissing)
	})

	t.Run("scalar used as namespace", func(t *testing.T) {
		_, err := p.String("experiment.name")
		assert.ErrorContains(t, err, "not a namespace")
	})

	t.Run("Has", func(t *testing.T) {
		assert.True(t, p.Has("learner.ontology"))
		assert.False(t, p.Has("learner.missing"))
	})
}

func TestTypedAccessors(t *testing.T) {
	p := fixture()

	t.Run("integer", func(t *testing.T) {
		n, err := p.Integer("num_samples")
		require.NoError(t, err)
		assert.Equal(t, 400, n)
	})

	t.Run("fractional value rejected as integer", func(t *testing.T) {
		_, err := p.Integer("learner.learning_factor")
		require.Error(t, err)
		var typeErr *TypeError
		assert.ErrorAs(t, err, &typeErr)
	})

	t.Run("boolean", func(t *testing.T) {
		b, err := p.Boolean("learner.smoothing")
		require.NoError(t, err)
		assert.True(t, b)
	})

	t.Run("string list", func(t *testing.T) {
		l, err := p.StringList("curriculum_files")
		require.NoError(t, err)
		assert.Equal(t, []string{"objects.yaml", "attributes.yaml"}, l)
	})

	t.Run("scalar is not a string list", func(t *testing.T) {
		_, err := p.StringList("experiment")
		var typeErr *TypeError
		assert.ErrorAs(t, err, &typeErr)
	})

	t.Run("enum accepts allowed value", func(t *testing.T) {
		s, err := p.Enum("learner.learner_type", "pursuit", "subset")
		require.NoError(t, err)
		assert.Equal(t, "pursuit", s)
	})

	t.Run("enum rejects other values", func(t *testing.T) {
		_, err := p.Enum("learner.learner_type", "subset", "cross-situational")
		assert.ErrorContains(t, err, "is not one of")
	})

	t.Run("optional accessors fall back on missing only", func(t *testing.T) {
		s, err := p.OptionalString("no.such.key", "fallback")
		require.NoError(t, err)
		assert.Equal(t, "fallback", s)

		n, err := p.OptionalInteger("num_samples", 7)
		require.NoError(t, err)
		assert.Equal(t, 400, n)

		// Present but mistyped must still error.
		_, err = p.OptionalInteger("experiment", 7)
		assert.Error(t, err)
	})
}

func TestUnify(t *testing.T) {
	parent := FromMap(map[string]cty.Value{
		"experiment": cty.StringVal("base"),
		"learner": cty.ObjectVal(map[string]cty.Value{
			"learner_type":    cty.StringVal("subset"),
			"learning_factor": cty.NumberFloatVal(0.05),
		}),
		"num_samples": cty.NumberIntVal(100),
	})
	child := FromMap(map[string]cty.Value{
		"experiment": cty.StringVal("pursuit-ablation"),
		"learner": cty.ObjectVal(map[string]cty.Value{
			"learner_type": cty.StringVal("pursuit"),
		}),
	})

	merged := parent.Unify(child)

	t.Run("child scalar overrides parent", func(t *testing.T) {
		s, err := merged.String("experiment")
		require.NoError(t, err)
		assert.Equal(t, "pursuit-ablation", s)
	})

	t.Run("nested mappings merge recursively", func(t *testing.T) {
		s, err := merged.String("learner.learner_type")
		require.NoError(t, err)
		assert.Equal(t, "pursuit", s)

		// Untouched sibling keys survive the merge.
		f, err := merged.Float("learner.learning_factor")
		require.NoError(t, err)
		assert.InDelta(t, 0.05, f, 1e-9)
	})

	t.Run("parent-only keys survive", func(t *testing.T) {
		n, err := merged.Integer("num_samples")
		require.NoError(t, err)
		assert.Equal(t, 100, n)
	})

	t.Run("inputs are not mutated", func(t *testing.T) {
		s, err := parent.String("learner.learner_type")
		require.NoError(t, err)
		assert.Equal(t, "subset", s)
	})
}

func TestAsMap(t *testing.T) {
	p := FromMap(map[string]cty.Value{
		"name":  cty.StringVal("demo"),
		"count": cty.NumberIntVal(3),
		"rate":  cty.NumberFloatVal(0.5),
		"flags": cty.TupleVal([]cty.Value{cty.True, cty.False}),
		"inner": cty.ObjectVal(map[string]cty.Value{
			"empty": cty.NullVal(cty.String),
		}),
	})

	want := map[string]any{
		"name":  "demo",
		"count": int64(3),
		"rate":  0.5,
		"flags": []any{true, false},
		"inner": map[string]any{"empty": nil},
	}
	if diff := cmp.Diff(want, p.AsMap()); diff != "" {
		t.Fatalf("AsMap mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkVisitsLeavesInOrder(t *testing.T) {
	p := fixture()

	var paths []string
	err := p.Walk(func(path string, v cty.Value) error {
		paths = append(paths, path)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"curriculum_files[0]",
		"curriculum_files[1]",
		"experiment",
		"learner.learner_type",
		"learner.learning_factor",
		"learner.ontology",
		"learner.smoothing",
		"num_samples",
	}, paths)
}
