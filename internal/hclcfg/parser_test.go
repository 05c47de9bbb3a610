package hclcfg

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse(t *testing.T) {
	ctx := context.Background()
	parser := NewParser()

	t.Run("attributes and object namespaces", func(t *testing.T) {
		path := writeFile(t, "experiment.hcl", `
experiment = "pursuit-baseline"
num_samples = 400

learner = {
  learner_type    = "pursuit"
  learning_factor = 0.02
  smoothing       = true
}
`)

		file, err := parser.Parse(ctx, path)
		require.NoError(t, err)

		s, err := file.Params.String("learner.learner_type")
		require.NoError(t, err)
		assert.Equal(t, "pursuit", s)

		n, err := file.Params.Integer("num_samples")
		require.NoError(t, err)
		assert.Equal(t, 400, n)
	})

	t.Run("includes attribute", func(t *testing.T) {
		path := writeFile(t, "child.hcl", `
_includes = ["../root.hcl", "base.hcl"]
experiment = "override"
`)

		file, err := parser.Parse(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, []string{"../root.hcl", "base.hcl"}, file.Includes)
		assert.False(t, file.Params.Has("_includes"))
	})

	t.Run("includes must be a list of strings", func(t *testing.T) {
		path := writeFile(t, "bad.hcl", `_includes = "base.hcl"`)
		_, err := parser.Parse(ctx, path)
		assert.ErrorContains(t, err, "_includes must be a list")

		path = writeFile(t, "bad2.hcl", `_includes = [42]`)
		_, err = parser.Parse(ctx, path)
		assert.ErrorContains(t, err, "_includes[0] must be a string")
	})

	t.Run("blocks are rejected", func(t *testing.T) {
		path := writeFile(t, "blocky.hcl", `
learner {
  learner_type = "pursuit"
}
`)

		_, err := parser.Parse(ctx, path)
		assert.ErrorContains(t, err, "parameter files hold only attributes")
	})

	t.Run("variable references are rejected", func(t *testing.T) {
		path := writeFile(t, "refs.hcl", `output = var.experiment`)

		_, err := parser.Parse(ctx, path)
		assert.Error(t, err)
	})
}
