package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/expgrid/internal/hclcfg"
	"github.com/vk/expgrid/internal/yamlcfg"
)

// writeTree materializes a map of relative path -> content under a fresh
// temp dir and returns the dir.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func newLoader() *Loader {
	return New(yamlcfg.NewParser(), hclcfg.NewParser())
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("child overrides included parent", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"root.params": `
experiment: base
num_samples: 100
learner:
  learner_type: subset
  learning_factor: 0.05
`,
			"pursuit.params": `
_includes:
  - root.params
learner:
  learner_type: pursuit
`,
		})

		res, err := newLoader().Load(ctx, filepath.Join(root, "pursuit.params"))
		require.NoError(t, err)

		s, err := res.Params.String("learner.learner_type")
		require.NoError(t, err)
		assert.Equal(t, "pursuit", s)

		// Inherited keys survive.
		n, err := res.Params.Integer("num_samples")
		require.NoError(t, err)
		assert.Equal(t, 100, n)

		f, err := res.Params.Float("learner.learning_factor")
		require.NoError(t, err)
		assert.InDelta(t, 0.05, f, 1e-9)
	})

	t.Run("later includes override earlier ones", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"a.params": "key: from-a\nonly_a: 1\n",
			"b.params": "key: from-b\nonly_b: 2\n",
			"child.params": `
_includes:
  - a.params
  - b.params
`,
		})

		res, err := newLoader().Load(ctx, filepath.Join(root, "child.params"))
		require.NoError(t, err)

		s, err := res.Params.String("key")
		require.NoError(t, err)
		assert.Equal(t, "from-b", s)
		assert.True(t, res.Params.Has("only_a"))
		assert.True(t, res.Params.Has("only_b"))
	})

	t.Run("includes resolve relative to the including file", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"common/root.params": "experiment_root: /data\n",
			"exp/run.params": `
_includes:
  - ../common/root.params
experiment: run1
`,
		})

		res, err := newLoader().Load(ctx, filepath.Join(root, "exp", "run.params"))
		require.NoError(t, err)
		assert.True(t, res.Params.Has("experiment_root"))
	})

	t.Run("diamond includes are legal", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"base.params":  "shared: base\n",
			"left.params":  "_includes: [base.params]\nleft: yes\n",
			"right.params": "_includes: [base.params]\nshared: right\n",
			"top.params":   "_includes: [left.params, right.params]\n",
		})

		res, err := newLoader().Load(ctx, filepath.Join(root, "top.params"))
		require.NoError(t, err)

		s, err := res.Params.String("shared")
		require.NoError(t, err)
		assert.Equal(t, "right", s)
		assert.Len(t, res.Files, 4)
	})

	t.Run("mixed formats compose", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"cluster.hcl": `
workflow = {
  partition = "gaia"
  memory    = "12G"
}
`,
			"run.params": `
_includes:
  - cluster.hcl
experiment: mixed
`,
		})

		res, err := newLoader().Load(ctx, filepath.Join(root, "run.params"))
		require.NoError(t, err)

		s, err := res.Params.String("workflow.partition")
		require.NoError(t, err)
		assert.Equal(t, "gaia", s)
	})

	t.Run("missing include names the including file", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"run.params": "_includes: [absent.params]\n",
		})

		_, err := newLoader().Load(ctx, filepath.Join(root, "run.params"))
		require.Error(t, err)
		assert.ErrorContains(t, err, "included from")
		assert.ErrorContains(t, err, "run.params")
	})

	t.Run("include cycle is rejected", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"a.params": "_includes: [b.params]\n",
			"b.params": "_includes: [a.params]\n",
		})

		_, err := newLoader().Load(ctx, filepath.Join(root, "a.params"))
		require.Error(t, err)
		assert.ErrorContains(t, err, "circular _includes chain")
	})

	t.Run("self include is rejected", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"a.params": "_includes: [a.params]\n",
		})

		_, err := newLoader().Load(ctx, filepath.Join(root, "a.params"))
		require.Error(t, err)
		assert.ErrorContains(t, err, "self-referential")
	})

	t.Run("unknown extension", func(t *testing.T) {
		root := writeTree(t, map[string]string{"a.toml": "x = 1\n"})

		_, err := newLoader().Load(ctx, filepath.Join(root, "a.toml"))
		assert.ErrorContains(t, err, "no parser for")
	})

	t.Run("files come back in dependency order", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"base.params":  "a: 1\n",
			"mid.params":   "_includes: [base.params]\n",
			"final.params": "_includes: [mid.params]\n",
		})

		res, err := newLoader().Load(ctx, filepath.Join(root, "final.params"))
		require.NoError(t, err)
		require.Len(t, res.Files, 3)
		assert.Equal(t, "base.params", filepath.Base(res.Files[0]))
		assert.Equal(t, "final.params", filepath.Base(res.Files[2]))
	})
}
