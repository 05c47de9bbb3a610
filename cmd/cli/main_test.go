package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	err := run(out, errOut, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, errOut.String(), "Usage:", "Expected help text to be printed")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	err := run(out, errOut, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_LoadError(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "experiment.yaml")
	require.NoError(t, os.WriteFile(filePath, []byte("key: [unterminated\n"), 0o600))

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	err := run(out, errOut, []string{"validate", filePath})

	require.Error(t, err, "run() should surface parameter file parse errors")
}

func TestRun_ResolvePrintsMergedTree(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	root := filepath.Join(tempDir, "root.yaml")
	child := filepath.Join(tempDir, "experiment.yaml")
	require.NoError(t, os.WriteFile(root, []byte("learner: pursuit\ndata_dir: /data\n"), 0o600))
	require.NoError(t, os.WriteFile(child, []byte("_includes:\n  - root.yaml\nlearner: cross-situational\n"), 0o600))

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	err := run(out, errOut, []string{"resolve", child})

	require.NoError(t, err)
	require.Contains(t, out.String(), "learner: cross-situational")
	require.Contains(t, out.String(), "data_dir: /data")
}
