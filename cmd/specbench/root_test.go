package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInfo(t *testing.T) {
	out, err := execute(t, "info", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "miss threshold 10")
	assert.Contains(t, out, " - include\n")
	assert.Contains(t, out, " - specinclude\n")
	assert.Contains(t, out, "SpecIncludeExpressionCached")
}

func TestInfoUsesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  miss_threshold: 4\nlog:\n  level: error\n"), 0o600))

	out, err := execute(t, "info", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "miss threshold 4")
}

func TestFlagErrors(t *testing.T) {
	_, err := execute(t, "info", "--format", "xml")
	assert.ErrorContains(t, err, "invalid format")

	_, err = execute(t, "info", "--log-level", "loud")
	assert.ErrorContains(t, err, "unknown log level")

	_, err = execute(t, "run", "nope", "--log-level", "error")
	assert.ErrorContains(t, err, `benchmark "nope" not found`)

	_, err = execute(t, "run")
	assert.Error(t, err)
}
