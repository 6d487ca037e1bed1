package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getProjectRoot returns the absolute path to the module root.
func getProjectRoot(t *testing.T) string {
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	t.Fatal("go.mod not found")
	return ""
}

func buildBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping build test in short mode")
	}
	binPath := filepath.Join(t.TempDir(), "ito")
	buildCmd := exec.Command("go", "build", "-o", binPath, ".")
	buildCmd.Dir = filepath.Join(getProjectRoot(t), "cmd", "ito")
	output, err := buildCmd.CombinedOutput()
	require.NoError(t, err, "build failed: %s", string(output))
	return binPath
}

func run(t *testing.T, bin, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "NO_COLOR=1")
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestMainHelpFlag(t *testing.T) {
	bin := buildBinary(t)
	out, err := run(t, bin, t.TempDir(), "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "audit log")
}

func TestMainUnknownCommand(t *testing.T) {
	bin := buildBinary(t)
	out, err := run(t, bin, t.TempDir(), "unknown-command-xyz")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(out), "unknown")
}

func TestMainOutsideProject(t *testing.T) {
	bin := buildBinary(t)
	out, err := run(t, bin, t.TempDir(), "audit", "log")
	assert.Error(t, err)
	assert.Contains(t, out, "E_PROJECT_NOT_FOUND")
}

func TestBinaryAuditRoundTrip(t *testing.T) {
	bin := buildBinary(t)
	dir := t.TempDir()

	out, err := run(t, bin, dir, "init")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Initialized")

	out, err = run(t, bin, dir, "config", "set", "audit.validate.strict", "true")
	require.NoError(t, err, out)

	out, err = run(t, bin, dir, "--json", "audit", "log")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"entity_kind": "config"`)
	assert.Contains(t, out, `"to": "true"`)

	metricsPath := filepath.Join(dir, "ito.prom")
	out, err = run(t, bin, dir, "--metrics-textfile", metricsPath, "audit", "validate")
	require.NoError(t, err, out)
	assert.Contains(t, out, "valid")

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ito_audit")
}

// TestMainEntryPoints is a compile-time check that main exists.
func TestMainEntryPoints(t *testing.T) {
	_ = main
}
