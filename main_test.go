package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/dfmcheck/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvProcess, "")
	t.Setenv(config.EnvLogLevel, "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRulesCommand(t *testing.T) {
	out, err := execute(t, "rules", "--process", "fdm")
	require.NoError(t, err)
	assert.Contains(t, out, "FDM_001")
	assert.NotContains(t, out, "CNC_001")
}

func TestCheckCommandJSON(t *testing.T) {
	metricsPath := filepath.Join(t.TempDir(), "dfm.prom")
	out, err := execute(t, "check", "examples/bracket.lisp",
		"--process", "cnc", "--format", "json", "--strict=false", "--metrics-file", metricsPath)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "CNC_MACHINING", doc["process"])

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dfm_model_solids 1")
}

func TestCheckCommandStrict(t *testing.T) {
	_, err := execute(t, "check", "examples/colliding.lisp",
		"--process", "cnc", "--format", "text", "--strict", "--metrics-file", "")
	assert.ErrorIs(t, err, errNotManufacturable)
}

func TestPhysicalCommand(t *testing.T) {
	out, err := execute(t, "physical", "examples/fixture.lisp", "--process", "cnc", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "Physical properties")
	assert.Contains(t, out, "plate")
}

func TestCommandRejectsBadProcess(t *testing.T) {
	_, err := execute(t, "rules", "--process", "laser")
	assert.ErrorContains(t, err, "Process")
}
