package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/foldfile/pkg/errors"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		overwrite = false
		showFold = -1
		errors.SetZerologWarnFunc(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func writeInputs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	var lines []string
	for i := 0; i < 6; i++ {
		lines = append(lines, `{"HT": `+strings.Repeat("1", i+1)+`, "label": `+[]string{"0", "1"}[i%2]+`, "Jet_pt": [1.5, 2.5]}`)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events.jsonl"), []byte(strings.Join(lines, "\n")), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conv.yaml"), []byte(`
source:
  path: events.jsonl
output:
  path: train.h5
folds:
  n_folds: 3
features:
  continuous: [HT]
  targets: [label]
tensors:
  - name: jets
    collection: Jet
    length: 2
    mask: true
logging:
  level: error
`), 0o644))
	return dir
}

func TestConvertAndInspect(t *testing.T) {
	t.Setenv("FOLDFILE_LOG_LEVEL", "")
	t.Setenv("FOLDFILE_LOG_FORMAT", "")
	dir := writeInputs(t)
	cfg := filepath.Join(dir, "conv.yaml")

	out, err := runCLI(t, "convert", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 6 events in 3 folds")

	_, err = runCLI(t, "convert", "-c", cfg)
	var exists *errors.StoreExistsError
	require.ErrorAs(t, err, &exists)

	_, err = runCLI(t, "convert", "-c", cfg, "--overwrite")
	require.NoError(t, err)

	out, err = runCLI(t, "inspect", filepath.Join(dir, "train.h5"), "--fold", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "folds:        3")
	assert.Contains(t, out, "fold_0:     2 events")
	assert.Contains(t, out, "tensor jets:   Jet[pt] x 2, masked")
	assert.Contains(t, out, "targets:      label (int)")
	assert.Contains(t, out, "fold_1: 2 events")
}

func TestInspectMissingFile(t *testing.T) {
	_, err := runCLI(t, "inspect", filepath.Join(t.TempDir(), "nope.h5"))
	var ioErr *errors.IOError
	assert.ErrorAs(t, err, &ioErr)
}
