package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cth/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		buildClean, buildWatch = false, false
		buildOverwrite = config.OverwriteNone
		buildMetricsFile = ""
		projectDir = "."
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cth dev")
}

func TestNewThenBuild(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "--dir", dir, "new", "Book Shelf")
	require.NoError(t, err)
	assert.Contains(t, out, "cd book-shelf")

	root := filepath.Join(dir, "book-shelf")
	metricsFile := filepath.Join(dir, "build.prom")
	_, err = execute(t, "--dir", root, "--log-format", "json", "build", "sample", "--overwrite", "all", "--metrics-file", metricsFile)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "dist", "index.html"))
	assert.NoError(t, err)

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `cth_build_outcomes_total{outcome="success"} 1`))
}

func TestBuild_InvalidOverwrite(t *testing.T) {
	_, err := execute(t, "build", "--overwrite", "everything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid overwrite category")
}

func TestBuild_NotAProject(t *testing.T) {
	_, err := execute(t, "--dir", t.TempDir(), "build")
	assert.ErrorIs(t, err, config.ErrNotProject)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("warning").String())
	assert.Equal(t, "INFO", parseLevel("nope").String())
}
