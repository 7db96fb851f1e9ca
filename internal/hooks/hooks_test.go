package hooks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cth/internal/records"
)

func writeHook(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoad_MissingDirUsesDefaults(t *testing.T) {
	set, err := Load(filepath.Join(t.TempDir(), "hooks"), t.TempDir())
	require.NoError(t, err)

	assert.IsType(t, NopBuild{}, set.Build)
	assert.IsType(t, NopHelpers{}, set.Helpers)
	assert.IsType(t, NopDownloader{}, set.Downloader)

	row := records.Row{"title": "A"}
	out, err := set.Build.Each(context.Background(), row)
	require.NoError(t, err)
	assert.Equal(t, row, out)

	url, err := set.Downloader.Pre(context.Background(), "http://x/a.png")
	require.NoError(t, err)
	assert.Equal(t, "http://x/a.png", url)
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, BuildFile, "before:\n  command: [cat]\n")

	_, err := Load(dir, dir)
	assert.Error(t, err)
}

func TestLoad_EmptyFileKeepsPassThrough(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, BuildFile, "")

	set, err := Load(dir, dir)
	require.NoError(t, err)

	rows := []records.Row{{"a": "1"}}
	out, err := set.Build.Pre(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, rows, out)
}

func TestBuild_PreCommandPipesJSON(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, BuildFile, "pre:\n  command: [cat]\n")

	set, err := Load(dir, dir)
	require.NoError(t, err)

	rows := []records.Row{{"title": "A"}, {"title": "B"}}
	out, err := set.Build.Pre(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, rows, out)
}

func TestBuild_EachSetRendersTemplate(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, BuildFile, "each:\n  set:\n    label: \"{{item.title}}-{{item.year}}\"\n")

	set, err := Load(dir, dir)
	require.NoError(t, err)

	row := records.Row{"title": "Dune", "year": "1965"}
	out, err := set.Build.Each(context.Background(), row)
	require.NoError(t, err)
	assert.Equal(t, "Dune-1965", out["label"])
	assert.Equal(t, "Dune", out["title"])
	_, touched := row["label"]
	assert.False(t, touched, "input row must not be mutated")
}

func TestBuild_EachCommandReplacesRow(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, BuildFile, "each:\n  command: [sh, -c, 'echo {\\\"title\\\":\\\"changed\\\"}']\n")

	set, err := Load(dir, dir)
	require.NoError(t, err)

	out, err := set.Build.Each(context.Background(), records.Row{"title": "orig"})
	require.NoError(t, err)
	assert.Equal(t, records.Row{"title": "changed"}, out)
}

func TestBuild_CommandFailure(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, BuildFile, "post:\n  command: [sh, -c, 'echo boom >&2; exit 3']\n")

	set, err := Load(dir, dir)
	require.NoError(t, err)

	_, err = set.Build.Post(context.Background(), []records.Row{})
	require.Error(t, err)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "build.post", cmdErr.Hook)
	assert.Equal(t, "boom", cmdErr.Stderr)
}

func TestBuild_InvalidOutput(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, BuildFile, "pre:\n  command: [echo, not-json]\n")

	set, err := Load(dir, dir)
	require.NoError(t, err)

	_, err = set.Build.Pre(context.Background(), []records.Row{{"a": "b"}})
	assert.ErrorContains(t, err, "decoding output")
}

func TestHelpers_FromFile(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, HelpersFile, "shout: \"{{value}}!\"\n")

	set, err := Load(dir, dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"shout": "{{value}}!"}, set.Helpers.Helpers())
}

func TestDownloader_PreRewriteThenCommand(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, DownloaderFile, `pre:
  rewrite: "https://cdn.example.com/{{url}}"
  command: [sh, -c, 'read u; echo "$u?w=200"']
`)

	set, err := Load(dir, dir)
	require.NoError(t, err)

	url, err := set.Downloader.Pre(context.Background(), "a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.png?w=200", url)
}

func TestDownloader_PostReceivesPath(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "marker")
	writeHook(t, dir, DownloaderFile, "post:\n  command: [sh, -c, 'echo \"$1 $CTH_ASSET\" > marker', hook]\n")

	set, err := Load(dir, dir)
	require.NoError(t, err)

	require.NoError(t, set.Downloader.Post(context.Background(), "/tmp/a.png"))

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a.png /tmp/a.png\n", string(data))
}
