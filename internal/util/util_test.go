package util

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBaseHref(t *testing.T) {
	assert.Equal(t, "", ComputeBaseHref("index.html"))
	assert.Equal(t, "../", ComputeBaseHref("item/a.html"))
	assert.Equal(t, "../../", ComputeBaseHref("a/b/c.html"))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "out.txt")

	require.NoError(t, WriteFileAtomic(target, []byte("hello"), 0644))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileAndDirExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	assert.True(t, FileExists(file))
	assert.False(t, FileExists(dir))
	assert.True(t, DirExists(dir))
	assert.False(t, DirExists(file))
	assert.False(t, FileExists(filepath.Join(dir, "missing")))
}

func TestCleanDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", "b"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.html"), []byte("x"), 0644))

	require.NoError(t, CleanDir(dir))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.True(t, DirExists(dir))
}

func TestCopyTree(t *testing.T) {
	src := fstest.MapFS{
		"css/style.css":    {Data: []byte("body{}")},
		"js/app.js":        {Data: []byte("1")},
		"images/.gitkeep":  {Data: nil},
		"skip/ignored.txt": {Data: []byte("no")},
	}
	dst := t.TempDir()

	n, err := CopyTree(src, dst, CopyOptions{
		Exclude: func(rel string, d fs.DirEntry) bool {
			return rel == "skip" || d.Name() == ".gitkeep"
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(filepath.Join(dst, "css", "style.css"))
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(data))
	assert.False(t, FileExists(filepath.Join(dst, "skip", "ignored.txt")))
	assert.False(t, FileExists(filepath.Join(dst, "images", ".gitkeep")))
}

func TestCopyTreeSkipUnchanged(t *testing.T) {
	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.css"), []byte("abc"), 0644))
	dst := t.TempDir()

	n, err := CopyTree(os.DirFS(srcDir), dst, CopyOptions{SkipUnchanged: true})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = CopyTree(os.DirFS(srcDir), dst, CopyOptions{SkipUnchanged: true})
	require.NoError(t, err)
	assert.Equal(t, 0, n, "second copy should skip the unchanged file")
}
