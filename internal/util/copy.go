package util

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// CopyOptions tunes CopyTree.
type CopyOptions struct {
	// Exclude skips a slash-separated path relative to the tree root.
	// Returning true for a directory skips the whole subtree.
	Exclude func(rel string, d fs.DirEntry) bool

	// SkipUnchanged leaves a destination file alone when it has the same
	// size as the source and is not older than it.
	SkipUnchanged bool
}

// CopyTree mirrors every file of src into the dst directory and returns the
// number of files written.
func CopyTree(src fs.FS, dst string, opts CopyOptions) (int, error) {
	copied := 0
	err := fs.WalkDir(src, ".", func(rel string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if rel != "." && opts.Exclude != nil && opts.Exclude(rel, d) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, filepath.FromSlash(rel))
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if opts.SkipUnchanged && unchanged(info, target) {
			return nil
		}
		if err := copyFile(src, rel, target); err != nil {
			return fmt.Errorf("copying %s: %w", path.Clean(rel), err)
		}
		copied++
		return nil
	})
	return copied, err
}

func unchanged(srcInfo fs.FileInfo, target string) bool {
	dstInfo, err := os.Stat(target)
	if err != nil {
		return false
	}
	return dstInfo.Size() == srcInfo.Size() && !dstInfo.ModTime().Before(srcInfo.ModTime())
}

func copyFile(src fs.FS, rel, target string) error {
	in, err := src.Open(rel)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
