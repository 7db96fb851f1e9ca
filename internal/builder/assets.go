// internal/builder/assets.go
package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cth/internal/config"
	"cth/internal/logfields"
	"cth/internal/util"
)

// CopyAssets mirrors the theme assets directory into dist/assets. Files
// whose copy is already current are left alone unless all outputs are
// overwritten.
func (b *Builder) CopyAssets(_ context.Context) (int, error) {
	src := b.layout.ThemeFile(AssetsDir)
	if !util.DirExists(src) {
		return 0, nil
	}

	n, err := util.CopyTree(os.DirFS(src), filepath.Join(b.layout.Dist, AssetsDir), util.CopyOptions{
		SkipUnchanged: b.overwrite != config.OverwriteAll,
	})
	if err != nil {
		return n, fmt.Errorf("copying assets: %w", err)
	}
	b.logger.Debug("assets copied", logfields.Path(src), "files", n)
	return n, nil
}
