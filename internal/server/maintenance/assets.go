package maintenance

import (
	"embed"
	"io/fs"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/autodeployer/internal/logfields"
)

//go:embed assets
var embedded embed.FS

// FallbackAssets returns the built-in maintenance page.
func FallbackAssets() fs.FS {
	sub, err := fs.Sub(embedded, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

// ResolveAssets returns dir as the asset root when it is an existing
// directory and the built-in page otherwise.
func ResolveAssets(dir string) fs.FS {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir)
		}
	}
	slog.Info("Asset directory unavailable, serving built-in maintenance page", logfields.Path(dir))
	return FallbackAssets()
}
