package handlers

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"git.home.luguber.info/inful/autodeployer/internal/logfields"
)

// IndexFile is served for the root path.
const IndexFile = "index.html"

var contentTypes = map[string]string{
	".html": "text/html",
	".js":   "application/javascript",
	".css":  "text/css",
}

// ContentTypeFor returns the Content-Type for a static asset name.
func ContentTypeFor(name string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// AssetHandler serves regular files from a static asset root. Directories,
// missing files and paths that would leave the root are answered with 404.
type AssetHandler struct {
	root fs.FS
}

// NewAssetHandler creates a handler serving files from root.
func NewAssetHandler(root fs.FS) *AssetHandler {
	return &AssetHandler{root: root}
}

func (h *AssetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowReadOnly(w, r) {
		return
	}

	name, ok := assetName(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	info, err := fs.Stat(h.root, name)
	if err != nil || !info.Mode().IsRegular() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("asset lookup failed", logfields.Path(name), logfields.Error(err))
		}
		http.NotFound(w, r)
		return
	}

	data, err := fs.ReadFile(h.root, name)
	if err != nil {
		slog.Warn("asset read failed", logfields.Path(name), logfields.Error(err))
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", ContentTypeFor(name))
	http.ServeContent(w, r, name, info.ModTime(), bytes.NewReader(data))
}

// assetName maps a URL path to a name inside the asset root.
func assetName(urlPath string) (string, bool) {
	name := strings.TrimPrefix(urlPath, "/")
	if name == "" {
		return IndexFile, true
	}
	if strings.Contains(name, "\\") || !fs.ValidPath(name) {
		return "", false
	}
	return name, true
}
