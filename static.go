package routekit

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	rkmiddleware "github.com/vango-dev/routekit/pkg/middleware"
	"github.com/vango-dev/routekit/pkg/rendercache"
)

// AssetsPrefix is the URL prefix client assets are served under.
const AssetsPrefix = "/_routekit/assets/"

// clientAssetPrefix marks build outputs that are safe to send to browsers.
// Entrypoints, the manifest and the server bundle never are.
const clientAssetPrefix = "client."

// assetRelPath returns a sanitized build-relative path for an asset request.
// It rejects traversal and absolute-path tricks so serving cannot escape
// the build directory.
func assetRelPath(urlPath string) (string, bool) {
	rel, ok := strings.CutPrefix(urlPath, AssetsPrefix)
	if !ok || rel == "" {
		return "", false
	}

	// Reject NUL early (can appear via %00).
	if strings.IndexByte(rel, 0) != -1 {
		return "", false
	}

	// Reject platform-dependent separators.
	if strings.Contains(rel, "\\") {
		return "", false
	}

	// A leading "/" after the prefix indicates an absolute-path attempt.
	if strings.HasPrefix(rel, "/") {
		return "", false
	}

	// Reject dot-segments before cleaning so traversal is not cleaned away.
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || clean == "" || clean == ".." || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", false
	}

	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}

	if !strings.HasPrefix(path.Base(clean), clientAssetPrefix) {
		return "", false
	}
	return clean, true
}

// serveAsset serves client bundles from the build directory.
func (a *App) serveAsset(w http.ResponseWriter, r *http.Request) {
	rkmiddleware.SetRoute(r.Context(), RouteAssets)
	rel, ok := assetRelPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	root, err := os.OpenRoot(a.cfg.BuildPath())
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer root.Close()

	f, err := root.Open(filepath.FromSlash(rel))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	a.applyCacheHeaders(w, rel)
	http.ServeContent(w, r, rel, info.ModTime(), f)
}

// applyCacheHeaders sets Cache-Control for an asset.
func (a *App) applyCacheHeaders(w http.ResponseWriter, filePath string) {
	switch {
	case !a.cfg.Project.Production:
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	case isFingerprinted(filePath):
		// Fingerprinted files are immutable.
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	default:
		w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
	}
}

// clientBundleURL is the script URL embedded in the shell. The query
// changes with every published bundle.
func clientBundleURL(b rendercache.Bundle) string {
	u := AssetsPrefix + "client.bundle.js"
	if h := b.Hash; len(h) >= 8 {
		u += "?v=" + h[:8]
	}
	return u
}

// isFingerprinted checks if a file path appears to be fingerprinted.
// Fingerprinted files have a hash in their name, e.g., "client.a1b2c3d4.js"
func isFingerprinted(filePath string) bool {
	base := path.Base(filePath)

	parts := strings.Split(base, ".")
	if len(parts) < 3 {
		return false
	}

	// Hashes are typically 8+ hex characters.
	hash := parts[len(parts)-2]
	if len(hash) < 8 {
		return false
	}

	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}

	return true
}
