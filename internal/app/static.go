package app

import (
	"net/http"
	"os"
	"path/filepath"

	"voicegate/internal/observability"
)

// mountStatic serves the built frontend: index.html at the root, admin.html
// at /admin, and assets under /static/. A missing dist directory is logged
// and skipped so the API can run headless.
func mountStatic(mux *http.ServeMux, logger *observability.Logger, dir string) {
	if dir == "" {
		return
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		logger.Warn("static_dir_missing", map[string]any{"dir": dir})
		return
	}

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(dir))))
	mux.HandleFunc("GET /admin", servePage(filepath.Join(dir, "admin.html")))
	mux.HandleFunc("GET /{$}", servePage(filepath.Join(dir, "index.html")))
}

func servePage(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, path)
	}
}
