package http

import (
	"net/http"
	"path"
	"path/filepath"
)

// spaHandler serves files from dir and falls back to index.html for anything
// that is not a regular file, so client-side routes resolve.
func spaHandler(dir string) http.HandlerFunc {
	root := http.Dir(dir)
	files := http.FileServer(root)
	index := filepath.Join(dir, "index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		p := path.Clean("/" + r.URL.Path)
		if p != "/" {
			if f, err := root.Open(p); err == nil {
				info, statErr := f.Stat()
				_ = f.Close()
				if statErr == nil && !info.IsDir() {
					files.ServeHTTP(w, r)
					return
				}
			}
		}
		http.ServeFile(w, r, index)
	}
}
