package httpapi

import (
	"embed"
	"net/http"

	"github.com/go-chi/chi/v5"
)

//go:embed static/index.html
var uiFS embed.FS

// MountUI serves the Mirror web page at /.
func MountUI(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		b, err := uiFS.ReadFile("static/index.html")
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "ui not embedded")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(b)
	})
}
