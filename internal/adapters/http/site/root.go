// Package site serves the embedded scoreboard pages.
package site

import (
	"context"
	"net/http"
)

// Register attaches the scoreboard viewer to mux at /. Paths not claimed by
// other handlers fall through to the embedded files.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/", noCache(http.FileServer(FS())))
}

// noCache keeps viewers on the page shipped with the running binary.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}
