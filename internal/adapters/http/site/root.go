// Package site serves the embedded scanner console.
package site

import (
	"context"
	"net/http"
)

// Register attaches the console to mux at /. Unknown paths fall through to the
// file server and get 404.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/", http.FileServer(FS()))
}
