// Package httpserver holds the http.Server construction so timeouts are set
// in exactly one place.
package httpserver

import (
	"net/http"
	"time"
)

// New builds the process http.Server. WriteTimeout is zero because the
// profile watch endpoint streams for the lifetime of the connection; the
// per-route timeout middleware bounds everything else.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
