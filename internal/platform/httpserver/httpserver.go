// Package httpserver centralizes http.Server construction so the entry point
// and tests share one timeout posture.
package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Header reads and idle keep-alives are bounded so
// a slow client cannot pin a connection indefinitely.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
