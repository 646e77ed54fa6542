package api

import (
	"context"
	"net"
	"net/http"
)

// NewServer returns an http.Server whose request contexts are canceled once
// Shutdown starts, so open progress streams end instead of holding it up.
func NewServer(addr string, handler http.Handler) *http.Server {
	base, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		BaseContext: func(net.Listener) context.Context { return base },
	}
	srv.RegisterOnShutdown(cancel)
	return srv
}
