package middleware

import (
	"net/http"
	"slices"
)

// Middleware wraps an http.Handler. The server applies these around its
// whole mux, so they see every route.
type Middleware func(http.Handler) http.Handler

// Chain composes mws into one Middleware, first outermost, the same order
// runnable.Chain uses for runnables.
func Chain(mws ...Middleware) Middleware {
	return func(h http.Handler) http.Handler {
		for _, mw := range slices.Backward(mws) {
			h = mw(h)
		}
		return h
	}
}
