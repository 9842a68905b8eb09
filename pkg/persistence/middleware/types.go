// Package middleware provides composable wrappers around a
// ports.SessionStore. Middlewares transform sessions on their way to and
// from the backing store without the engine knowing.
package middleware

import "github.com/maxbot-ai/dialogtree/pkg/ports"

// Middleware wraps a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// Chain applies middlewares so the first listed is the outermost.
func Chain(store ports.SessionStore, middlewares ...Middleware) ports.SessionStore {
	for i := len(middlewares) - 1; i >= 0; i-- {
		store = middlewares[i](store)
	}
	return store
}
