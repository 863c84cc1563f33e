// Package middleware decorates an analytics EventStore with privacy
// behavior: masking of personal data and encryption at rest.
package middleware

import "github.com/aretw0/lmrtfy/pkg/ports"

// Middleware allows wrapping an EventStore to add behavior.
type Middleware func(ports.EventStore) ports.EventStore

// Chain wraps store so that the first middleware sees every call first.
func Chain(store ports.EventStore, mws ...Middleware) ports.EventStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
