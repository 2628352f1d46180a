// Package server runs the ops listener of the license keeper.
//
// It owns the HTTP server lifecycle: startup, shutdown on context
// cancellation and a bounded graceful drain of in-flight requests.
package server
