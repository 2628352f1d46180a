package server

import "context"

// Server defines the lifecycle contract of the listeners managed by this
// package.
type Server interface {
	// RunServer serves until ctx is cancelled, then shuts down gracefully.
	// It returns early with an error when the listener cannot be started.
	RunServer(ctx context.Context) error

	// Shutdown gracefully stops the server and frees associated resources.
	Shutdown()
}
