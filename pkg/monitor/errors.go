package monitor

import "errors"

var (
	// ErrStart indicates that the server failed to start.
	ErrStart = errors.New("failed to start monitor server")
	// ErrShutdown indicates that graceful shutdown failed.
	ErrShutdown = errors.New("failed to shutdown monitor server gracefully")
	// ErrAlreadyRunning is returned by Run on a server that is already serving.
	ErrAlreadyRunning = errors.New("monitor server already running")
)
