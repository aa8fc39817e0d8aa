package queue

import "errors"

// Common errors
var (
	// ErrBrokerNil is returned when a nil broker is provided
	ErrBrokerNil = errors.New("broker cannot be nil")

	// ErrEmptySecret is returned when a signer is created without a secret key
	ErrEmptySecret = errors.New("signing secret cannot be empty")

	// ErrBadSignature is returned when a package fails signature verification
	ErrBadSignature = errors.New("package signature does not match")

	// ErrMalformedPackage is returned when a signed package cannot be split or decoded
	ErrMalformedPackage = errors.New("malformed signed package")

	// ErrEmptyFunc is returned when a task is enqueued without a function name
	ErrEmptyFunc = errors.New("task function name cannot be empty")

	// ErrEmptyChain is returned when a chain without links is enqueued
	ErrEmptyChain = errors.New("chain has no links")

	// ErrHandlerNotFound is returned when no handler is registered for a task
	ErrHandlerNotFound = errors.New("no handler registered for task function")

	// ErrHandlerAlreadyRegistered is returned when trying to register a duplicate handler
	ErrHandlerAlreadyRegistered = errors.New("handler already registered")

	// ErrClusterRunning is returned when starting a cluster twice
	ErrClusterRunning = errors.New("cluster already started")

	// ErrClusterNotRunning is returned when stopping a cluster that was never started
	ErrClusterNotRunning = errors.New("cluster not started")

	// ErrInvalidSchedule is returned when a schedule kind or interval is invalid
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrNoScheduleStore is returned when scheduling without a configured schedule store
	ErrNoScheduleStore = errors.New("no schedule store configured")

	// ErrTaskTimeout is recorded on results of tasks that exceeded the cluster timeout
	ErrTaskTimeout = errors.New("task exceeded timeout")
)
