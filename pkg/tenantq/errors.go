package tenantq

import "errors"

var (
	// ErrClusterNil is returned when Utilities are created without a cluster
	ErrClusterNil = errors.New("cluster cannot be nil")

	// ErrEmptyIter is returned when an iter group is enqueued without arguments
	ErrEmptyIter = errors.New("iter has no arguments")
)
