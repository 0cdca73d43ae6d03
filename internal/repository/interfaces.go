package repository

import (
	"context"
)

// LeaseStore defines the interface for distributed, expiring ownership locks.
// The worker holds a lease per job id while processing; the artifact generator
// holds one per artifact while writing it.
type LeaseStore interface {
	// Acquire attempts to take the lease named key.
	// Returns true if the lease was acquired, false if someone else holds it.
	Acquire(ctx context.Context, key string) (bool, error)

	// Release lets the lease lapse after its grace TTL.
	Release(ctx context.Context, key string) error

	// Drop removes the lease immediately.
	Drop(ctx context.Context, key string) error
}

// Verifier looks up a single certificate with the external verification service.
type Verifier interface {
	// Verify reports whether the certificate is known. A transport error or an
	// unexpected response is returned as an error.
	Verify(ctx context.Context, cert string) (bool, error)
}
