// Package cache provides a small typed key/value cache with per-entry TTL.
//
// Two backends are available: Memory for a single instance and Redis for
// deployments that run more than one instance. Nop disables caching. All
// backends are safe for concurrent use. Reads and writes are separate steps
// (no check-and-set); two callers that miss at the same time both do the
// work and both write, which is fine for the read-only lookups cached here.
package cache

import (
	"context"
	"time"
)

// Cache stores values of type V under string keys.
//
// Get reports ok=false on a miss, an expired entry, or a backend failure;
// caching is an optimization and never a reason to fail the caller.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// Nop is a Cache that never stores anything.
type Nop[V any] struct{}

func (Nop[V]) Get(context.Context, string) (V, bool) {
	var zero V
	return zero, false
}

func (Nop[V]) Set(context.Context, string, V, time.Duration) {}

func (Nop[V]) Delete(context.Context, string) {}
