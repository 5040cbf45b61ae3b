package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pulsedash/pulsedash/internal/metrics"
)

// Fetcher wraps expensive lookups with get-or-compute-and-store semantics.
// Concurrent misses on one key share a single in-flight computation: the
// first caller runs fn, later callers wait for its result. A failed compute
// never populates the store, so the next caller retries from scratch.
type Fetcher struct {
	store *Store
	group singleflight.Group
}

func NewFetcher(store *Store) *Fetcher {
	return &Fetcher{store: store}
}

// Store exposes the underlying TTL store for explicit invalidation.
func (f *Fetcher) Store() *Store { return f.store }

// Do returns the cached value for key or computes it with fn and stores it
// for ttl. The second return reports whether the value came from cache.
// The computation runs detached from the caller's cancellation: a caller
// abandoning its request must not fail the waiters sharing the flight.
func (f *Fetcher) Do(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) (any, error)) (any, bool, error) {
	if v, ok := f.store.Get(key); ok {
		observeHit(key)
		return v, true, nil
	}
	observeMiss(key)

	v, err, shared := f.group.Do(key, func() (any, error) {
		// A flight that just settled may have populated the store between
		// our miss and this callback.
		if v, ok := f.store.Get(key); ok {
			return v, nil
		}
		v, err := fn(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		f.store.Set(key, v, ttl)
		return v, nil
	})
	if shared {
		metrics.FetchShared.WithLabelValues(Scope(key)).Inc()
	}
	if err != nil {
		return nil, false, err
	}
	return v, false, nil
}

// Fetch is the typed form of Fetcher.Do.
func Fetch[T any](ctx context.Context, f *Fetcher, key string, ttl time.Duration, fn func(ctx context.Context) (T, error)) (T, bool, error) {
	v, cached, err := f.Do(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v.(T), cached, nil
}
