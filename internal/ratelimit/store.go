// Package ratelimit implements fixed-window request counting. The counter
// store is the only shared mutable state in the request path; it is
// abstracted behind Store so a single-instance deployment can use the
// in-process map and a multi-instance deployment the Redis store without
// touching call sites.
package ratelimit

import (
	"context"
	"time"
)

// Store is an atomic window counter. Incr increments the counter for key
// in the current fixed window and returns the post-increment count along
// with the time until the window resets. The increment-and-read must be a
// single atomic operation so concurrent requests cannot slip past the
// limit between a check and an increment.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}
