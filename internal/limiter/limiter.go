package limiter

import (
	"context"
	"time"

	"github.com/vetintel/aigateway/internal/limits"
)

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time // when the caller may retry after a denial
}

// Store applies one rule to one (user, endpoint) key. The read-modify-write
// for a key must be serializable across concurrent callers, including
// callers in separate processes for distributed stores; two requests arriving
// at count = N-1 must not both be admitted.
//
// A Store error means the backing infrastructure failed, not that the
// request was denied. The caller decides the failure policy (the gateway
// fails open).
type Store interface {
	Allow(ctx context.Context, userID, endpoint, clientIP string, rule limits.Rule) (Decision, error)
}

// The per-key record behind each Store:
//
//	NoRecord -> Active(count, windowStart) -> Blocked(until)
//
// A fresh key opens a window with count=1. Requests within an active window
// increment the count; the request that finds count already at capacity sets
// blocked_until = windowStart + window and is denied. A blocked key denies
// everything until blocked_until elapses.
//
// Window expiry is lazy: nothing sweeps stale records. A record whose window
// has elapsed and whose block (if any) has elapsed is treated the same as no
// record, and the next request opens a fresh window.
