package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/vetintel/aigateway/internal/limits"
)

type record struct {
	windowStart  time.Time
	count        int
	blockedUntil time.Time
	lastIP       string
}

// MemoryStore applies the same state machine behind a process-local mutex.
// Suitable for a single gateway instance and for tests; the mutex gives the
// same per-key serializability the Lua script gives Redis.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*record),
		now:     time.Now,
	}
}

func (s *MemoryStore) Allow(ctx context.Context, userID, endpoint, clientIP string, rule limits.Rule) (Decision, error) {
	key := endpoint + ":" + userID
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[key]

	// Lazy expiry: an elapsed window with no live block is the same as no
	// record.
	if exists && !rec.windowStart.Add(rule.Window).After(now) && !rec.blockedUntil.After(now) {
		exists = false
	}

	if !exists {
		s.records[key] = &record{
			windowStart: now,
			count:       1,
			lastIP:      clientIP,
		}
		return Decision{Allowed: true, Remaining: rule.MaxRequests - 1, ResetAt: now.Add(rule.Window)}, nil
	}

	if rec.blockedUntil.After(now) {
		return Decision{Allowed: false, Remaining: 0, ResetAt: rec.blockedUntil}, nil
	}

	if rec.count >= rule.MaxRequests {
		rec.blockedUntil = rec.windowStart.Add(rule.Window)
		return Decision{Allowed: false, Remaining: 0, ResetAt: rec.blockedUntil}, nil
	}

	rec.count++
	rec.lastIP = clientIP
	return Decision{
		Allowed:   true,
		Remaining: rule.MaxRequests - rec.count,
		ResetAt:   rec.windowStart.Add(rule.Window),
	}, nil
}
