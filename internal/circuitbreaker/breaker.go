package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker trips after a run of consecutive upstream failures and
// rejects calls for a cooldown period. State lives in Redis so all gateway
// instances see the same breaker:
//
//	cb:{service}:failures -> consecutive failure count
//	cb:{service}:open     -> present while tripped (TTL = cooldown)
//
// Expiry of the open key re-admits traffic; a success resets the failure
// count.
type CircuitBreaker struct {
	client           *redis.Client
	failureThreshold int64
	cooldown         time.Duration
}

func New(client *redis.Client, failureThreshold int64, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		client:           client,
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
	}
}

// Execute runs action unless the circuit is open. Redis being unreachable
// does not block the call; the breaker degrades to a pass-through.
func (cb *CircuitBreaker) Execute(ctx context.Context, serviceName string, action func() error) error {
	openKey := "cb:" + serviceName + ":open"
	failureKey := "cb:" + serviceName + ":failures"

	open, err := cb.client.Exists(ctx, openKey).Result()
	if err == nil && open > 0 {
		return ErrCircuitOpen
	}

	opErr := action()

	if opErr != nil {
		failures, incrErr := cb.client.Incr(ctx, failureKey).Result()
		if incrErr == nil && failures >= cb.failureThreshold {
			cb.client.Set(ctx, openKey, "1", cb.cooldown)
			cb.client.Del(ctx, failureKey)
		}
		return opErr
	}

	cb.client.Del(ctx, failureKey)
	return nil
}
