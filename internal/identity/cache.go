package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/vetintel/aigateway/internal/cache"
)

const cacheTTL = 1 * time.Minute

// CachingVerifier fronts another Verifier with a short-lived in-process
// cache so a chatty client doesn't hit the identity provider on every
// request. Keys are token digests; raw tokens never sit in memory as map
// keys. Revocation lag is bounded by the TTL.
type CachingVerifier struct {
	inner Verifier
	cache *cache.TTLCache
}

func NewCachingVerifier(inner Verifier) *CachingVerifier {
	return &CachingVerifier{
		inner: inner,
		cache: cache.NewTTL(),
	}
}

func (v *CachingVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	key := digest(token)

	if val, found := v.cache.Get(key); found {
		if id, ok := val.(*Identity); ok {
			return id, nil
		}
	}

	id, err := v.inner.Verify(ctx, token)
	if err != nil {
		// Only successes are cached; a rejected token retries the provider.
		return nil, err
	}

	v.cache.Set(key, id, cacheTTL)
	return id, nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
