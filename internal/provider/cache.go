package provider

import (
	"context"
	"strings"
	"time"

	"github.com/rxscan/verify-cli/internal/model"
)

// VerificationCache is the slice of the store the cache provider reads.
type VerificationCache interface {
	GetCachedProfile(ctx context.Context, key string) (*model.VerifiedProfile, error)
}

// CacheKey builds the cache lookup key for a strategy. Values are
// case- and whitespace-insensitive.
func CacheKey(s model.SearchStrategy) string {
	return string(s.Kind) + ":" + strings.ToLower(strings.Join(strings.Fields(s.Value), " "))
}

// CachePayload wraps a previously verified profile served from the
// local store.
type CachePayload struct {
	Profile model.VerifiedProfile `json:"profile"`
}

// LocalCache serves prior verification results from the store. It is
// deliberately low-trust: cached data may be stale.
type LocalCache struct {
	cache   VerificationCache
	timeout time.Duration
}

// NewLocalCache creates the local cache provider.
func NewLocalCache(cache VerificationCache, timeout time.Duration) *LocalCache {
	return &LocalCache{cache: cache, timeout: timeout}
}

func (p *LocalCache) Name() string     { return NameLocalCache }
func (p *LocalCache) Reliability() int { return Reliability[NameLocalCache] }

func (p *LocalCache) Search(ctx context.Context, strategies []model.SearchStrategy) *model.SourceResult {
	return search(ctx, p.Name(), p.timeout, strategies,
		func(ctx context.Context, s model.SearchStrategy) (any, int, bool, error) {
			profile, err := p.cache.GetCachedProfile(ctx, CacheKey(s))
			if err != nil {
				return nil, 0, false, err
			}
			if profile == nil {
				return nil, 0, false, nil
			}
			return CachePayload{Profile: *profile}, len(profile.Resolutions), true, nil
		})
}
