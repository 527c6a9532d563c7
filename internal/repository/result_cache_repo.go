package repository

import (
	"context"
	"time"

	"github.com/VritantaNextgen/moolyamitra-scraper/internal/entity"
)

// ResultCacheRepository defines the interface for short-lived caching of
// render results, keyed by the task's URL and action sequence.
type ResultCacheRepository interface {
	// Put stores a successful result under the key with an expiry.
	Put(ctx context.Context, key string, result *entity.Result, expiry time.Duration) error
	// Get retrieves a cached result, or (nil, nil) on a miss.
	Get(ctx context.Context, key string) (*entity.Result, error)
}
