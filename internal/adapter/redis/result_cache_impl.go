package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/VritantaNextgen/moolyamitra-scraper/internal/entity"
)

const resultCachePrefix = "render:"

// ResultCacheRepoImpl provides a concrete implementation for the ResultCacheRepository interface using Redis.
// Results are stored as JSON under a key derived from the task's URL and action list.
type ResultCacheRepoImpl struct {
	client *redis.Client
}

// NewResultCacheRepo creates a new instance of ResultCacheRepoImpl.
func NewResultCacheRepo(client *redis.Client) *ResultCacheRepoImpl {
	return &ResultCacheRepoImpl{client: client}
}

func (r *ResultCacheRepoImpl) generateKey(key string) string {
	return fmt.Sprintf("%s%s", resultCachePrefix, key)
}

// Put stores a result under the key with an expiry.
func (r *ResultCacheRepoImpl) Put(ctx context.Context, key string, result *entity.Result, expiry time.Duration) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return r.client.SetEx(ctx, r.generateKey(key), payload, expiry).Err()
}

// Get retrieves a cached result. A miss is not an error; it returns (nil, nil).
func (r *ResultCacheRepoImpl) Get(ctx context.Context, key string) (*entity.Result, error) {
	payload, err := r.client.Get(ctx, r.generateKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var result entity.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
