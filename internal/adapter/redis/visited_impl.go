package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/VritantaNextgen/moolyamitra-scraper/pkg/utils"
)

const scrapedQueryPrefix = "scraped:"

// VisitedRepoImpl provides a concrete implementation for the VisitedRepository interface using Redis.
type VisitedRepoImpl struct {
	client *redis.Client
}

// NewVisitedRepo creates a new instance of VisitedRepoImpl.
func NewVisitedRepo(client *redis.Client) *VisitedRepoImpl {
	return &VisitedRepoImpl{client: client}
}

// generateKey creates a consistent Redis key for a product query by hashing it.
func (r *VisitedRepoImpl) generateKey(query string) string {
	return fmt.Sprintf("%s%s", scrapedQueryPrefix, utils.HashKey(query))
}

// MarkVisited marks a query as scraped by setting a key in Redis with a specific expiry time.
func (r *VisitedRepoImpl) MarkVisited(ctx context.Context, query string, expiry time.Duration) error {
	return r.client.SetEx(ctx, r.generateKey(query), "1", expiry).Err()
}

// IsVisited checks if a query has been scraped recently by checking for the existence of its key.
func (r *VisitedRepoImpl) IsVisited(ctx context.Context, query string) (bool, error) {
	val, err := r.client.Exists(ctx, r.generateKey(query)).Result()
	if err != nil {
		return false, err
	}
	return val == 1, nil
}

// RemoveVisited removes a query from the visited set, used for force_scrape.
func (r *VisitedRepoImpl) RemoveVisited(ctx context.Context, query string) error {
	return r.client.Del(ctx, r.generateKey(query)).Err()
}
