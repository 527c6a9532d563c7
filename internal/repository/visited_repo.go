package repository

import (
	"context"
	"time"
)

// VisitedRepository defines the interface for deduplication of recently
// scraped product queries.
type VisitedRepository interface {
	// MarkVisited marks a query as scraped with a specific expiry time.
	MarkVisited(ctx context.Context, query string, expiry time.Duration) error
	// IsVisited checks if a query has been scraped recently.
	IsVisited(ctx context.Context, query string) (bool, error)
	// RemoveVisited removes a query from the visited set, used for force_scrape.
	RemoveVisited(ctx context.Context, query string) error
}
