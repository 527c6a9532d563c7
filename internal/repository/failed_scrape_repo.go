package repository

import (
	"context"

	"github.com/VritantaNextgen/moolyamitra-scraper/internal/entity"
)

// FailedScrapeRepository defines the interface for managing scrape jobs that failed.
type FailedScrapeRepository interface {
	// SaveOrUpdate creates or updates a record for a failed scrape, advancing
	// its retry schedule.
	SaveOrUpdate(ctx context.Context, failed *entity.FailedScrape) error
	// FindRetryable retrieves a batch of scrapes that are due for a retry.
	FindRetryable(ctx context.Context, limit int) ([]*entity.FailedScrape, error)
	// Delete removes a failed scrape record, typically after a successful scrape.
	Delete(ctx context.Context, productQuery string) error
}
