package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VritantaNextgen/moolyamitra-scraper/internal/entity"
)

const (
	initialBackoff = 30 * time.Second
	maxBackoff     = 30 * time.Minute
)

// FailedScrapeRepoImpl provides a concrete implementation for the FailedScrapeRepository interface using PostgreSQL.
type FailedScrapeRepoImpl struct {
	db *pgxpool.Pool
}

// NewFailedScrapeRepo creates a new instance of FailedScrapeRepoImpl.
func NewFailedScrapeRepo(db *pgxpool.Pool) *FailedScrapeRepoImpl {
	return &FailedScrapeRepoImpl{db: db}
}

// SaveOrUpdate creates or updates a record for a failed scrape. On conflict
// the retry_count is incremented and next_retry_at pushed out exponentially.
func (r *FailedScrapeRepoImpl) SaveOrUpdate(ctx context.Context, failed *entity.FailedScrape) error {
	query := `
		INSERT INTO failed_scrapes (product_query, category, product_id, failure_reason, last_attempt_timestamp, retry_count, next_retry_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6)
		ON CONFLICT (product_query) DO UPDATE SET
			category = EXCLUDED.category,
			product_id = EXCLUDED.product_id,
			failure_reason = EXCLUDED.failure_reason,
			last_attempt_timestamp = EXCLUDED.last_attempt_timestamp,
			retry_count = failed_scrapes.retry_count + 1,
			next_retry_at = EXCLUDED.last_attempt_timestamp +
				LEAST($7 * power(2, failed_scrapes.retry_count), $8) * interval '1 second';
	`
	_, err := r.db.Exec(ctx, query,
		failed.ProductQuery,
		failed.Category,
		failed.ProductID,
		failed.FailureReason,
		failed.LastAttemptTimestamp,
		failed.LastAttemptTimestamp.Add(initialBackoff),
		initialBackoff.Seconds(),
		maxBackoff.Seconds(),
	)
	return err
}

// FindRetryable retrieves a batch of failed scrapes that are due for a retry.
func (r *FailedScrapeRepoImpl) FindRetryable(ctx context.Context, limit int) ([]*entity.FailedScrape, error) {
	query := `
		SELECT id, product_query, category, product_id, failure_reason, last_attempt_timestamp, retry_count, next_retry_at
		FROM failed_scrapes
		WHERE next_retry_at <= NOW()
		ORDER BY next_retry_at ASC
		LIMIT $1;
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failed []*entity.FailedScrape
	for rows.Next() {
		var fs entity.FailedScrape
		if err := rows.Scan(
			&fs.ID,
			&fs.ProductQuery,
			&fs.Category,
			&fs.ProductID,
			&fs.FailureReason,
			&fs.LastAttemptTimestamp,
			&fs.RetryCount,
			&fs.NextRetryAt,
		); err != nil {
			return nil, err
		}
		failed = append(failed, &fs)
	}

	return failed, rows.Err()
}

// Delete removes a failed scrape record, typically after a successful scrape.
func (r *FailedScrapeRepoImpl) Delete(ctx context.Context, productQuery string) error {
	query := `DELETE FROM failed_scrapes WHERE product_query = $1;`
	_, err := r.db.Exec(ctx, query, productQuery)
	return err
}
