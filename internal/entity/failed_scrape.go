package entity

import "time"

// FailedScrape mirrors the `failed_scrapes` PostgreSQL table schema.
type FailedScrape struct {
	ID                   int64
	ProductQuery         string
	Category             string
	ProductID            string
	FailureReason        string
	LastAttemptTimestamp time.Time
	RetryCount           int
	NextRetryAt          time.Time
}
