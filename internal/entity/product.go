package entity

import "time"

// Product mirrors the `products` PostgreSQL table schema.
type Product struct {
	ProductID   string
	Category    string
	Name        string
	Description string
	ImageURL    string
	Prices      map[string]float64 // store name -> price, stored as JSONB
	Tags        []string
	ScrapedAt   time.Time
}
