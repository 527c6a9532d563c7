package repository

import (
	"context"

	"github.com/VritantaNextgen/moolyamitra-scraper/internal/entity"
)

// ProductRepository defines the interface for storing and retrieving scraped products.
type ProductRepository interface {
	// Save stores the product. If the product ID already exists, it is updated.
	Save(ctx context.Context, product *entity.Product) error
	// FindByID retrieves a product by its product ID.
	FindByID(ctx context.Context, productID string) (*entity.Product, error)
}
