package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/VritantaNextgen/moolyamitra-scraper/internal/entity"
)

// ProductRepoImpl provides a concrete implementation for the ProductRepository interface using PostgreSQL.
type ProductRepoImpl struct {
	db *pgxpool.Pool
}

// NewProductRepo creates a new instance of ProductRepoImpl.
func NewProductRepo(db *pgxpool.Pool) *ProductRepoImpl {
	return &ProductRepoImpl{db: db}
}

// Save stores or updates a scraped product in the database.
func (r *ProductRepoImpl) Save(ctx context.Context, product *entity.Product) error {
	pricesJSON, err := json.Marshal(product.Prices)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (product_id, category, name, description, image_url, prices, tags, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_id) DO UPDATE SET
			category = EXCLUDED.category,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			image_url = EXCLUDED.image_url,
			prices = EXCLUDED.prices,
			tags = EXCLUDED.tags,
			scraped_at = EXCLUDED.scraped_at;
	`

	_, err = r.db.Exec(ctx, query,
		product.ProductID,
		product.Category,
		product.Name,
		product.Description,
		product.ImageURL,
		pricesJSON,
		product.Tags,
		product.ScrapedAt,
	)
	return err
}

// FindByID retrieves a product by its product ID. Returns (nil, nil) when no
// row matches.
func (r *ProductRepoImpl) FindByID(ctx context.Context, productID string) (*entity.Product, error) {
	query := `
		SELECT product_id, category, name, description, image_url, prices, tags, scraped_at
		FROM products
		WHERE product_id = $1;
	`
	row := r.db.QueryRow(ctx, query, productID)

	var product entity.Product
	var pricesJSON []byte

	err := row.Scan(
		&product.ProductID,
		&product.Category,
		&product.Name,
		&product.Description,
		&product.ImageURL,
		&pricesJSON,
		&product.Tags,
		&product.ScrapedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(pricesJSON, &product.Prices); err != nil {
		return nil, err
	}

	return &product, nil
}
