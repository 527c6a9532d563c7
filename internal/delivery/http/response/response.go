package response

import (
	"time"

	"github.com/VritantaNextgen/moolyamitra-scraper/internal/entity"
)

// ErrorResponse is the structured error body returned on every non-success
// path. Kind is one of the documented failure kinds when the failure came
// from task execution.
type ErrorResponse struct {
	Error       string `json:"error"`
	Kind        string `json:"kind,omitempty"`
	ActionIndex *int   `json:"action_index,omitempty"`
}

// RenderResponse wraps a successful render result.
type RenderResponse struct {
	Status string         `json:"status"`
	Result *entity.Result `json:"result"`
}

// ProductResponse is a DTO for a stored product.
type ProductResponse struct {
	ProductID   string             `json:"product_id"`
	Category    string             `json:"category"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	ImageURL    string             `json:"image_url"`
	Prices      map[string]float64 `json:"prices"`
	Tags        []string           `json:"tags"`
	ScrapedAt   time.Time          `json:"scraped_at"`
}

// FromProduct maps the entity to its DTO.
func FromProduct(p *entity.Product) ProductResponse {
	return ProductResponse{
		ProductID:   p.ProductID,
		Category:    p.Category,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Prices:      p.Prices,
		Tags:        p.Tags,
		ScrapedAt:   p.ScrapedAt,
	}
}

// ScrapeResponse is the body for a successful scrape-and-save.
type ScrapeResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    ProductResponse `json:"data"`
}
