package request

import "github.com/VritantaNextgen/moolyamitra-scraper/internal/entity"

// RenderRequest is the payload for POST /api/render.
type RenderRequest struct {
	URL       string          `json:"url"`
	Actions   []entity.Action `json:"actions"`
	TimeoutMS int             `json:"timeout_ms,omitempty"`
}

// ScrapeRequest is the payload for POST /api/scrape, mirroring the original
// scrape-and-save contract.
type ScrapeRequest struct {
	ProductQuery string `json:"product_query"`
	Category     string `json:"category"`
	ProductID    string `json:"product_id"`
	ForceScrape  bool   `json:"force_scrape,omitempty"`
}
