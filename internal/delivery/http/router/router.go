package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VritantaNextgen/moolyamitra-scraper/internal/delivery/http/handler"
	"github.com/VritantaNextgen/moolyamitra-scraper/internal/delivery/http/middleware"
)

func New(h *handler.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.HandleHealthCheck)
	mux.HandleFunc("GET /api/pool", h.HandlePoolStats)
	mux.HandleFunc("POST /api/render", h.HandleRender)
	mux.HandleFunc("POST /api/scrape", h.HandleScrape)
	mux.HandleFunc("GET /api/products", h.HandleGetProduct)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Apply middlewares
	var chainedHandler http.Handler = mux
	chainedHandler = middleware.Metrics(chainedHandler)
	chainedHandler = middleware.Logging(chainedHandler)

	return chainedHandler
}
