package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/VritantaNextgen/moolyamitra-scraper/internal/browser"
	"github.com/VritantaNextgen/moolyamitra-scraper/internal/delivery/http/request"
	"github.com/VritantaNextgen/moolyamitra-scraper/internal/delivery/http/response"
	"github.com/VritantaNextgen/moolyamitra-scraper/internal/entity"
	"github.com/VritantaNextgen/moolyamitra-scraper/internal/repository"
	"github.com/VritantaNextgen/moolyamitra-scraper/internal/usecase"
)

// PoolStats exposes session pool state to the /api/pool endpoint without
// coupling the handler to the pool type.
type PoolStats interface {
	Stats() browser.Stats
}

type Handler struct {
	executor    usecase.TaskExecutor
	scraper     usecase.Scraper
	productRepo repository.ProductRepository
	pool        PoolStats
}

func NewHandler(executor usecase.TaskExecutor, scraper usecase.Scraper, productRepo repository.ProductRepository, pool PoolStats) *Handler {
	return &Handler{
		executor:    executor,
		scraper:     scraper,
		productRepo: productRepo,
		pool:        pool,
	}
}

// HandleRender runs an ad-hoc automation task and returns its result.
func (h *Handler) HandleRender(w http.ResponseWriter, r *http.Request) {
	var req request.RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	task := &entity.Task{
		ID:          uuid.NewString(),
		Actions:     req.Actions,
		TaskTimeout: time.Duration(req.TimeoutMS) * time.Millisecond,
	}
	// A bare URL with no actions is the common case; treat it as a render.
	if len(task.Actions) == 0 && req.URL != "" {
		task.Actions = []entity.Action{
			{Kind: entity.ActionNavigate, URL: req.URL},
			{Kind: entity.ActionExtract, Selector: "html", Mode: entity.ExtractHTML},
		}
	} else if req.URL != "" {
		task.Actions = append([]entity.Action{{Kind: entity.ActionNavigate, URL: req.URL}}, task.Actions...)
	}

	if err := task.Validate(); err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res := h.executor.Run(r.Context(), task)
	if !res.Success {
		h.writeTaskFailure(w, res)
		return
	}

	h.writeJSON(w, http.StatusOK, response.RenderResponse{Status: "success", Result: res})
}

// HandleScrape scrapes product data from the storefront and saves it.
func (h *Handler) HandleScrape(w http.ResponseWriter, r *http.Request) {
	var req request.ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProductQuery == "" || req.Category == "" || req.ProductID == "" {
		h.writeJSONError(w, "product_query, category and product_id are required", http.StatusBadRequest)
		return
	}

	product, err := h.scraper.Scrape(r.Context(), usecase.ScrapeRequest{
		ProductQuery: req.ProductQuery,
		Category:     req.Category,
		ProductID:    req.ProductID,
		Force:        req.ForceScrape,
	})
	if err != nil {
		h.writeScrapeError(w, req.ProductQuery, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response.ScrapeResponse{
		Status:  "success",
		Message: fmt.Sprintf("Successfully scraped and saved '%s'", product.Name),
		Data:    response.FromProduct(product),
	})
}

// HandleGetProduct returns a previously scraped product.
func (h *Handler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("product_id")
	if productID == "" {
		h.writeJSONError(w, "product_id query parameter is required", http.StatusBadRequest)
		return
	}

	product, err := h.productRepo.FindByID(r.Context(), productID)
	if err != nil {
		slog.Error("Failed to load product", "product_id", productID, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if product == nil {
		h.writeJSONError(w, "Product not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, response.FromProduct(product))
}

// HandlePoolStats reports live session pool counters.
func (h *Handler) HandlePoolStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.pool.Stats())
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeTaskFailure maps the failure taxonomy to HTTP status codes:
// launch errors are service-unavailable, exhaustion is retryable-busy,
// timeouts and action failures blame the task.
func (h *Handler) writeTaskFailure(w http.ResponseWriter, res *entity.Result) {
	status := http.StatusInternalServerError
	switch res.FailureKind {
	case entity.FailureLaunch:
		status = http.StatusServiceUnavailable
	case entity.FailurePoolExhausted:
		status = http.StatusTooManyRequests
	case entity.FailureTimeout:
		status = http.StatusGatewayTimeout
	case entity.FailureAction:
		status = http.StatusUnprocessableEntity
	}

	body := response.ErrorResponse{
		Error: res.FailureMessage,
		Kind:  string(res.FailureKind),
	}
	if res.FailedActionIndex >= 0 {
		idx := res.FailedActionIndex
		body.ActionIndex = &idx
	}
	h.writeJSON(w, status, body)
}

func (h *Handler) writeScrapeError(w http.ResponseWriter, query string, err error) {
	var taskErr *usecase.TaskFailedError
	switch {
	case errors.Is(err, usecase.ErrRecentlyScraped):
		h.writeJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, usecase.ErrProductNotFound):
		h.writeJSONError(w, fmt.Sprintf("Could not find product details for '%s'", query), http.StatusNotFound)
	case errors.As(err, &taskErr):
		h.writeTaskFailure(w, taskErr.Result)
	default:
		slog.Error("Scrape failed", "query", query, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
