package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/VritantaNextgen/moolyamitra-scraper/internal/entity"
	"github.com/VritantaNextgen/moolyamitra-scraper/internal/repository"
	"github.com/VritantaNextgen/moolyamitra-scraper/pkg/metrics"
)

var (
	// ErrRecentlyScraped means the query was scraped within the dedup window
	// and force_scrape was false.
	ErrRecentlyScraped = errors.New("product query has been scraped recently and force_scrape is false")
	// ErrProductNotFound means the storefront search produced no usable result.
	ErrProductNotFound = errors.New("no product details found for query")
)

// TaskFailedError carries the typed failure of the underlying browser task
// so the HTTP layer can map it to a status code.
type TaskFailedError struct {
	Result *entity.Result
}

func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("scrape task failed (%s): %s", e.Result.FailureKind, e.Result.FailureMessage)
}

// Storefront search selectors. These track the markup the original service
// scraped and are the part most likely to rot.
const (
	searchBoxSelector    = "#twotabsearchtextbox"
	searchSubmitSelector = "#nav-search-submit-button"
	resultCellSelector   = "div[data-component-type='s-search-result']"
	titleSelector        = resultCellSelector + " span.a-size-medium.a-color-base.a-text-normal"
	priceSelector        = resultCellSelector + " .a-price-whole"
	imageSelector        = resultCellSelector + " img.s-image"
)

// ScrapeRequest describes one product to scrape and save.
type ScrapeRequest struct {
	ProductQuery string
	Category     string
	ProductID    string
	Force        bool
}

// Scraper defines the interface for the product scrape-and-save flow.
type Scraper interface {
	Scrape(ctx context.Context, req ScrapeRequest) (*entity.Product, error)
	// RetryDue re-runs failed scrapes whose backoff has elapsed and returns
	// how many were attempted.
	RetryDue(ctx context.Context, limit int) int
}

// ScraperConfig carries the scrape flow tunables.
type ScraperConfig struct {
	StorefrontBaseURL string
	DedupTTL          time.Duration
}

type scrapeUseCase struct {
	executor    TaskExecutor
	productRepo repository.ProductRepository
	visitedRepo repository.VisitedRepository
	failedRepo  repository.FailedScrapeRepository
	cfg         ScraperConfig
}

// NewScraper creates a new product scraper use case.
func NewScraper(
	executor TaskExecutor,
	productRepo repository.ProductRepository,
	visitedRepo repository.VisitedRepository,
	failedRepo repository.FailedScrapeRepository,
	cfg ScraperConfig,
) Scraper {
	return &scrapeUseCase{
		executor:    executor,
		productRepo: productRepo,
		visitedRepo: visitedRepo,
		failedRepo:  failedRepo,
		cfg:         cfg,
	}
}

func (uc *scrapeUseCase) Scrape(ctx context.Context, req ScrapeRequest) (*entity.Product, error) {
	if req.Force {
		if err := uc.visitedRepo.RemoveVisited(ctx, req.ProductQuery); err != nil {
			slog.Warn("failed to remove dedup key for force scrape", "query", req.ProductQuery, "error", err)
			// Continue anyway, as this is not a critical failure.
		}
	} else {
		visited, err := uc.visitedRepo.IsVisited(ctx, req.ProductQuery)
		if err != nil {
			return nil, err
		}
		if visited {
			metrics.ScrapesTotal.WithLabelValues("deduplicated").Inc()
			return nil, ErrRecentlyScraped
		}
	}

	task := uc.buildSearchTask(req.ProductQuery)
	res := uc.executor.Run(ctx, task)
	if !res.Success {
		metrics.ScrapesTotal.WithLabelValues("failure").Inc()
		uc.recordFailure(ctx, req, res.FailureMessage)
		return nil, &TaskFailedError{Result: res}
	}

	product, err := uc.buildProduct(req, res)
	if err != nil {
		metrics.ScrapesTotal.WithLabelValues("not_found").Inc()
		return nil, err
	}

	if err := uc.productRepo.Save(ctx, product); err != nil {
		metrics.ScrapesTotal.WithLabelValues("failure").Inc()
		uc.recordFailure(ctx, req, fmt.Sprintf("save failed: %v", err))
		return nil, fmt.Errorf("failed to save product %s: %w", req.ProductID, err)
	}

	// The query succeeded; clear any retry bookkeeping left from earlier runs.
	if err := uc.failedRepo.Delete(ctx, req.ProductQuery); err != nil {
		slog.Warn("failed to delete failed-scrape record after success", "query", req.ProductQuery, "error", err)
	}
	if err := uc.visitedRepo.MarkVisited(ctx, req.ProductQuery, uc.cfg.DedupTTL); err != nil {
		slog.Error("failed to mark query as scraped", "query", req.ProductQuery, "error", err)
	}

	metrics.ScrapesTotal.WithLabelValues("success").Inc()
	slog.Info("product scraped", "product_id", req.ProductID, "query", req.ProductQuery, "name", product.Name)
	return product, nil
}

func (uc *scrapeUseCase) RetryDue(ctx context.Context, limit int) int {
	due, err := uc.failedRepo.FindRetryable(ctx, limit)
	if err != nil {
		slog.Error("failed to load retryable scrapes", "error", err)
		return 0
	}
	for _, fs := range due {
		req := ScrapeRequest{
			ProductQuery: fs.ProductQuery,
			Category:     fs.Category,
			ProductID:    fs.ProductID,
			Force:        true,
		}
		if _, err := uc.Scrape(ctx, req); err != nil {
			slog.Warn("scrape retry failed", "query", fs.ProductQuery, "retry_count", fs.RetryCount, "error", err)
		}
	}
	return len(due)
}

// buildSearchTask produces the canned storefront search sequence: open the
// site, type the query, submit, then read the first result cell. Price and
// image are optional because listings without them are still worth saving.
func (uc *scrapeUseCase) buildSearchTask(query string) *entity.Task {
	return &entity.Task{
		ID: uuid.NewString(),
		Actions: []entity.Action{
			{Kind: entity.ActionNavigate, URL: uc.cfg.StorefrontBaseURL},
			{Kind: entity.ActionFill, Selector: searchBoxSelector, Value: query},
			{Kind: entity.ActionClick, Selector: searchSubmitSelector},
			{Kind: entity.ActionWait, Selector: resultCellSelector},
			{Kind: entity.ActionExtract, Selector: titleSelector},
			{Kind: entity.ActionExtract, Selector: priceSelector, Optional: true},
			{Kind: entity.ActionExtract, Selector: imageSelector, Mode: entity.ExtractAttribute, Attribute: "src", Optional: true},
		},
	}
}

// Indices of the extract actions in the search task.
const (
	titleActionIndex = 4
	priceActionIndex = 5
	imageActionIndex = 6
)

func (uc *scrapeUseCase) buildProduct(req ScrapeRequest, res *entity.Result) (*entity.Product, error) {
	values := make(map[int]string, len(res.Extractions))
	for _, ex := range res.Extractions {
		values[ex.ActionIndex] = ex.Value
	}

	name := strings.TrimSpace(values[titleActionIndex])
	if name == "" {
		return nil, fmt.Errorf("%w: %q", ErrProductNotFound, req.ProductQuery)
	}

	prices := map[string]float64{}
	if price, ok := parsePrice(values[priceActionIndex]); ok {
		prices["Amazon"] = price
	}

	return &entity.Product{
		ProductID:   req.ProductID,
		Category:    req.Category,
		Name:        name,
		Description: fmt.Sprintf("Scraped data for '%s'.", req.ProductQuery),
		ImageURL:    values[imageActionIndex],
		Prices:      prices,
		Tags:        []string{req.Category, "Scraped", "Trending"},
		ScrapedAt:   time.Now(),
	}, nil
}

func (uc *scrapeUseCase) recordFailure(ctx context.Context, req ScrapeRequest, reason string) {
	failed := &entity.FailedScrape{
		ProductQuery:         req.ProductQuery,
		Category:             req.Category,
		ProductID:            req.ProductID,
		FailureReason:        reason,
		LastAttemptTimestamp: time.Now(),
	}
	if err := uc.failedRepo.SaveOrUpdate(ctx, failed); err != nil {
		slog.Error("failed to record failed scrape", "query", req.ProductQuery, "error", err)
	}
}

// parsePrice turns localized price text like "1,299" into a float.
func parsePrice(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	cleaned = strings.TrimSuffix(cleaned, ".")
	if cleaned == "" {
		return 0, false
	}
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}
