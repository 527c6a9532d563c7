package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VritantaNextgen/moolyamitra-scraper/internal/entity"
)

// stubExecutor returns canned results without touching a browser.
type stubExecutor struct {
	mu      sync.Mutex
	results []*entity.Result
	runs    int
}

func (s *stubExecutor) Run(_ context.Context, task *entity.Task) *entity.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := s.results[s.runs%len(s.results)]
	s.runs++
	out := *res
	out.TaskID = task.ID
	return &out
}

func (s *stubExecutor) runCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

type memoryProductRepo struct {
	mu       sync.Mutex
	products map[string]*entity.Product
	saveErr  error
}

func newMemoryProductRepo() *memoryProductRepo {
	return &memoryProductRepo{products: map[string]*entity.Product{}}
}

func (r *memoryProductRepo) Save(_ context.Context, p *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	cp := *p
	r.products[p.ProductID] = &cp
	return nil
}

func (r *memoryProductRepo) FindByID(_ context.Context, id string) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

type memoryVisitedRepo struct {
	mu      sync.Mutex
	visited map[string]bool
	removed []string
}

func newMemoryVisitedRepo() *memoryVisitedRepo {
	return &memoryVisitedRepo{visited: map[string]bool{}}
}

func (r *memoryVisitedRepo) MarkVisited(_ context.Context, q string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visited[q] = true
	return nil
}

func (r *memoryVisitedRepo) IsVisited(_ context.Context, q string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visited[q], nil
}

func (r *memoryVisitedRepo) RemoveVisited(_ context.Context, q string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.visited, q)
	r.removed = append(r.removed, q)
	return nil
}

type memoryFailedRepo struct {
	mu      sync.Mutex
	records map[string]*entity.FailedScrape
}

func newMemoryFailedRepo() *memoryFailedRepo {
	return &memoryFailedRepo{records: map[string]*entity.FailedScrape{}}
}

func (r *memoryFailedRepo) SaveOrUpdate(_ context.Context, fs *entity.FailedScrape) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *fs
	if prev, ok := r.records[fs.ProductQuery]; ok {
		cp.RetryCount = prev.RetryCount + 1
	} else {
		cp.RetryCount = 1
	}
	r.records[fs.ProductQuery] = &cp
	return nil
}

func (r *memoryFailedRepo) FindRetryable(_ context.Context, limit int) ([]*entity.FailedScrape, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.FailedScrape
	for _, fs := range r.records {
		if len(out) == limit {
			break
		}
		cp := *fs
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memoryFailedRepo) Delete(_ context.Context, q string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, q)
	return nil
}

func searchSuccessResult() *entity.Result {
	return &entity.Result{
		Success: true,
		Extractions: []entity.Extraction{
			{ActionIndex: titleActionIndex, Selector: titleSelector, Value: "Prestige Iris Mixer Grinder"},
			{ActionIndex: priceActionIndex, Selector: priceSelector, Value: "1,299"},
			{ActionIndex: imageActionIndex, Selector: imageSelector, Value: "https://img.example.com/iris.jpg"},
		},
	}
}

type scraperFixture struct {
	executor *stubExecutor
	products *memoryProductRepo
	visited  *memoryVisitedRepo
	failed   *memoryFailedRepo
	scraper  Scraper
}

func newScraperFixture(results ...*entity.Result) *scraperFixture {
	f := &scraperFixture{
		executor: &stubExecutor{results: results},
		products: newMemoryProductRepo(),
		visited:  newMemoryVisitedRepo(),
		failed:   newMemoryFailedRepo(),
	}
	f.scraper = NewScraper(f.executor, f.products, f.visited, f.failed, ScraperConfig{
		StorefrontBaseURL: "https://www.amazon.in",
		DedupTTL:          time.Hour,
	})
	return f
}

func TestScrapeSavesProduct(t *testing.T) {
	f := newScraperFixture(searchSuccessResult())

	req := ScrapeRequest{ProductQuery: "Prestige Iris Mixer Grinder", Category: "Home & Kitchen", ProductID: "HK005"}
	product, err := f.scraper.Scrape(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Prestige Iris Mixer Grinder", product.Name)
	assert.Equal(t, 1299.0, product.Prices["Amazon"])
	assert.Equal(t, "https://img.example.com/iris.jpg", product.ImageURL)
	assert.Equal(t, []string{"Home & Kitchen", "Scraped", "Trending"}, product.Tags)

	saved, err := f.products.FindByID(context.Background(), "HK005")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, product.Name, saved.Name)

	visited, err := f.visited.IsVisited(context.Background(), req.ProductQuery)
	require.NoError(t, err)
	assert.True(t, visited, "successful scrape must mark the query as visited")
}

func TestScrapeDeduplicatesRecentQueries(t *testing.T) {
	f := newScraperFixture(searchSuccessResult())
	req := ScrapeRequest{ProductQuery: "mixer", Category: "Home & Kitchen", ProductID: "HK001"}

	_, err := f.scraper.Scrape(context.Background(), req)
	require.NoError(t, err)

	_, err = f.scraper.Scrape(context.Background(), req)
	require.ErrorIs(t, err, ErrRecentlyScraped)
	assert.Equal(t, 1, f.executor.runCount(), "deduplicated scrape must not hit the browser")

	req.Force = true
	_, err = f.scraper.Scrape(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, f.executor.runCount())
	assert.Contains(t, f.visited.removed, "mixer")
}

func TestScrapeProductNotFound(t *testing.T) {
	f := newScraperFixture(&entity.Result{Success: true}) // no extractions at all

	req := ScrapeRequest{ProductQuery: "nonexistent", Category: "Misc", ProductID: "X1"}
	_, err := f.scraper.Scrape(context.Background(), req)
	require.ErrorIs(t, err, ErrProductNotFound)

	saved, err := f.products.FindByID(context.Background(), "X1")
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestScrapeTaskFailureIsRecordedForRetry(t *testing.T) {
	f := newScraperFixture(&entity.Result{
		Success:           false,
		FailureKind:       entity.FailureTimeout,
		FailureMessage:    "action 0 (navigate) exceeded its time budget",
		FailedActionIndex: 0,
	})

	req := ScrapeRequest{ProductQuery: "mixer", Category: "Home & Kitchen", ProductID: "HK001"}
	_, err := f.scraper.Scrape(context.Background(), req)

	var taskErr *TaskFailedError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, entity.FailureTimeout, taskErr.Result.FailureKind)

	f.failed.mu.Lock()
	record, ok := f.failed.records["mixer"]
	f.failed.mu.Unlock()
	require.True(t, ok, "failure must be recorded for retry")
	assert.Equal(t, "HK001", record.ProductID)
}

func TestRetryDueReattemptsAndClearsOnSuccess(t *testing.T) {
	f := newScraperFixture(searchSuccessResult())
	require.NoError(t, f.failed.SaveOrUpdate(context.Background(), &entity.FailedScrape{
		ProductQuery: "mixer",
		Category:     "Home & Kitchen",
		ProductID:    "HK001",
	}))

	attempted := f.scraper.RetryDue(context.Background(), 10)
	assert.Equal(t, 1, attempted)
	assert.Equal(t, 1, f.executor.runCount())

	saved, err := f.products.FindByID(context.Background(), "HK001")
	require.NoError(t, err)
	require.NotNil(t, saved)

	f.failed.mu.Lock()
	_, stillFailed := f.failed.records["mixer"]
	f.failed.mu.Unlock()
	assert.False(t, stillFailed, "successful retry must clear the failed record")
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,299", 1299, true},
		{"1,29,999", 129999, true},
		{"499.", 499, true},
		{" 250 ", 250, true},
		{"", 0, false},
		{"N/A", 0, false},
	}
	for _, tc := range cases {
		got, ok := parsePrice(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		if ok {
			assert.Equal(t, tc.want, got, "input %q", tc.in)
		}
	}
}

func TestScrapeSaveErrorSurfaced(t *testing.T) {
	f := newScraperFixture(searchSuccessResult())
	f.products.saveErr = errors.New("connection refused")

	req := ScrapeRequest{ProductQuery: "mixer", Category: "Home & Kitchen", ProductID: "HK001"}
	_, err := f.scraper.Scrape(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save product")
}
