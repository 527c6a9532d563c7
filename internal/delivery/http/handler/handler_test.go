package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VritantaNextgen/moolyamitra-scraper/internal/browser"
	"github.com/VritantaNextgen/moolyamitra-scraper/internal/entity"
	"github.com/VritantaNextgen/moolyamitra-scraper/internal/usecase"
)

type stubExecutor struct {
	result   *entity.Result
	lastTask *entity.Task
}

func (s *stubExecutor) Run(_ context.Context, task *entity.Task) *entity.Result {
	s.lastTask = task
	out := *s.result
	out.TaskID = task.ID
	return &out
}

type stubScraper struct {
	product *entity.Product
	err     error
}

func (s *stubScraper) Scrape(context.Context, usecase.ScrapeRequest) (*entity.Product, error) {
	return s.product, s.err
}

func (s *stubScraper) RetryDue(context.Context, int) int { return 0 }

type stubProductRepo struct {
	product *entity.Product
	err     error
}

func (s *stubProductRepo) Save(context.Context, *entity.Product) error { return nil }

func (s *stubProductRepo) FindByID(context.Context, string) (*entity.Product, error) {
	return s.product, s.err
}

type stubPool struct {
	stats browser.Stats
}

func (s *stubPool) Stats() browser.Stats { return s.stats }

func newTestHandler(exec *stubExecutor, scraper *stubScraper, repo *stubProductRepo) *Handler {
	if exec == nil {
		exec = &stubExecutor{result: &entity.Result{Success: true}}
	}
	if scraper == nil {
		scraper = &stubScraper{}
	}
	if repo == nil {
		repo = &stubProductRepo{}
	}
	return NewHandler(exec, scraper, repo, &stubPool{stats: browser.Stats{Size: 4, Busy: 1, Idle: 2}})
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestHandleRenderSuccess(t *testing.T) {
	exec := &stubExecutor{result: &entity.Result{
		Success: true,
		Title:   "Example Domain",
		HTML:    "<html></html>",
	}}
	h := newTestHandler(exec, nil, nil)

	rec := postJSON(t, h.HandleRender, `{"url": "https://example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status string         `json:"status"`
		Result *entity.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "Example Domain", resp.Result.Title)

	// A bare URL is expanded into navigate + extract html.
	require.NotNil(t, exec.lastTask)
	require.Len(t, exec.lastTask.Actions, 2)
	assert.Equal(t, entity.ActionNavigate, exec.lastTask.Actions[0].Kind)
	assert.Equal(t, entity.ActionExtract, exec.lastTask.Actions[1].Kind)
}

func TestHandleRenderPrependsNavigate(t *testing.T) {
	exec := &stubExecutor{result: &entity.Result{Success: true}}
	h := newTestHandler(exec, nil, nil)

	rec := postJSON(t, h.HandleRender,
		`{"url": "https://example.com", "actions": [{"type": "screenshot", "full_page": true}], "timeout_ms": 30000}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, exec.lastTask.Actions, 2)
	assert.Equal(t, entity.ActionNavigate, exec.lastTask.Actions[0].Kind)
	assert.Equal(t, entity.ActionScreenshot, exec.lastTask.Actions[1].Kind)
	assert.Equal(t, 30*time.Second, exec.lastTask.TaskTimeout)
}

func TestHandleRenderRejectsBadInput(t *testing.T) {
	h := newTestHandler(nil, nil, nil)

	rec := postJSON(t, h.HandleRender, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h.HandleRender, `{"actions": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h.HandleRender, `{"actions": [{"type": "click"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRenderFailureStatusMapping(t *testing.T) {
	cases := []struct {
		kind entity.FailureKind
		want int
	}{
		{entity.FailureLaunch, http.StatusServiceUnavailable},
		{entity.FailurePoolExhausted, http.StatusTooManyRequests},
		{entity.FailureTimeout, http.StatusGatewayTimeout},
		{entity.FailureAction, http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			exec := &stubExecutor{result: &entity.Result{
				Success:           false,
				FailureKind:       tc.kind,
				FailureMessage:    "boom",
				FailedActionIndex: 0,
			}}
			h := newTestHandler(exec, nil, nil)

			rec := postJSON(t, h.HandleRender, `{"url": "https://example.com"}`)
			assert.Equal(t, tc.want, rec.Code)

			var body struct {
				Error       string `json:"error"`
				Kind        string `json:"kind"`
				ActionIndex *int   `json:"action_index"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tc.kind), body.Kind)
			require.NotNil(t, body.ActionIndex)
			assert.Equal(t, 0, *body.ActionIndex)
		})
	}
}

func TestHandleScrape(t *testing.T) {
	product := &entity.Product{
		ProductID: "HK005",
		Category:  "Home & Kitchen",
		Name:      "Prestige Iris Mixer Grinder",
		Prices:    map[string]float64{"Amazon": 1299},
	}
	h := newTestHandler(nil, &stubScraper{product: product}, nil)

	rec := postJSON(t, h.HandleScrape,
		`{"product_query": "Prestige Iris Mixer Grinder", "category": "Home & Kitchen", "product_id": "HK005"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			ProductID string `json:"product_id"`
			Name      string `json:"name"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "HK005", resp.Data.ProductID)
}

func TestHandleScrapeErrorMapping(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		h := newTestHandler(nil, nil, nil)
		rec := postJSON(t, h.HandleScrape, `{"product_query": "mixer"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		h := newTestHandler(nil, &stubScraper{err: usecase.ErrProductNotFound}, nil)
		rec := postJSON(t, h.HandleScrape,
			`{"product_query": "x", "category": "c", "product_id": "p"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("recently scraped", func(t *testing.T) {
		h := newTestHandler(nil, &stubScraper{err: usecase.ErrRecentlyScraped}, nil)
		rec := postJSON(t, h.HandleScrape,
			`{"product_query": "x", "category": "c", "product_id": "p"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("task failure", func(t *testing.T) {
		err := &usecase.TaskFailedError{Result: &entity.Result{
			Success:           false,
			FailureKind:       entity.FailurePoolExhausted,
			FailureMessage:    "busy",
			FailedActionIndex: -1,
		}}
		h := newTestHandler(nil, &stubScraper{err: err}, nil)
		rec := postJSON(t, h.HandleScrape,
			`{"product_query": "x", "category": "c", "product_id": "p"}`)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})
}

func TestHandleGetProduct(t *testing.T) {
	product := &entity.Product{ProductID: "HK005", Name: "Mixer"}

	t.Run("found", func(t *testing.T) {
		h := newTestHandler(nil, nil, &stubProductRepo{product: product})
		req := httptest.NewRequest(http.MethodGet, "/api/products?product_id=HK005", nil)
		rec := httptest.NewRecorder()
		h.HandleGetProduct(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		h := newTestHandler(nil, nil, &stubProductRepo{})
		req := httptest.NewRequest(http.MethodGet, "/api/products?product_id=NOPE", nil)
		rec := httptest.NewRecorder()
		h.HandleGetProduct(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing param", func(t *testing.T) {
		h := newTestHandler(nil, nil, nil)
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		rec := httptest.NewRecorder()
		h.HandleGetProduct(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandlePoolStatsAndHealth(t *testing.T) {
	h := newTestHandler(nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/pool", nil)
	rec := httptest.NewRecorder()
	h.HandlePoolStats(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats browser.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 4, stats.Size)
	assert.Equal(t, 1, stats.Busy)

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec = httptest.NewRecorder()
	h.HandleHealthCheck(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
