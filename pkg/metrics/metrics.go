package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	TasksTotal         *prometheus.CounterVec
	TaskDuration       prometheus.Histogram
	AcquireWaitSeconds prometheus.Histogram
	ScrapesTotal       *prometheus.CounterVec

	initOnce sync.Once
)

// Init registers the collectors on the default registry. Idempotent so test
// packages can call it freely.
func Init() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "browser_tasks_total",
			Help: "Total number of browser task executions.",
		},
		[]string{"status", "failure_kind"}, // status: success, failure
	)

	TaskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "browser_task_duration_seconds",
			Help:    "Duration of browser task executions.",
			Buckets: []float64{0.5, 1, 5, 10, 15, 30, 60, 120},
		},
	)

	AcquireWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "browser_acquire_wait_seconds",
			Help:    "Time tasks spent waiting for a browser session.",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	ScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_scrapes_total",
			Help: "Total number of product scrape attempts.",
		},
		[]string{"status"}, // success, not_found, failure, deduplicated
	)
}

// RegisterPoolGauges exposes live session pool state. The stats callback is
// invoked at scrape time.
func RegisterPoolGauges(stats func() (busy, idle int)) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "browser_sessions_busy",
		Help: "Browser sessions currently executing a task.",
	}, func() float64 {
		busy, _ := stats()
		return float64(busy)
	})
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "browser_sessions_idle",
		Help: "Browser sessions idle in the pool.",
	}, func() float64 {
		_, idle := stats()
		return float64(idle)
	})
}
