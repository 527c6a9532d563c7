package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/VritantaNextgen/moolyamitra-scraper/internal/browser"
	"github.com/VritantaNextgen/moolyamitra-scraper/internal/entity"
	"github.com/VritantaNextgen/moolyamitra-scraper/internal/repository"
	"github.com/VritantaNextgen/moolyamitra-scraper/pkg/metrics"
	"github.com/VritantaNextgen/moolyamitra-scraper/pkg/utils"
)

// TaskExecutor defines the interface for running one browser task to completion.
type TaskExecutor interface {
	// Run executes the task's action sequence against a pooled browser
	// session. It never returns a Go error; every failure is a typed Result.
	Run(ctx context.Context, task *entity.Task) *entity.Result
}

// ExecutorConfig carries the executor's timeout defaults.
type ExecutorConfig struct {
	AcquireTimeout time.Duration
	ActionTimeout  time.Duration
	TaskTimeout    time.Duration
	// CacheTTL enables the render-result cache when positive.
	CacheTTL time.Duration
}

type taskExecutor struct {
	pool  *browser.Pool
	cache repository.ResultCacheRepository
	cfg   ExecutorConfig
}

// NewTaskExecutor creates a new task executor use case. cache may be nil.
func NewTaskExecutor(pool *browser.Pool, cache repository.ResultCacheRepository, cfg ExecutorConfig) TaskExecutor {
	return &taskExecutor{pool: pool, cache: cache, cfg: cfg}
}

func (e *taskExecutor) Run(ctx context.Context, task *entity.Task) *entity.Result {
	start := time.Now()

	cacheKey := taskCacheKey(task)
	if e.cacheEnabled() {
		if cached, err := e.cache.Get(ctx, cacheKey); err != nil {
			slog.Warn("result cache lookup failed", "task_id", task.ID, "error", err)
		} else if cached != nil {
			slog.Debug("result cache hit", "task_id", task.ID)
			cached.TaskID = task.ID
			return cached
		}
	}

	taskTimeout := task.TaskTimeout
	if taskTimeout <= 0 {
		taskTimeout = e.cfg.TaskTimeout
	}
	taskCtx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	acquireCtx, acquireCancel := context.WithTimeout(taskCtx, e.cfg.AcquireTimeout)
	sess, err := e.pool.Acquire(acquireCtx)
	acquireCancel()
	metrics.AcquireWaitSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return e.finish(task, failureResult(task, classifyAcquire(err), -1, err, start))
	}

	res, crashed := e.execute(taskCtx, sess, task, start)
	if crashed {
		// The browser may be mid-navigation or mid-script; do not trust it
		// with another task.
		sess.MarkCrashed()
		e.pool.Retire(sess, "task_aborted")
	} else {
		e.pool.Release(sess)
	}

	if res.Success && e.cacheEnabled() {
		if err := e.cache.Put(ctx, cacheKey, res, e.cfg.CacheTTL); err != nil {
			slog.Warn("result cache store failed", "task_id", task.ID, "error", err)
		}
	}
	return e.finish(task, res)
}

// execute interprets the action sequence strictly in order, aborting on the
// first failure. crashed reports whether the session was interrupted in an
// indeterminate state and must be retired.
func (e *taskExecutor) execute(taskCtx context.Context, sess *browser.Session, task *entity.Task, start time.Time) (res *entity.Result, crashed bool) {
	actionTimeout := task.ActionTimeout
	if actionTimeout <= 0 {
		actionTimeout = e.cfg.ActionTimeout
	}

	state := &runState{}
	for i, action := range task.Actions {
		actionCtx, cancel := context.WithTimeout(taskCtx, actionTimeout)
		err := e.apply(actionCtx, sess, action, i, state)
		cancel()
		if err == nil {
			continue
		}
		if action.Optional && taskCtx.Err() == nil {
			slog.Debug("optional action skipped", "task_id", task.ID, "action_index", i, "error", err)
			continue
		}
		// Deadline errors, from either budget, classify as timeout and take
		// precedence over action failure.
		if errors.Is(err, context.DeadlineExceeded) || taskCtx.Err() != nil {
			return failureResult(task, entity.FailureTimeout, i,
				fmt.Errorf("action %d (%s) exceeded its time budget: %w", i, action.Kind, err), start), true
		}
		return failureResult(task, entity.FailureAction, i,
			fmt.Errorf("action %d (%s) failed: %w", i, action.Kind, err), start), false
	}

	title, err := sess.Engine.Title(taskCtx)
	if err != nil {
		slog.Debug("could not read page title", "task_id", task.ID, "error", err)
	}

	return &entity.Result{
		TaskID:         task.ID,
		Success:        true,
		URL:            task.StartURL(),
		Title:          title,
		HTTPStatusCode: sess.Engine.LastStatusCode(),
		Extractions:    state.extractions,
		Screenshot:     state.screenshot,
		HTML:           state.html,
		DurationMS:     time.Since(start).Milliseconds(),
		CompletedAt:    time.Now(),
	}, false
}

// runState accumulates the payload produced by extract and screenshot actions.
type runState struct {
	extractions []entity.Extraction
	screenshot  []byte
	html        string
}

// apply dispatches one action to the session's engine.
func (e *taskExecutor) apply(ctx context.Context, sess *browser.Session, action entity.Action, index int, state *runState) error {
	eng := sess.Engine
	switch action.Kind {
	case entity.ActionNavigate:
		return eng.Navigate(ctx, action.URL)

	case entity.ActionWait:
		if action.Selector != "" {
			return eng.WaitVisible(ctx, action.Selector)
		}
		select {
		case <-time.After(time.Duration(action.DurationMS) * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}

	case entity.ActionClick:
		return eng.Click(ctx, action.Selector)

	case entity.ActionFill:
		return eng.Fill(ctx, action.Selector, action.Value)

	case entity.ActionExtract:
		value, err := e.extract(ctx, eng, action)
		if err != nil {
			return err
		}
		state.extractions = append(state.extractions, entity.Extraction{
			ActionIndex: index,
			Selector:    action.Selector,
			Value:       value,
		})
		return nil

	case entity.ActionScreenshot:
		shot, err := eng.Screenshot(ctx, action.Selector, action.FullPage)
		if err != nil {
			return err
		}
		state.screenshot = shot
		return nil

	default:
		return fmt.Errorf("unknown action type %q", action.Kind)
	}
}

func (e *taskExecutor) extract(ctx context.Context, eng browser.Engine, action entity.Action) (string, error) {
	switch action.Mode {
	case entity.ExtractHTML:
		html, err := eng.HTML(ctx, action.Selector)
		if err != nil {
			return "", err
		}
		return html, nil
	case entity.ExtractAttribute:
		value, ok, err := eng.Attribute(ctx, action.Selector, action.Attribute)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("attribute %q not present on %q", action.Attribute, action.Selector)
		}
		return value, nil
	default: // text
		return eng.Text(ctx, action.Selector)
	}
}

func (e *taskExecutor) cacheEnabled() bool {
	return e.cache != nil && e.cfg.CacheTTL > 0
}

// finish records metrics and logs the outcome.
func (e *taskExecutor) finish(task *entity.Task, res *entity.Result) *entity.Result {
	metrics.TaskDuration.Observe(float64(res.DurationMS) / 1000)
	if res.Success {
		metrics.TasksTotal.WithLabelValues("success", "").Inc()
		slog.Info("task completed", "task_id", task.ID, "url", task.StartURL(), "duration_ms", res.DurationMS)
	} else {
		metrics.TasksTotal.WithLabelValues("failure", string(res.FailureKind)).Inc()
		slog.Warn("task failed",
			"task_id", task.ID,
			"url", task.StartURL(),
			"failure_kind", res.FailureKind,
			"action_index", res.FailedActionIndex,
			"error", res.FailureMessage,
		)
	}
	return res
}

func classifyAcquire(err error) entity.FailureKind {
	if browser.IsLaunchError(err) {
		return entity.FailureLaunch
	}
	return entity.FailurePoolExhausted
}

func failureResult(task *entity.Task, kind entity.FailureKind, index int, err error, start time.Time) *entity.Result {
	return &entity.Result{
		TaskID:            task.ID,
		Success:           false,
		FailureKind:       kind,
		FailureMessage:    err.Error(),
		FailedActionIndex: index,
		DurationMS:        time.Since(start).Milliseconds(),
		CompletedAt:       time.Now(),
	}
}

// taskCacheKey derives the cache key from the action sequence alone, so
// identical render requests share one entry regardless of task ID.
func taskCacheKey(task *entity.Task) string {
	payload, err := json.Marshal(task.Actions)
	if err != nil {
		return utils.HashKey(task.ID)
	}
	return utils.HashKey(string(payload))
}
