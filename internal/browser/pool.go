package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// PoolConfig carries the tunables for a session pool.
type PoolConfig struct {
	// Size bounds the number of simultaneously busy sessions.
	Size int
	// Launch starts a fresh browser instance when the pool has capacity but
	// no idle session.
	Launch LaunchFunc
	// IdleTTL retires sessions that sat unused for this long. Zero disables
	// the reaper.
	IdleTTL time.Duration
	// MaxCrashes retires a session once its crash count reaches this value.
	MaxCrashes int
	// HealthCheckTimeout bounds the engine probe performed on release and on
	// reuse of an idle session.
	HealthCheckTimeout time.Duration
}

func (c *PoolConfig) withDefaults() PoolConfig {
	out := *c
	if out.Size <= 0 {
		out.Size = 1
	}
	if out.MaxCrashes <= 0 {
		out.MaxCrashes = 3
	}
	if out.HealthCheckTimeout <= 0 {
		out.HealthCheckTimeout = 2 * time.Second
	}
	return out
}

// Stats is a point-in-time snapshot of pool state, used by the /api/pool
// endpoint and the Prometheus gauge functions.
type Stats struct {
	Size     int    `json:"size"`
	Busy     int    `json:"busy"`
	Idle     int    `json:"idle"`
	Launched uint64 `json:"launched_total"`
	Retired  uint64 `json:"retired_total"`
}

// Pool owns every browser session in the process. Sessions move between
// busy, idle, and retired; the mutex serializes only that bookkeeping, never
// browser I/O. Capacity is a token channel so blocked acquirers are woken in
// request order.
type Pool struct {
	cfg    PoolConfig
	tokens chan struct{}
	done   chan struct{}

	mu     sync.Mutex
	idle   []*Session
	busy   int
	closed bool

	launched atomic.Uint64
	retired  atomic.Uint64

	wg sync.WaitGroup
}

// NewPool creates a session pool. No browser is launched up front; sessions
// are created lazily on Acquire.
func NewPool(cfg PoolConfig) *Pool {
	cfg = cfg.withDefaults()
	p := &Pool{
		cfg:    cfg,
		tokens: make(chan struct{}, cfg.Size),
		done:   make(chan struct{}),
	}
	for i := 0; i < cfg.Size; i++ {
		p.tokens <- struct{}{}
	}
	if cfg.IdleTTL > 0 {
		p.wg.Add(1)
		go p.reaper()
	}
	return p
}

// Acquire blocks until an idle session is available or the pool has capacity
// to launch a new one. It fails with ErrPoolExhausted when ctx expires first,
// with ErrPoolClosed after Close, and with *LaunchError when a needed launch
// fails. A launch failure consumes no capacity.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	select {
	case <-p.done:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrPoolExhausted, ctx.Err())
	case <-p.tokens:
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.returnToken()
		return nil, ErrPoolClosed
	}
	p.mu.Unlock()

	// Token held: either reuse an idle session or launch a fresh one.
	for {
		s := p.popIdle()
		if s == nil {
			break
		}
		if p.reusable(s) {
			s.touch()
			p.markBusy()
			return s, nil
		}
		p.destroy(s, "stale_on_acquire")
	}

	eng, err := p.cfg.Launch(ctx)
	if err != nil {
		p.returnToken()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrPoolExhausted, ctx.Err())
		}
		return nil, &LaunchError{Err: err}
	}
	s := newSession(eng)
	p.launched.Add(1)
	p.markBusy()
	slog.Debug("browser session launched", "session_id", s.ID())
	return s, nil
}

// Release hands a session back after a task. The session is health-checked
// and either returned to the idle pool or retired; a session that fails the
// check is never handed out again.
func (p *Pool) Release(s *Session) {
	if s == nil {
		return
	}
	if !p.healthy(s) {
		p.Retire(s, "unhealthy_on_release")
		return
	}

	p.mu.Lock()
	if p.closed {
		p.busy--
		p.mu.Unlock()
		p.destroy(s, "pool_closed")
		return
	}
	p.busy--
	s.touch()
	p.idle = append(p.idle, s)
	p.mu.Unlock()
	p.returnToken()
}

// Retire removes a session from the pool for good and terminates its
// browser process. Safe to call instead of Release on any exit path.
func (p *Pool) Retire(s *Session, reason string) {
	if s == nil {
		return
	}
	p.mu.Lock()
	p.busy--
	p.mu.Unlock()
	p.destroy(s, reason)
	p.returnToken()
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Size:     p.cfg.Size,
		Busy:     p.busy,
		Idle:     len(p.idle),
		Launched: p.launched.Load(),
		Retired:  p.retired.Load(),
	}
}

// Close retires every idle session and rejects further acquisitions. Busy
// sessions are destroyed when their tasks release them.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	close(p.done)
	for _, s := range idle {
		p.destroy(s, "pool_closed")
	}
	p.wg.Wait()
}

func (p *Pool) popIdle() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.idle)
	if n == 0 {
		return nil
	}
	s := p.idle[n-1]
	p.idle = p.idle[:n-1]
	return s
}

func (p *Pool) markBusy() {
	p.mu.Lock()
	p.busy++
	p.mu.Unlock()
}

func (p *Pool) returnToken() {
	select {
	case p.tokens <- struct{}{}:
	default:
		// Token accounting is one per busy session; hitting this branch
		// would mean a double release.
		slog.Error("browser pool token overflow")
	}
}

// reusable decides whether an idle session may serve another task.
func (p *Pool) reusable(s *Session) bool {
	if p.cfg.IdleTTL > 0 && time.Since(s.IdleSince()) > p.cfg.IdleTTL {
		return false
	}
	return p.healthy(s)
}

func (p *Pool) healthy(s *Session) bool {
	if s.CrashCount() >= p.cfg.MaxCrashes {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.HealthCheckTimeout)
	defer cancel()
	return s.Engine.Healthy(ctx)
}

// destroy terminates the session's browser process. Never called with the
// pool lock held.
func (p *Pool) destroy(s *Session, reason string) {
	p.retired.Add(1)
	if err := s.Engine.Close(); err != nil {
		slog.Warn("failed to close browser session", "session_id", s.ID(), "reason", reason, "error", err)
		return
	}
	slog.Debug("browser session retired", "session_id", s.ID(), "reason", reason)
}

// reaper periodically retires idle sessions past the TTL.
func (p *Pool) reaper() {
	defer p.wg.Done()
	interval := p.cfg.IdleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.reapIdle()
		}
	}
}

func (p *Pool) reapIdle() {
	cutoff := time.Now().Add(-p.cfg.IdleTTL)

	p.mu.Lock()
	var keep, expired []*Session
	for _, s := range p.idle {
		if s.IdleSince().Before(cutoff) {
			expired = append(expired, s)
		} else {
			keep = append(keep, s)
		}
	}
	p.idle = keep
	p.mu.Unlock()

	for _, s := range expired {
		p.destroy(s, "idle_ttl")
	}
}
