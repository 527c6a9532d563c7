package browser

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session is one managed browser instance held by the pool. It is owned
// exclusively by the pool and is never assigned to two tasks at once; callers
// get it from Acquire and must hand it back through Release or Retire.
type Session struct {
	Engine Engine

	id        string
	createdAt time.Time
	lastUsed  atomic.Int64 // unix nanos
	crashes   atomic.Int32
}

func newSession(engine Engine) *Session {
	s := &Session{
		Engine:    engine,
		id:        uuid.NewString(),
		createdAt: time.Now(),
	}
	s.touch()
	return s
}

// ID returns the session's pool-unique identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the underlying browser was launched.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// IdleSince returns the time of the session's last use.
func (s *Session) IdleSince() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// MarkCrashed increments the session's crash count. The executor calls this
// when an action leaves the page in an indeterminate state; the pool retires
// sessions whose count reaches the configured threshold.
func (s *Session) MarkCrashed() {
	s.crashes.Add(1)
}

// CrashCount returns how many times the session has been marked crashed.
func (s *Session) CrashCount() int {
	return int(s.crashes.Load())
}

func (s *Session) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}
