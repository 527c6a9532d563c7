package browser

import (
	"errors"
	"fmt"
)

var (
	// ErrPoolExhausted is returned by Acquire when no session became
	// available within the caller's deadline. Retryable.
	ErrPoolExhausted = errors.New("browser pool exhausted")
	// ErrPoolClosed is returned by Acquire after Close.
	ErrPoolClosed = errors.New("browser pool closed")
)

// LaunchError wraps a failure to start a browser process. It is fatal for
// the acquisition attempt that triggered the launch, not for the pool.
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("browser launch failed: %v", e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// IsLaunchError reports whether err is (or wraps) a LaunchError.
func IsLaunchError(err error) bool {
	var le *LaunchError
	return errors.As(err, &le)
}
