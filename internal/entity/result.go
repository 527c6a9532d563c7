package entity

import "time"

// FailureKind classifies every non-success outcome of a task.
type FailureKind string

const (
	FailureLaunch        FailureKind = "launch_error"
	FailurePoolExhausted FailureKind = "pool_exhausted"
	FailureAction        FailureKind = "action_failure"
	FailureTimeout       FailureKind = "timeout"
)

// Extraction is the value produced by one extract action.
type Extraction struct {
	ActionIndex int    `json:"action_index"`
	Selector    string `json:"selector"`
	Value       string `json:"value"`
}

// Result is the immutable outcome of a task. Either Success is true and the
// payload fields are populated, or Success is false and the failure
// descriptor says what went wrong and at which action.
type Result struct {
	TaskID  string `json:"task_id"`
	Success bool   `json:"success"`

	// Failure descriptor. FailedActionIndex is -1 when the failure happened
	// before any action ran (launch, pool exhaustion).
	FailureKind       FailureKind `json:"failure_kind,omitempty"`
	FailureMessage    string      `json:"failure_message,omitempty"`
	FailedActionIndex int         `json:"failed_action_index,omitempty"`

	// Success payload.
	URL            string       `json:"url,omitempty"`
	Title          string       `json:"title,omitempty"`
	HTTPStatusCode int          `json:"http_status_code,omitempty"`
	Extractions    []Extraction `json:"extractions,omitempty"`
	Screenshot     []byte       `json:"screenshot,omitempty"`
	HTML           string       `json:"html,omitempty"`

	DurationMS  int64     `json:"duration_ms"`
	CompletedAt time.Time `json:"completed_at"`
}

// Failed reports whether the result carries the given failure kind.
func (r *Result) Failed(kind FailureKind) bool {
	return r != nil && !r.Success && r.FailureKind == kind
}
