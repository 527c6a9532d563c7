package entity

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ActionKind discriminates the automation steps a task may contain.
type ActionKind string

const (
	ActionNavigate   ActionKind = "navigate"
	ActionWait       ActionKind = "wait"
	ActionClick      ActionKind = "click"
	ActionFill       ActionKind = "fill"
	ActionExtract    ActionKind = "extract"
	ActionScreenshot ActionKind = "screenshot"
)

// ExtractMode selects what part of a matched element an extract action reads.
type ExtractMode string

const (
	ExtractText      ExtractMode = "text"
	ExtractHTML      ExtractMode = "html"
	ExtractAttribute ExtractMode = "attribute"
)

// Action is one automation step. It is a tagged variant: Kind decides which
// of the remaining fields are meaningful, and Validate enforces that per
// kind. The executor dispatches all kinds through a single interpreter loop.
type Action struct {
	Kind       ActionKind  `json:"type"`
	URL        string      `json:"url,omitempty"`
	Selector   string      `json:"selector,omitempty"`
	Value      string      `json:"value,omitempty"`
	Mode       ExtractMode `json:"mode,omitempty"`
	Attribute  string      `json:"attribute,omitempty"`
	DurationMS int         `json:"duration_ms,omitempty"`
	FullPage   bool        `json:"full_page,omitempty"`
	// Optional actions are skipped on failure instead of aborting the task,
	// unless the overall task budget is what expired.
	Optional bool `json:"optional,omitempty"`
}

// Validate checks that the action carries the fields its kind requires.
func (a Action) Validate() error {
	switch a.Kind {
	case ActionNavigate:
		if a.URL == "" {
			return errors.New("navigate action requires url")
		}
		if _, err := url.ParseRequestURI(a.URL); err != nil {
			return fmt.Errorf("navigate action has invalid url: %w", err)
		}
	case ActionWait:
		if a.Selector == "" && a.DurationMS <= 0 {
			return errors.New("wait action requires selector or duration_ms")
		}
	case ActionClick:
		if a.Selector == "" {
			return errors.New("click action requires selector")
		}
	case ActionFill:
		if a.Selector == "" {
			return errors.New("fill action requires selector")
		}
	case ActionExtract:
		if a.Selector == "" {
			return errors.New("extract action requires selector")
		}
		switch a.Mode {
		case "", ExtractText, ExtractHTML:
		case ExtractAttribute:
			if a.Attribute == "" {
				return errors.New("extract action with mode attribute requires attribute")
			}
		default:
			return fmt.Errorf("extract action has unknown mode %q", a.Mode)
		}
	case ActionScreenshot:
		// Selector is optional; empty means viewport (or full page).
	default:
		return fmt.Errorf("unknown action type %q", a.Kind)
	}
	return nil
}

// Task is one unit of browser work: an ordered action sequence plus timeout
// budgets. It is created per incoming request and discarded after the Result
// is produced.
type Task struct {
	ID            string
	Actions       []Action
	TaskTimeout   time.Duration // overall budget; zero means the configured default
	ActionTimeout time.Duration // per-action budget; zero means the configured default
}

// Validate checks the whole action sequence before any of it executes.
func (t *Task) Validate() error {
	if len(t.Actions) == 0 {
		return errors.New("task has no actions")
	}
	for i, a := range t.Actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}

// StartURL returns the URL of the leading navigate action, if any. Used for
// logging and metrics labels.
func (t *Task) StartURL() string {
	for _, a := range t.Actions {
		if a.Kind == ActionNavigate {
			return a.URL
		}
	}
	return ""
}
