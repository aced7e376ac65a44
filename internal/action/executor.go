// Package action maps named session commands to their executors.
package action

import "context"

// Target is the session surface commands act on.
type Target interface {
	Expand(id string) error
	Center(id string) error
	Select(id string) error
	Deselect()
	Fit(padding float64)
	ResetView()
	Reload(ctx context.Context) error
}

// Result holds the outcome of one command.
type Result struct {
	Command string `json:"command"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Executor is the interface all command implementations must satisfy.
type Executor interface {
	// Type returns the command name this executor is registered under.
	Type() string
	// Validate checks params before the command is queued.
	Validate(params map[string]any) error
	// Execute runs the command against the session.
	Execute(ctx context.Context, t Target, params map[string]any) (*Result, error)
}
