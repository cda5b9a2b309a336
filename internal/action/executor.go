package action

import (
	"context"
	"fmt"
)

// Invocation is one fully resolved action step: the descriptor with every
// coordinate converted to absolute screen space and bbox placeholders
// filled in.
type Invocation struct {
	Kind    Kind
	X, Y    int
	Button  string
	Clicks  int
	EndX    int
	EndY    int
	Text    string
	Key     string
	Message string

	// Provenance, carried through for notification payloads and logging.
	ROI     string
	EventID string
}

// Executor performs a resolved action against the outside world (synthetic
// input, notification delivery). Execution is attempted at most once per
// invocation; retries are not an executor concern.
type Executor interface {
	Execute(ctx context.Context, inv Invocation) error
}

// Notifier delivers notify actions.
type Notifier interface {
	Notify(ctx context.Context, inv Invocation) error
}

// SystemExecutor routes input kinds to the synthetic-input backend and
// notify to the configured notifier.
type SystemExecutor struct {
	input    Executor
	notifier Notifier
}

// NewSystemExecutor wires the default executor. notifier may be nil, in
// which case notify actions fail with a configuration hint.
func NewSystemExecutor(input Executor, notifier Notifier) *SystemExecutor {
	return &SystemExecutor{input: input, notifier: notifier}
}

func (e *SystemExecutor) Execute(ctx context.Context, inv Invocation) error {
	if inv.Kind == KindNotify {
		if e.notifier == nil {
			return fmt.Errorf("notify action configured but no webhook URL set")
		}
		return e.notifier.Notify(ctx, inv)
	}
	return e.input.Execute(ctx, inv)
}
