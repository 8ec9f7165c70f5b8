package worker

import (
	"context"

	"github.com/okian/barbell/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// FailureHandler is told about every judgement a worker could not apply.
type FailureHandler func(ctx context.Context, event Event, err error)

// WithName sets the worker name used in its logger.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithFailureHandler registers fn to run after a judgement fails to apply,
// e.g. to forget its submission id so the client may resubmit.
func WithFailureHandler(fn FailureHandler) Option {
	return func(w *InMemoryWorker) {
		w.onFailure = fn
	}
}
