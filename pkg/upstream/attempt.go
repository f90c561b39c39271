package upstream

import (
	"context"
	"log/slog"
)

// Result is the outcome of a best-effort upstream call. On failure Value is
// the zero value of T and Err holds the cause, which has already been logged.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Attempt runs fn and never lets its error escape: failures are logged and
// turned into an empty Result. Callers treat an empty value as "no data".
func Attempt[T any](ctx context.Context, logger *slog.Logger, operation string, fn func(context.Context) (T, error)) Result[T] {
	v, err := fn(ctx)
	if err != nil {
		logger.Warn("upstream call failed, continuing without data",
			"operation", operation,
			"error", err)
		var zero T
		return Result[T]{Value: zero, Err: err}
	}
	return Result[T]{Value: v}
}
