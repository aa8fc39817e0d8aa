package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

type (
	// Handler executes a task function. The returned value is stored as the
	// task result and must be JSON serializable.
	Handler interface {
		Name() string
		Handle(ctx context.Context, args []any, kwargs map[string]any) (any, error)
	}

	// HandlerFunc is the signature of a plain task function.
	HandlerFunc func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

	// TaskHandlerFunc receives the task keyword arguments decoded into T.
	TaskHandlerFunc[T any] func(ctx context.Context, payload T) (any, error)

	// HookFunc is called with the result of every task that names it.
	HookFunc func(ctx context.Context, r *Result)
)

// NewHandler wraps fn as a Handler registered under name.
func NewHandler(name string, fn HandlerFunc) Handler {
	return &funcHandler{name: name, fn: fn}
}

// NewTaskHandler creates a handler named after the payload type.
// The task kwargs, minus the schema, are decoded into T.
func NewTaskHandler[T any](handler TaskHandlerFunc[T]) Handler {
	var payload T
	return &typedHandler[T]{
		name:    qualifiedStructName(payload),
		handler: handler,
	}
}

type funcHandler struct {
	name string
	fn   HandlerFunc
}

func (h *funcHandler) Name() string {
	return h.name
}

func (h *funcHandler) Handle(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	return h.fn(ctx, args, kwargs)
}

type typedHandler[T any] struct {
	name    string
	handler TaskHandlerFunc[T]
}

func (h *typedHandler[T]) Name() string {
	return h.name
}

func (h *typedHandler[T]) Handle(ctx context.Context, _ []any, kwargs map[string]any) (any, error) {
	var t T
	raw, err := json.Marshal(kwargs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode kwargs for %s: %w", h.name, err)
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("failed to decode kwargs into %s: %w", h.name, err)
	}
	return h.handler(ctx, t)
}
