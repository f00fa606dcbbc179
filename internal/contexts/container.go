package contexts

import (
	"context"
	"sync"

	"github.com/casewarden/discoveryhub/internal/authz"
)

// contextContainer contains all values in the context.
type contextContainer struct {
	Actor         *authz.Actor
	CaseID        *string
	TraceID       *string
	RequestID     *string
	OperationName *string

	mu     sync.RWMutex
	Errors []error
}

// getContainer retrieves the existing container from context, or creates a
// new one if it doesn't exist.
func getContainer(ctx context.Context) *contextContainer {
	if container, ok := ctx.Value(containerContextKey).(*contextContainer); ok {
		return container
	}

	return &contextContainer{}
}

// withContainer stores the container in the context (if not already stored).
func withContainer(ctx context.Context, container *contextContainer) context.Context {
	if ctx.Value(containerContextKey) == nil {
		return context.WithValue(ctx, containerContextKey, container)
	}

	return ctx
}
