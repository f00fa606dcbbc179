package contexts

import (
	"context"

	"github.com/casewarden/discoveryhub/internal/authz"
)

// ContextKey defines the context key type.
type ContextKey string

const (
	// containerContextKey is used to store the context container in the context.
	containerContextKey ContextKey = "context_container"
)

// WithActor stores the resolved actor identity in the context.
func WithActor(ctx context.Context, actor authz.Actor) context.Context {
	container := getContainer(ctx)
	container.Actor = &actor

	return withContainer(ctx, container)
}

// GetActor retrieves the actor identity from the context.
func GetActor(ctx context.Context) (authz.Actor, bool) {
	container := getContainer(ctx)
	if container.Actor != nil {
		return *container.Actor, true
	}

	return authz.Actor{}, false
}

// WithCaseID stores the case id the request operates on.
func WithCaseID(ctx context.Context, caseID string) context.Context {
	container := getContainer(ctx)
	container.CaseID = &caseID

	return withContainer(ctx, container)
}

// GetCaseID retrieves the case id from the context.
func GetCaseID(ctx context.Context) (string, bool) {
	container := getContainer(ctx)
	if container.CaseID != nil {
		return *container.CaseID, true
	}

	return "", false
}

// WithTraceID stores the trace id in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	container := getContainer(ctx)
	container.TraceID = &traceID

	return withContainer(ctx, container)
}

// GetTraceID retrieves the trace id from the context.
func GetTraceID(ctx context.Context) (string, bool) {
	container := getContainer(ctx)
	if container.TraceID != nil {
		return *container.TraceID, true
	}

	return "", false
}

// WithRequestID stores the request id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	container := getContainer(ctx)
	container.RequestID = &requestID

	return withContainer(ctx, container)
}

// GetRequestID retrieves the request id from the context.
func GetRequestID(ctx context.Context) (string, bool) {
	container := getContainer(ctx)
	if container.RequestID != nil {
		return *container.RequestID, true
	}

	return "", false
}

// WithOperationName stores the operation name in the context.
func WithOperationName(ctx context.Context, name string) context.Context {
	container := getContainer(ctx)
	container.OperationName = &name

	return withContainer(ctx, container)
}

// GetOperationName retrieves the operation name from the context.
func GetOperationName(ctx context.Context) (string, bool) {
	container := getContainer(ctx)
	if container.OperationName != nil {
		return *container.OperationName, true
	}

	return "", false
}

// AddError appends an error to the request container so the access log can
// surface it even when a handler swallows it.
func AddError(ctx context.Context, err error) {
	if err == nil {
		return
	}

	container := getContainer(ctx)
	container.mu.Lock()
	container.Errors = append(container.Errors, err)
	container.mu.Unlock()
}

// GetErrors returns the errors collected on the request container.
func GetErrors(ctx context.Context) []error {
	container := getContainer(ctx)
	container.mu.RLock()
	defer container.mu.RUnlock()

	errs := make([]error, len(container.Errors))
	copy(errs, container.Errors)

	return errs
}
