package service

import "context"

type taskAccessKey struct{}

// WithTaskAccess returns a copy of ctx carrying access.
func WithTaskAccess(ctx context.Context, access TaskAccess) context.Context {
	return context.WithValue(ctx, taskAccessKey{}, access)
}

// TaskAccessFromContext returns the handle bound by the Authentication Gate.
func TaskAccessFromContext(ctx context.Context) (TaskAccess, bool) {
	access, ok := ctx.Value(taskAccessKey{}).(TaskAccess)
	return access, ok && access != nil
}
