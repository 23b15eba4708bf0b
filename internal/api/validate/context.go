package validate

import "context"

func contextWith(ctx context.Context, loc Location, value any) context.Context {
	return context.WithValue(ctx, valueKey{loc: loc}, value)
}

func get[T any](ctx context.Context, loc Location) (*T, error) {
	value, ok := ctx.Value(valueKey{loc: loc}).(*T)
	if !ok || value == nil {
		return nil, ErrNotBound
	}
	return value, nil
}

// BodyValue returns the validated body bound by Bind.
func BodyValue[T any](ctx context.Context) (*T, error) { return get[T](ctx, LocationBody) }

// PathValue returns the validated path parameters bound by Bind.
func PathValue[T any](ctx context.Context) (*T, error) { return get[T](ctx, LocationPath) }

// QueryValue returns the validated query parameters bound by Bind.
func QueryValue[T any](ctx context.Context) (*T, error) { return get[T](ctx, LocationQuery) }
