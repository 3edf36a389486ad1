package auth

import "context"

type ctxKey struct{}

// Anonymous is the actor recorded when authentication is disabled.
const Anonymous = "anonymous"

// WithActor returns a context carrying the authenticated key name.
func WithActor(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxKey{}, name)
}

// Actor returns the key name stored by WithActor, or Anonymous.
func Actor(ctx context.Context) string {
	if name, ok := ctx.Value(ctxKey{}).(string); ok && name != "" {
		return name
	}
	return Anonymous
}
