package booking

import "context"

type userKey struct{}

// WithUser returns a context carrying the authenticated user id. The id is
// opaque to the engine; it is only recorded on the rows a command writes.
func WithUser(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userKey{}, id)
}

// UserFrom returns the user id stored by WithUser, or "" when absent.
func UserFrom(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}
