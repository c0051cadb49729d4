package world

import (
	"context"
	"errors"
	"fmt"
)

type userKey struct{}

// ErrNoUser is returned when no acting user is bound to the context
var ErrNoUser = errors.New("no user bound to context")

// WithUser binds the acting user's id to ctx
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID returns the acting user's id bound to ctx
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}

// CurrentUser resolves the acting user bound to ctx
func (w *World) CurrentUser(ctx context.Context) (*User, error) {
	id, ok := UserID(ctx)
	if !ok {
		return nil, ErrNoUser
	}
	u, ok := w.User(id)
	if !ok {
		return nil, fmt.Errorf("user %q is not part of world %s", id, w.ID)
	}
	return u, nil
}
