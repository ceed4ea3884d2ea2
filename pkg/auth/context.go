package auth

import (
	"context"
	"errors"
)

// UserContext is the authenticated identity attached to a request.
type UserContext struct {
	UserID string
	Email  string
	Roles  []string
}

type contextKey struct{}

// ErrNoUserInContext is returned when a request carries no identity.
var ErrNoUserInContext = errors.New("no user in context")

// SetUserInContext attaches the user to the context.
func SetUserInContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// GetUserFromContext returns the authenticated user, or ErrNoUserInContext.
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(contextKey{}).(*UserContext)
	if !ok || user == nil {
		return nil, ErrNoUserInContext
	}
	return user, nil
}

// HasRole reports whether the user carries the role.
func (u *UserContext) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
