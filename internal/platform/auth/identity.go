// Package auth verifies Firebase ID tokens and exposes the resulting
// identity to HTTP handlers through the request context.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// Roles recognised by the admin surface.
const (
	RoleUser  = "user"
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// ErrUserLoaderUnavailable is returned by Identity.User when the
// authenticator was built without a user getter.
var ErrUserLoaderUnavailable = errors.New("auth: user loader not configured")

// UserLoader fetches the Firebase user profile for a UID.
type UserLoader func(ctx context.Context, uid string) (*firebaseauth.UserRecord, error)

// Identity is the authenticated principal extracted from a verified
// Firebase ID token.
type Identity struct {
	UID    string
	Email  string
	Locale string
	Roles  []string

	loadUser UserLoader
	loadOnce sync.Once
	record   *firebaseauth.UserRecord
	loadErr  error
}

// HasRole reports whether the identity carries the given role.
// Comparison is case-insensitive.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	role = normalizeRole(role)
	if role == "" {
		return false
	}
	for _, have := range i.Roles {
		if normalizeRole(have) == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the identity carries at least one of the
// given roles.
func (i *Identity) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if i.HasRole(role) {
			return true
		}
	}
	return false
}

// User loads the full Firebase user record behind this identity. The
// first call hits the Admin SDK; later calls return the cached result.
func (i *Identity) User(ctx context.Context) (*firebaseauth.UserRecord, error) {
	if i == nil || i.loadUser == nil {
		return nil, ErrUserLoaderUnavailable
	}
	i.loadOnce.Do(func() {
		i.record, i.loadErr = i.loadUser(ctx, i.UID)
	})
	return i.record, i.loadErr
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

type identityKey struct{}

// WithIdentity stores the identity in ctx for downstream handlers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
