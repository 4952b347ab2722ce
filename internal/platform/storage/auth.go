package storage

import (
	"context"
	"errors"

	"github.com/ateliedecor/api/internal/platform/auth"
)

// ErrPermissionDenied is returned when the caller may not touch catalog assets.
var ErrPermissionDenied = errors.New("storage: permission denied")

// AuthorizeCatalogAccess allows only staff and admin identities; the catalog
// bucket has no per-user ownership.
func AuthorizeCatalogAccess(identity *auth.Identity) error {
	if identity == nil {
		return ErrPermissionDenied
	}
	if identity.HasAnyRole(auth.RoleStaff, auth.RoleAdmin) {
		return nil
	}
	return ErrPermissionDenied
}

// AuthorizeCatalogAccessFromContext extracts the identity from context and validates access.
func AuthorizeCatalogAccessFromContext(ctx context.Context) (*auth.Identity, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, ErrPermissionDenied
	}
	if err := AuthorizeCatalogAccess(identity); err != nil {
		return nil, err
	}
	return identity, nil
}
