package repositories

import (
	"context"

	domain "github.com/ateliedecor/api/internal/domain"
)

// RepositoryError augments errors returned by repositories with
// classification helpers used by services to branch behavior.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductRepository persists catalog product records, one per published
// color variant, and exposes a live change feed over the flat record list.
type ProductRepository interface {
	ListProducts(ctx context.Context) ([]domain.ProductRecord, error)
	GetProduct(ctx context.Context, productID string) (domain.ProductRecord, error)
	ListByBaseName(ctx context.Context, baseProductName string) ([]domain.ProductRecord, error)
	SaveProducts(ctx context.Context, records []domain.ProductRecord) error
	DeleteProduct(ctx context.Context, productID string) error
	// Watch invokes onChange with the full record list on every change until
	// the returned cancel function is called or ctx is done.
	Watch(ctx context.Context, onChange func([]domain.ProductRecord)) (func(), error)
}

// CategoryRepository reads the category records used to organize the catalog.
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]domain.CategoryRecord, error)
	GetCategory(ctx context.Context, categoryID string) (domain.CategoryRecord, error)
}

// HealthRepository aggregates dependency availability for readiness checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// Registry exposes accessors for all repository implementations wired into
// the service container.
type Registry interface {
	Products() ProductRepository
	Categories() CategoryRepository
	Health() HealthRepository
}
