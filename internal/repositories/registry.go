package repositories

import "errors"

// RepositoryRegistry bundles the repository implementations handed to the
// service container.
type RepositoryRegistry struct {
	products   ProductRepository
	categories CategoryRepository
	health     HealthRepository
}

// NewRegistry constructs a registry and validates that every repository is present.
func NewRegistry(products ProductRepository, categories CategoryRepository, health HealthRepository) (*RepositoryRegistry, error) {
	if products == nil {
		return nil, errors.New("repository registry: product repository is required")
	}
	if categories == nil {
		return nil, errors.New("repository registry: category repository is required")
	}
	if health == nil {
		return nil, errors.New("repository registry: health repository is required")
	}
	return &RepositoryRegistry{products: products, categories: categories, health: health}, nil
}

func (r *RepositoryRegistry) Products() ProductRepository    { return r.products }
func (r *RepositoryRegistry) Categories() CategoryRepository { return r.categories }
func (r *RepositoryRegistry) Health() HealthRepository       { return r.health }
