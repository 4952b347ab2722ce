package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	domain "github.com/ateliedecor/api/internal/domain"
	"github.com/ateliedecor/api/internal/repositories"
)

var (
	// ErrCatalogRepositoryMissing indicates the repository dependency is absent.
	ErrCatalogRepositoryMissing = errors.New("catalog service: repository is not configured")
)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Products   repositories.ProductRepository
	Categories repositories.CategoryRepository
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type catalogService struct {
	products   repositories.ProductRepository
	categories repositories.CategoryRepository
	logger     func(ctx context.Context, event string, fields map[string]any)
}

// NewCatalogService constructs the catalog service with the supplied dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, fmt.Errorf("catalog service: product repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &catalogService{
		products:   deps.Products,
		categories: deps.Categories,
		logger:     logger,
	}, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]CategoryRecord, error) {
	if s.categories == nil {
		return nil, ErrCatalogRepositoryMissing
	}
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(categories, func(i, j int) bool { return categories[i].Order < categories[j].Order })
	return categories, nil
}

func (s *catalogService) ListProducts(ctx context.Context) ([]ProductRecord, error) {
	return s.products.ListProducts(ctx)
}

func (s *catalogService) GroupedCatalog(ctx context.Context) ([]DisplayEntity, error) {
	records, err := s.products.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return Reconcile(records), nil
}

// Subscribe attaches onUpdate to the repository's change feed; every change
// to the flat record list is re-reconciled from scratch before delivery. The
// returned cancel function detaches the listener.
func (s *catalogService) Subscribe(ctx context.Context, onUpdate func([]DisplayEntity)) (func(), error) {
	if onUpdate == nil {
		return nil, fmt.Errorf("catalog service: onUpdate callback is required")
	}
	cancel, err := s.products.Watch(ctx, func(records []domain.ProductRecord) {
		onUpdate(Reconcile(records))
	})
	if err != nil {
		return nil, err
	}
	s.logger(ctx, "catalog.subscribed", nil)
	return cancel, nil
}

// Reconcile collapses records sharing a non-blank base product name into one
// display entity per group, preserving the records' relative order. The first
// member supplies the representative image and description; the price is the
// minimum non-nil price across members. Records with no base product name
// pass through individually. The function is stateless: identical input
// always yields identical output.
func Reconcile(records []domain.ProductRecord) []domain.DisplayEntity {
	entities := make([]domain.DisplayEntity, 0, len(records))
	groupIndex := make(map[string]int)

	for _, record := range records {
		baseName := strings.TrimSpace(record.BaseProductName)
		if baseName == "" {
			entities = append(entities, passthroughEntity(record))
			continue
		}
		index, ok := groupIndex[baseName]
		if !ok {
			entities = append(entities, domain.DisplayEntity{
				ID:          baseName,
				Name:        baseName,
				CategoryID:  record.CategoryID,
				MainImage:   record.MainImage,
				Description: record.Description,
				Price:       copyPrice(record.Price),
				Variants:    []domain.ProductRecord{record},
				IsGrouped:   true,
			})
			groupIndex[baseName] = len(entities) - 1
			continue
		}
		entity := &entities[index]
		entity.Variants = append(entity.Variants, record)
		if record.Price != nil && (entity.Price == nil || *record.Price < *entity.Price) {
			entity.Price = copyPrice(record.Price)
		}
	}
	return entities
}

func passthroughEntity(record domain.ProductRecord) domain.DisplayEntity {
	return domain.DisplayEntity{
		ID:          record.ID,
		Name:        record.Name,
		CategoryID:  record.CategoryID,
		Price:       copyPrice(record.Price),
		MainImage:   record.MainImage,
		Description: record.Description,
		Images:      append([]string(nil), record.Images...),
		IsGrouped:   false,
	}
}

func copyPrice(price *float64) *float64 {
	if price == nil {
		return nil
	}
	value := *price
	return &value
}
