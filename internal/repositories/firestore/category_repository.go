package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"

	domain "github.com/ateliedecor/api/internal/domain"
	pfirestore "github.com/ateliedecor/api/internal/platform/firestore"
)

const categoriesCollection = "categories"

// CategoryRepository reads the category records that organize the catalog.
type CategoryRepository struct {
	base *pfirestore.BaseRepository[categoryDocument]
}

// NewCategoryRepository constructs a Firestore-backed category repository.
func NewCategoryRepository(provider *pfirestore.Provider) (*CategoryRepository, error) {
	if provider == nil {
		return nil, errors.New("category repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[categoryDocument](provider, categoriesCollection, nil)
	return &CategoryRepository{base: base}, nil
}

// ListCategories returns every category ordered by display order.
func (r *CategoryRepository) ListCategories(ctx context.Context) ([]domain.CategoryRecord, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("category repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("order", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	categories := make([]domain.CategoryRecord, 0, len(docs))
	for _, doc := range docs {
		categories = append(categories, decodeCategoryDocument(doc.ID, doc.Data))
	}
	return categories, nil
}

// GetCategory fetches a single category.
func (r *CategoryRepository) GetCategory(ctx context.Context, categoryID string) (domain.CategoryRecord, error) {
	if r == nil || r.base == nil {
		return domain.CategoryRecord{}, errors.New("category repository not initialised")
	}
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return domain.CategoryRecord{}, errors.New("category repository: category id is required")
	}
	doc, err := r.base.Get(ctx, categoryID)
	if err != nil {
		return domain.CategoryRecord{}, err
	}
	return decodeCategoryDocument(categoryID, doc.Data), nil
}

type categoryDocument struct {
	Name  string `firestore:"name"`
	Order int    `firestore:"order"`
}

func decodeCategoryDocument(id string, doc categoryDocument) domain.CategoryRecord {
	return domain.CategoryRecord{
		ID:    strings.TrimSpace(id),
		Name:  strings.TrimSpace(doc.Name),
		Order: doc.Order,
	}
}
