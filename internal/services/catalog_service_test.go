package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	domain "github.com/ateliedecor/api/internal/domain"
)

type stubProductRepository struct {
	records     []domain.ProductRecord
	listErr     error
	saved       [][]domain.ProductRecord
	saveErr     error
	byBaseName  map[string][]domain.ProductRecord
	watchFn     func([]domain.ProductRecord)
	watchCancel bool
	watchErr    error
}

func (s *stubProductRepository) ListProducts(ctx context.Context) ([]domain.ProductRecord, error) {
	return s.records, s.listErr
}

func (s *stubProductRepository) GetProduct(ctx context.Context, productID string) (domain.ProductRecord, error) {
	for _, record := range s.records {
		if record.ID == productID {
			return record, nil
		}
	}
	return domain.ProductRecord{}, errors.New("not found")
}

func (s *stubProductRepository) ListByBaseName(ctx context.Context, baseProductName string) ([]domain.ProductRecord, error) {
	return s.byBaseName[baseProductName], nil
}

func (s *stubProductRepository) SaveProducts(ctx context.Context, records []domain.ProductRecord) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, records)
	return nil
}

func (s *stubProductRepository) DeleteProduct(ctx context.Context, productID string) error {
	return nil
}

func (s *stubProductRepository) Watch(ctx context.Context, onChange func([]domain.ProductRecord)) (func(), error) {
	if s.watchErr != nil {
		return nil, s.watchErr
	}
	s.watchFn = onChange
	return func() { s.watchCancel = true }, nil
}

type stubCategoryRepository struct {
	categories []domain.CategoryRecord
	err        error
}

func (s *stubCategoryRepository) ListCategories(ctx context.Context) ([]domain.CategoryRecord, error) {
	return s.categories, s.err
}

func (s *stubCategoryRepository) GetCategory(ctx context.Context, categoryID string) (domain.CategoryRecord, error) {
	for _, category := range s.categories {
		if category.ID == categoryID {
			return category, nil
		}
	}
	return domain.CategoryRecord{}, errors.New("not found")
}

func floatPtr(v float64) *float64 { return &v }

func TestNewCatalogService(t *testing.T) {
	if _, err := NewCatalogService(CatalogServiceDeps{}); err == nil {
		t.Fatal("expected error when product repository missing")
	}
	if _, err := NewCatalogService(CatalogServiceDeps{Products: &stubProductRepository{}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReconcileGroupsByBaseProductName(t *testing.T) {
	records := []domain.ProductRecord{
		{ID: "1", Name: "Porta Copo Love Vermelho", BaseProductName: "Porta Copo Love", Price: floatPtr(30), MainImage: "red.jpg", Description: "love"},
		{ID: "2", Name: "Porta Copo Love Azul", BaseProductName: "Porta Copo Love", Price: floatPtr(25), MainImage: "blue.jpg", Description: "love azul"},
		{ID: "3", Name: "Bandeja", Price: floatPtr(10), MainImage: "tray.jpg"},
	}

	entities := Reconcile(records)
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(entities))
	}

	grouped := entities[0]
	if grouped.ID != "Porta Copo Love" || !grouped.IsGrouped {
		t.Fatalf("unexpected grouped entity %+v", grouped)
	}
	if len(grouped.Variants) != 2 || grouped.Variants[0].ID != "1" || grouped.Variants[1].ID != "2" {
		t.Fatalf("variants out of order: %+v", grouped.Variants)
	}
	if grouped.Price == nil || *grouped.Price != 25 {
		t.Fatalf("expected minimum price 25, got %v", grouped.Price)
	}
	// First member supplies the representative fields.
	if grouped.MainImage != "red.jpg" || grouped.Description != "love" {
		t.Fatalf("expected first-wins image/description, got %+v", grouped)
	}

	single := entities[1]
	if single.ID != "3" || single.IsGrouped {
		t.Fatalf("expected passthrough entity, got %+v", single)
	}
	if single.Price == nil || *single.Price != 10 {
		t.Fatalf("unexpected passthrough price %v", single.Price)
	}
}

func TestReconcileAllNilPrices(t *testing.T) {
	records := []domain.ProductRecord{
		{ID: "1", BaseProductName: "Manta"},
		{ID: "2", BaseProductName: "Manta"},
	}
	entities := Reconcile(records)
	if len(entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(entities))
	}
	if entities[0].Price != nil {
		t.Fatalf("expected nil price, got %v", *entities[0].Price)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	records := []domain.ProductRecord{
		{ID: "1", BaseProductName: "Vaso", Price: floatPtr(12)},
		{ID: "2", BaseProductName: "Vaso", Price: floatPtr(9)},
		{ID: "3", Name: "Avulso"},
	}
	first := Reconcile(records)
	second := Reconcile(records)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reconcile is not idempotent: %+v vs %+v", first, second)
	}
}

func TestReconcileEmptyInput(t *testing.T) {
	if entities := Reconcile(nil); len(entities) != 0 {
		t.Fatalf("expected empty output, got %+v", entities)
	}
}

func TestReconcileBlankBaseNamePassesThrough(t *testing.T) {
	entities := Reconcile([]domain.ProductRecord{{ID: "1", BaseProductName: "   "}})
	if len(entities) != 1 || entities[0].IsGrouped {
		t.Fatalf("expected blank base name to pass through, got %+v", entities)
	}
}

func TestListCategoriesSortedByOrder(t *testing.T) {
	svc, err := NewCatalogService(CatalogServiceDeps{
		Products: &stubProductRepository{},
		Categories: &stubCategoryRepository{categories: []domain.CategoryRecord{
			{ID: "c2", Name: "Mesa Posta", Order: 2},
			{ID: "c1", Name: "Almofadas", Order: 1},
		}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	categories, err := svc.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if categories[0].ID != "c1" || categories[1].ID != "c2" {
		t.Fatalf("categories not sorted: %+v", categories)
	}
}

func TestGroupedCatalog(t *testing.T) {
	repo := &stubProductRepository{records: []domain.ProductRecord{
		{ID: "1", BaseProductName: "Jogo Americano", Price: floatPtr(40)},
		{ID: "2", BaseProductName: "Jogo Americano", Price: floatPtr(35)},
	}}
	svc, err := NewCatalogService(CatalogServiceDeps{Products: repo})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entities, err := svc.GroupedCatalog(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entities) != 1 || *entities[0].Price != 35 {
		t.Fatalf("unexpected grouped catalog %+v", entities)
	}
}

func TestSubscribeDeliversReconciledUpdates(t *testing.T) {
	repo := &stubProductRepository{}
	svc, err := NewCatalogService(CatalogServiceDeps{Products: repo})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var received [][]DisplayEntity
	cancel, err := svc.Subscribe(context.Background(), func(entities []DisplayEntity) {
		received = append(received, entities)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.watchFn == nil {
		t.Fatal("expected repository watch to be attached")
	}

	repo.watchFn([]domain.ProductRecord{
		{ID: "1", BaseProductName: "Aparador", Price: floatPtr(120)},
		{ID: "2", BaseProductName: "Aparador", Price: floatPtr(99)},
	})
	if len(received) != 1 {
		t.Fatalf("expected one update, got %d", len(received))
	}
	if len(received[0]) != 1 || *received[0][0].Price != 99 {
		t.Fatalf("unexpected reconciled update %+v", received[0])
	}

	cancel()
	if !repo.watchCancel {
		t.Fatal("expected cancel to detach the repository watch")
	}
}

func TestSubscribeRequiresCallback(t *testing.T) {
	svc, err := NewCatalogService(CatalogServiceDeps{Products: &stubProductRepository{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Subscribe(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil callback")
	}
}
