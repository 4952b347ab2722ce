package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/ateliedecor/api/internal/domain"
	pfirestore "github.com/ateliedecor/api/internal/platform/firestore"
)

const productsCollection = "products"

// ProductRepository persists one catalog record per published color variant.
type ProductRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil)
	return &ProductRepository{provider: provider, base: base}, nil
}

// ListProducts returns every product record ordered by creation time.
func (r *ProductRepository) ListProducts(ctx context.Context) ([]domain.ProductRecord, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("product repository not initialised")
	}
	docs, err := r.base.Query(ctx, productListOrder)
	if err != nil {
		return nil, err
	}
	records := make([]domain.ProductRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, decodeProductDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}
	return records, nil
}

// GetProduct fetches a single product record.
func (r *ProductRepository) GetProduct(ctx context.Context, productID string) (domain.ProductRecord, error) {
	if r == nil || r.base == nil {
		return domain.ProductRecord{}, errors.New("product repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.ProductRecord{}, errors.New("product repository: product id is required")
	}
	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.ProductRecord{}, err
	}
	return decodeProductDocument(productID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// ListByBaseName returns the variant records of one base product.
func (r *ProductRepository) ListByBaseName(ctx context.Context, baseProductName string) ([]domain.ProductRecord, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("product repository not initialised")
	}
	baseProductName = strings.TrimSpace(baseProductName)
	if baseProductName == "" {
		return nil, errors.New("product repository: base product name is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return productListOrder(q.Where("baseProductName", "==", baseProductName))
	})
	if err != nil {
		return nil, err
	}
	records := make([]domain.ProductRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, decodeProductDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}
	return records, nil
}

// SaveProducts upserts all records in one transaction so a publish either
// lands completely or not at all.
func (r *ProductRepository) SaveProducts(ctx context.Context, records []domain.ProductRecord) error {
	if r == nil || r.base == nil || r.provider == nil {
		return errors.New("product repository not initialised")
	}
	if len(records) == 0 {
		return nil
	}

	refs := make([]*firestore.DocumentRef, 0, len(records))
	docs := make([]productDocument, 0, len(records))
	for _, record := range records {
		if strings.TrimSpace(record.ID) == "" {
			return errors.New("product repository: record id is required")
		}
		ref, err := r.base.DocumentRef(ctx, strings.TrimSpace(record.ID))
		if err != nil {
			return err
		}
		refs = append(refs, ref)
		docs = append(docs, encodeProductDocument(record))
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}
	return pfirestore.RunTransaction(ctx, client, func(_ context.Context, tx *firestore.Transaction) error {
		for i, ref := range refs {
			if err := tx.Set(ref, docs[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteProduct removes one product record.
func (r *ProductRepository) DeleteProduct(ctx context.Context, productID string) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return errors.New("product repository: product id is required")
	}
	ref, err := r.base.DocumentRef(ctx, productID)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return pfirestore.WrapError("products.delete", err)
	}
	return nil
}

// Watch streams the full record list to onChange on every snapshot until the
// returned cancel function is called or ctx is done.
func (r *ProductRepository) Watch(ctx context.Context, onChange func([]domain.ProductRecord)) (func(), error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("product repository not initialised")
	}
	if onChange == nil {
		return nil, errors.New("product repository: onChange callback is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	query := productListOrder(client.Collection(productsCollection).Query)
	snapshots := query.Snapshots(watchCtx)

	go func() {
		defer snapshots.Stop()
		for {
			snapshot, err := snapshots.Next()
			if err != nil {
				return
			}
			records, err := decodeProductSnapshot(snapshot)
			if err != nil {
				continue
			}
			onChange(records)
		}
	}()
	return cancel, nil
}

func decodeProductSnapshot(snapshot *firestore.QuerySnapshot) ([]domain.ProductRecord, error) {
	records := make([]domain.ProductRecord, 0)
	for {
		doc, err := snapshot.Documents.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var data productDocument
		if err := doc.DataTo(&data); err != nil {
			return nil, err
		}
		records = append(records, decodeProductDocument(doc.Ref.ID, data, doc.CreateTime, doc.UpdateTime))
	}
	return records, nil
}

func productListOrder(q firestore.Query) firestore.Query {
	return q.OrderBy("createdAt", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc)
}

type productDocument struct {
	Name            string     `firestore:"name"`
	BaseProductName string     `firestore:"baseProductName"`
	CategoryID      string     `firestore:"categoryId"`
	Color           string     `firestore:"color"`
	Hex             string     `firestore:"hex"`
	SKU             string     `firestore:"sku"`
	Price           *float64   `firestore:"price,omitempty"`
	WholesalePrice  *float64   `firestore:"wholesalePrice,omitempty"`
	MainImage       string     `firestore:"mainImage"`
	Description     string     `firestore:"description"`
	Material        string     `firestore:"material"`
	Dimensions      string     `firestore:"dimensions"`
	Images          []string   `firestore:"images"`
	SEOTitle        string     `firestore:"seoTitle"`
	SEODescription  string     `firestore:"seoDescription"`
	Keywords        []string   `firestore:"keywords"`
	CreatedAt       time.Time  `firestore:"createdAt"`
	UpdatedAt       time.Time  `firestore:"updatedAt"`
}

func encodeProductDocument(record domain.ProductRecord) productDocument {
	return productDocument{
		Name:            strings.TrimSpace(record.Name),
		BaseProductName: strings.TrimSpace(record.BaseProductName),
		CategoryID:      strings.TrimSpace(record.CategoryID),
		Color:           strings.TrimSpace(record.Color),
		Hex:             strings.TrimSpace(record.Hex),
		SKU:             strings.TrimSpace(record.SKU),
		Price:           copyFloat(record.Price),
		WholesalePrice:  copyFloat(record.WholesalePrice),
		MainImage:       strings.TrimSpace(record.MainImage),
		Description:     record.Description,
		Material:        strings.TrimSpace(record.Material),
		Dimensions:      strings.TrimSpace(record.Dimensions),
		Images:          copyStrings(record.Images),
		SEOTitle:        record.SEOTitle,
		SEODescription:  record.SEODescription,
		Keywords:        copyStrings(record.Keywords),
		CreatedAt:       record.CreatedAt.UTC(),
		UpdatedAt:       record.UpdatedAt.UTC(),
	}
}

func decodeProductDocument(id string, doc productDocument, createdAt, updatedAt time.Time) domain.ProductRecord {
	return domain.ProductRecord{
		ID:              strings.TrimSpace(id),
		Name:            strings.TrimSpace(doc.Name),
		BaseProductName: strings.TrimSpace(doc.BaseProductName),
		CategoryID:      strings.TrimSpace(doc.CategoryID),
		Color:           strings.TrimSpace(doc.Color),
		Hex:             strings.TrimSpace(doc.Hex),
		SKU:             strings.TrimSpace(doc.SKU),
		Price:           copyFloat(doc.Price),
		WholesalePrice:  copyFloat(doc.WholesalePrice),
		MainImage:       strings.TrimSpace(doc.MainImage),
		Description:     doc.Description,
		Material:        strings.TrimSpace(doc.Material),
		Dimensions:      strings.TrimSpace(doc.Dimensions),
		Images:          copyStrings(doc.Images),
		SEOTitle:        doc.SEOTitle,
		SEODescription:  doc.SEODescription,
		Keywords:        copyStrings(doc.Keywords),
		CreatedAt:       pickTime(doc.CreatedAt, createdAt),
		UpdatedAt:       pickTime(doc.UpdatedAt, updatedAt),
	}
}

func copyStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

func copyFloat(value *float64) *float64 {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func pickTime(primary, fallback time.Time) time.Time {
	if !primary.IsZero() {
		return primary.UTC()
	}
	if !fallback.IsZero() {
		return fallback.UTC()
	}
	return time.Time{}
}
