package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/ateliedecor/api/internal/domain"
	"github.com/ateliedecor/api/internal/platform/textutil"
	"github.com/ateliedecor/api/internal/repositories"
)

const (
	variantIDPrefix = "var_"
	productIDPrefix = "prd_"

	draftLoggerEventPublished = "draft.published"
	draftLoggerEventLoaded    = "draft.loaded"
)

var (
	// ErrDraftRepositoryMissing indicates the product repository dependency is absent.
	ErrDraftRepositoryMissing = errors.New("draft service: product repository is not configured")
	// ErrDraftProductNotFound indicates no persisted records exist for the requested base product.
	ErrDraftProductNotFound = errors.New("draft service: product not found")
)

// DraftServiceDeps bundles constructor inputs for the draft service.
type DraftServiceDeps struct {
	Products    repositories.ProductRepository
	Events      CatalogEventPublisher
	Sanitizer   TextSanitizer
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type draftService struct {
	products  repositories.ProductRepository
	events    CatalogEventPublisher
	sanitizer TextSanitizer
	clock     func() time.Time
	idgen     func() string
	logger    func(ctx context.Context, event string, fields map[string]any)

	mu    sync.Mutex
	draft domain.ProductDraft
}

// NewDraftService constructs the draft service with the supplied dependencies.
// The repository and publisher may be nil for a purely local authoring session;
// Publish then fails with ErrDraftRepositoryMissing.
func NewDraftService(deps DraftServiceDeps) (DraftService, error) {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idgen := deps.IDGenerator
	if idgen == nil {
		idgen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &draftService{
		products:  deps.Products,
		events:    deps.Events,
		sanitizer: deps.Sanitizer,
		clock:     func() time.Time { return clock().UTC() },
		idgen:     idgen,
		logger:    logger,
		draft:     emptyDraft(),
	}, nil
}

func emptyDraft() domain.ProductDraft {
	return domain.ProductDraft{Status: domain.DraftStatusDraft}
}

func (s *draftService) Current(ctx context.Context) ProductDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneDraft(s.draft)
}

func (s *draftService) SetBaseName(ctx context.Context, value string) ProductDraft {
	return s.mutate(func(d *domain.ProductDraft) {
		d.BaseName = strings.TrimSpace(value)
	})
}

func (s *draftService) SetCategoryID(ctx context.Context, value string) ProductDraft {
	return s.mutate(func(d *domain.ProductDraft) {
		d.CategoryID = strings.TrimSpace(value)
	})
}

func (s *draftService) SetMaterial(ctx context.Context, value string) ProductDraft {
	return s.mutate(func(d *domain.ProductDraft) {
		d.Material = strings.TrimSpace(value)
	})
}

func (s *draftService) SetDimensions(ctx context.Context, value string) ProductDraft {
	return s.mutate(func(d *domain.ProductDraft) {
		d.Dimensions = normalizeDimensionText(value)
	})
}

func (s *draftService) SetDescription(ctx context.Context, value string) ProductDraft {
	return s.mutate(func(d *domain.ProductDraft) {
		d.Description = s.sanitize(value)
	})
}

func (s *draftService) SetVariants(ctx context.Context, variants []Variant) ProductDraft {
	return s.mutate(func(d *domain.ProductDraft) {
		replaced := make([]domain.Variant, 0, len(variants))
		seen := make(map[string]struct{}, len(variants))
		for _, variant := range variants {
			key := textutil.FoldForMatch(variant.Color)
			if key != "" {
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
			}
			if strings.TrimSpace(variant.ID) == "" {
				variant.ID = variantIDPrefix + s.idgen()
			}
			replaced = append(replaced, cloneVariant(variant))
		}
		d.Variants = replaced
	})
}

func (s *draftService) AddVariant(ctx context.Context, variant Variant) ProductDraft {
	return s.mutate(func(d *domain.ProductDraft) {
		key := textutil.FoldForMatch(variant.Color)
		for _, existing := range d.Variants {
			if key != "" && textutil.FoldForMatch(existing.Color) == key {
				// Duplicate color selection is benign; the existing variant stays.
				return
			}
		}
		if strings.TrimSpace(variant.ID) == "" {
			variant.ID = variantIDPrefix + s.idgen()
		}
		if strings.TrimSpace(variant.SKU) == "" {
			variant.SKU = domain.GenerateSKU(d.BaseName, variant.Color)
		}
		d.Variants = append(d.Variants, cloneVariant(variant))
	})
}

func (s *draftService) UpdateVariant(ctx context.Context, variantID string, patch VariantPatch) ProductDraft {
	return s.mutate(func(d *domain.ProductDraft) {
		index := findVariant(d.Variants, variantID)
		if index < 0 {
			return
		}
		variant := &d.Variants[index]
		if patch.Color != nil {
			next := strings.TrimSpace(*patch.Color)
			if !colorTaken(d.Variants, index, next) {
				variant.Color = next
			}
		}
		if patch.Hex != nil {
			variant.Hex = strings.TrimSpace(*patch.Hex)
		}
		if patch.Images != nil {
			variant.Images = append([]string(nil), (*patch.Images)...)
		}
		if patch.RetailPrice != nil {
			variant.RetailPrice = *patch.RetailPrice
		}
		if patch.WholesalePrice != nil {
			variant.WholesalePrice = *patch.WholesalePrice
		}
		if patch.SKU != nil {
			variant.SKU = strings.TrimSpace(*patch.SKU)
		}
		if patch.SEOTitle != nil {
			variant.SEOTitle = s.sanitize(*patch.SEOTitle)
		}
		if patch.SEODescription != nil {
			variant.SEODescription = s.sanitize(*patch.SEODescription)
		}
		if patch.Keywords != nil {
			variant.Keywords = normalizeKeywords(*patch.Keywords)
		}
	})
}

func (s *draftService) RemoveVariant(ctx context.Context, variantID string) ProductDraft {
	return s.mutate(func(d *domain.ProductDraft) {
		index := findVariant(d.Variants, variantID)
		if index < 0 {
			return
		}
		d.Variants = append(d.Variants[:index], d.Variants[index+1:]...)
	})
}

func (s *draftService) AddImageToVariant(ctx context.Context, variantID, url string) ProductDraft {
	return s.mutate(func(d *domain.ProductDraft) {
		url = strings.TrimSpace(url)
		if url == "" {
			return
		}
		index := findVariant(d.Variants, variantID)
		if index < 0 {
			return
		}
		for _, existing := range d.Variants[index].Images {
			if existing == url {
				return
			}
		}
		d.Variants[index].Images = append(d.Variants[index].Images, url)
	})
}

func (s *draftService) SetStatus(ctx context.Context, status domain.DraftStatus) ProductDraft {
	return s.mutate(func(d *domain.ProductDraft) {
		switch status {
		case domain.DraftStatusDraft, domain.DraftStatusPublished:
			d.Status = status
		}
	})
}

func (s *draftService) SetSEOTitle(ctx context.Context, value string) ProductDraft {
	return s.mutate(func(d *domain.ProductDraft) {
		d.SEOTitle = s.sanitize(value)
	})
}

func (s *draftService) SetSEODescription(ctx context.Context, value string) ProductDraft {
	return s.mutate(func(d *domain.ProductDraft) {
		d.SEODescription = s.sanitize(value)
	})
}

func (s *draftService) SetKeywords(ctx context.Context, keywords []string) ProductDraft {
	return s.mutate(func(d *domain.ProductDraft) {
		d.Keywords = normalizeKeywords(keywords)
	})
}

func (s *draftService) Completion(ctx context.Context) []CompletionItem {
	s.mu.Lock()
	draft := cloneDraft(s.draft)
	s.mu.Unlock()
	return EvaluateCompletion(draft)
}

func (s *draftService) LoadProduct(ctx context.Context, baseProductName string) (ProductDraft, error) {
	if s.products == nil {
		return ProductDraft{}, ErrDraftRepositoryMissing
	}
	baseProductName = strings.TrimSpace(baseProductName)
	if baseProductName == "" {
		return ProductDraft{}, fmt.Errorf("%w: base product name is required", ErrDraftProductNotFound)
	}
	records, err := s.products.ListByBaseName(ctx, baseProductName)
	if err != nil {
		return ProductDraft{}, err
	}
	if len(records) == 0 {
		return ProductDraft{}, fmt.Errorf("%w: %s", ErrDraftProductNotFound, baseProductName)
	}

	draft := draftFromRecords(baseProductName, records)
	draft.UpdatedAt = s.clock()

	s.mu.Lock()
	s.draft = draft
	snapshot := cloneDraft(s.draft)
	s.mu.Unlock()

	s.logger(ctx, draftLoggerEventLoaded, map[string]any{
		"baseProductName": baseProductName,
		"variants":        len(snapshot.Variants),
	})
	return snapshot, nil
}

func (s *draftService) Publish(ctx context.Context, cmd PublishDraftCommand) (PublishResult, error) {
	if s.products == nil {
		return PublishResult{}, ErrDraftRepositoryMissing
	}

	s.mu.Lock()
	draft := cloneDraft(s.draft)
	s.mu.Unlock()

	if messages := validateForPublish(draft); len(messages) > 0 {
		return PublishResult{}, &PublishValidationError{Messages: messages}
	}

	now := s.clock()
	records := make([]domain.ProductRecord, 0, len(draft.Variants))
	ids := make([]string, 0, len(draft.Variants))
	for _, variant := range draft.Variants {
		record := recordFromVariant(draft, variant, now)
		if record.ID == "" {
			record.ID = productIDPrefix + s.idgen()
		}
		records = append(records, record)
		ids = append(ids, record.ID)
	}

	if err := s.products.SaveProducts(ctx, records); err != nil {
		return PublishResult{}, err
	}

	if s.events != nil {
		if err := s.events.PublishCatalogUpdated(ctx, draft.BaseName, ids); err != nil {
			s.logger(ctx, "draft.publish.event_failed", map[string]any{"error": err.Error()})
		}
	}

	s.mu.Lock()
	s.draft = emptyDraft()
	s.mu.Unlock()

	s.logger(ctx, draftLoggerEventPublished, map[string]any{
		"baseProductName": draft.BaseName,
		"products":        len(ids),
		"actorId":         strings.TrimSpace(cmd.ActorID),
	})
	return PublishResult{BaseProductName: draft.BaseName, ProductIDs: ids}, nil
}

func (s *draftService) Reset(ctx context.Context) ProductDraft {
	s.mu.Lock()
	s.draft = emptyDraft()
	snapshot := cloneDraft(s.draft)
	s.mu.Unlock()
	return snapshot
}

func (s *draftService) mutate(apply func(*domain.ProductDraft)) ProductDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := cloneDraft(s.draft)
	apply(&next)
	if !reflect.DeepEqual(next, s.draft) {
		next.UpdatedAt = s.clock()
		s.draft = next
	}
	return cloneDraft(s.draft)
}

func (s *draftService) sanitize(value string) string {
	value = strings.TrimSpace(value)
	if s.sanitizer == nil {
		return value
	}
	return strings.TrimSpace(s.sanitizer.Sanitize(value))
}

func validateForPublish(draft domain.ProductDraft) []string {
	var messages []string
	if strings.TrimSpace(draft.BaseName) == "" {
		messages = append(messages, "informe o nome do produto")
	}
	if strings.TrimSpace(draft.CategoryID) == "" {
		messages = append(messages, "selecione uma categoria")
	}
	if len(draft.Variants) == 0 {
		messages = append(messages, "adicione pelo menos uma cor")
	}
	for _, variant := range draft.Variants {
		label := strings.TrimSpace(variant.Color)
		if label == "" {
			label = variant.ID
		}
		if len(variant.Images) == 0 {
			messages = append(messages, fmt.Sprintf("a cor %s precisa de pelo menos uma foto", label))
		}
		if variant.RetailPrice < 0 || variant.WholesalePrice < 0 {
			messages = append(messages, fmt.Sprintf("a cor %s tem preço negativo", label))
		}
		if !domain.IsValidHexColor(variant.Hex) {
			messages = append(messages, fmt.Sprintf("a cor %s tem código hexadecimal inválido", label))
		}
	}
	if strings.TrimSpace(draft.SEOTitle) == "" {
		messages = append(messages, "informe o título SEO")
	}
	if strings.TrimSpace(draft.SEODescription) == "" {
		messages = append(messages, "informe a descrição SEO")
	}
	return messages
}

func recordFromVariant(draft domain.ProductDraft, variant domain.Variant, now time.Time) domain.ProductRecord {
	name := strings.TrimSpace(draft.BaseName)
	if color := strings.TrimSpace(variant.Color); color != "" {
		name = strings.TrimSpace(name + " " + color)
	}
	price := variant.RetailPrice
	wholesale := variant.WholesalePrice
	record := domain.ProductRecord{
		Name:            name,
		BaseProductName: draft.BaseName,
		CategoryID:      draft.CategoryID,
		Color:           variant.Color,
		Hex:             variant.Hex,
		SKU:             variant.SKU,
		Price:           &price,
		WholesalePrice:  &wholesale,
		Description:     draft.Description,
		Material:        draft.Material,
		Dimensions:      draft.Dimensions,
		Images:          append([]string(nil), variant.Images...),
		SEOTitle:        firstNonBlank(variant.SEOTitle, draft.SEOTitle),
		SEODescription:  firstNonBlank(variant.SEODescription, draft.SEODescription),
		Keywords:        mergeKeywords(draft.Keywords, variant.Keywords),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if len(variant.Images) > 0 {
		record.MainImage = variant.Images[0]
	}
	if persisted := persistedRecordID(variant.ID); persisted != "" {
		record.ID = persisted
	}
	return record
}

func draftFromRecords(baseProductName string, records []domain.ProductRecord) domain.ProductDraft {
	first := records[0]
	draft := domain.ProductDraft{
		BaseName:       baseProductName,
		CategoryID:     first.CategoryID,
		Material:       first.Material,
		Dimensions:     first.Dimensions,
		Description:    first.Description,
		SEOTitle:       first.SEOTitle,
		SEODescription: first.SEODescription,
		Keywords:       append([]string(nil), first.Keywords...),
		Status:         domain.DraftStatusDraft,
	}
	for _, record := range records {
		variant := domain.Variant{
			ID:             record.ID,
			Color:          record.Color,
			Hex:            record.Hex,
			Images:         append([]string(nil), record.Images...),
			SKU:            record.SKU,
			SEOTitle:       record.SEOTitle,
			SEODescription: record.SEODescription,
			Keywords:       append([]string(nil), record.Keywords...),
		}
		if record.Price != nil {
			variant.RetailPrice = *record.Price
		}
		if record.WholesalePrice != nil {
			variant.WholesalePrice = *record.WholesalePrice
		}
		draft.Variants = append(draft.Variants, variant)
	}
	return draft
}

// persistedRecordID reports the id to reuse when republishing an edited
// product; freshly generated variant ids are not database ids yet.
func persistedRecordID(variantID string) string {
	variantID = strings.TrimSpace(variantID)
	if variantID == "" || strings.HasPrefix(variantID, variantIDPrefix) {
		return ""
	}
	return variantID
}

func normalizeDimensionText(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	dims := domain.ParseDimensions(value)
	if dims.IsZero() {
		return value
	}
	return dims.String()
}

func normalizeKeywords(keywords []string) []string {
	if len(keywords) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(keywords))
	var result []string
	for _, keyword := range keywords {
		trimmed := strings.TrimSpace(keyword)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

func mergeKeywords(base, extra []string) []string {
	return normalizeKeywords(append(append([]string(nil), base...), extra...))
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func colorTaken(variants []domain.Variant, selfIndex int, color string) bool {
	key := textutil.FoldForMatch(color)
	if key == "" {
		return false
	}
	for i, variant := range variants {
		if i == selfIndex {
			continue
		}
		if textutil.FoldForMatch(variant.Color) == key {
			return true
		}
	}
	return false
}

func findVariant(variants []domain.Variant, variantID string) int {
	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		return -1
	}
	for i, variant := range variants {
		if variant.ID == variantID {
			return i
		}
	}
	return -1
}

func cloneDraft(draft domain.ProductDraft) domain.ProductDraft {
	clone := draft
	clone.Keywords = append([]string(nil), draft.Keywords...)
	if draft.Variants != nil {
		clone.Variants = make([]domain.Variant, len(draft.Variants))
		for i, variant := range draft.Variants {
			clone.Variants[i] = cloneVariant(variant)
		}
	}
	return clone
}

func cloneVariant(variant domain.Variant) domain.Variant {
	clone := variant
	clone.Images = append([]string(nil), variant.Images...)
	clone.Keywords = append([]string(nil), variant.Keywords...)
	return clone
}
