package services

import (
	"context"

	domain "github.com/ateliedecor/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	ProductDraft    = domain.ProductDraft
	Variant         = domain.Variant
	UnassignedImage = domain.UnassignedImage
	UploadedFile    = domain.UploadedFile
	CompletionItem  = domain.CompletionItem
	ProductRecord   = domain.ProductRecord
	CategoryRecord  = domain.CategoryRecord
	DisplayEntity   = domain.DisplayEntity

	SystemHealthReport = domain.SystemHealthReport
	SystemHealthCheck  = domain.SystemHealthCheck
)

// VariantPatch carries the optional field updates applied by UpdateVariant.
// Nil pointers leave the current value untouched.
type VariantPatch struct {
	Color          *string
	Hex            *string
	Images         *[]string
	RetailPrice    *float64
	WholesalePrice *float64
	SKU            *string
	SEOTitle       *string
	SEODescription *string
	Keywords       *[]string
}

// DraftService owns the product draft being authored. Every mutation is a
// named operation returning the resulting snapshot; operations are total and
// unknown ids degrade to no-ops so the draft is never left half-applied.
type DraftService interface {
	Current(ctx context.Context) ProductDraft
	SetBaseName(ctx context.Context, value string) ProductDraft
	SetCategoryID(ctx context.Context, value string) ProductDraft
	SetMaterial(ctx context.Context, value string) ProductDraft
	SetDimensions(ctx context.Context, value string) ProductDraft
	SetDescription(ctx context.Context, value string) ProductDraft
	SetVariants(ctx context.Context, variants []Variant) ProductDraft
	AddVariant(ctx context.Context, variant Variant) ProductDraft
	UpdateVariant(ctx context.Context, variantID string, patch VariantPatch) ProductDraft
	RemoveVariant(ctx context.Context, variantID string) ProductDraft
	AddImageToVariant(ctx context.Context, variantID, url string) ProductDraft
	SetStatus(ctx context.Context, status domain.DraftStatus) ProductDraft
	SetSEOTitle(ctx context.Context, value string) ProductDraft
	SetSEODescription(ctx context.Context, value string) ProductDraft
	SetKeywords(ctx context.Context, keywords []string) ProductDraft
	Completion(ctx context.Context) []CompletionItem
	LoadProduct(ctx context.Context, baseProductName string) (ProductDraft, error)
	Publish(ctx context.Context, cmd PublishDraftCommand) (PublishResult, error)
	Reset(ctx context.Context) ProductDraft
}

// PublishDraftCommand carries publish-time inputs beyond the draft itself.
type PublishDraftCommand struct {
	ActorID string
}

// PublishResult reports the persisted outcome of a successful publish.
type PublishResult struct {
	BaseProductName string
	ProductIDs      []string
}

// PublishValidationError aggregates the human-readable messages produced by
// the stricter publish-time validation. The draft is left untouched when it
// is returned.
type PublishValidationError struct {
	Messages []string
}

func (e *PublishValidationError) Error() string {
	if e == nil || len(e.Messages) == 0 {
		return "draft service: publish validation failed"
	}
	return "draft service: publish validation failed: " + e.Messages[0]
}

// VariantMatch pairs a variant with its color distance to a dominant color.
type VariantMatch struct {
	Variant  Variant
	Distance float64
}

// DominantColorExtractor quantizes decoded image bytes down to a single
// representative color. Implementations live in the platform layer.
type DominantColorExtractor interface {
	DominantColor(ctx context.Context, image []byte) (domain.RGB, error)
}

// ColorMatchService extracts dominant colors and finds the nearest variant
// color within the configured distance threshold.
type ColorMatchService interface {
	DominantColorHex(ctx context.Context, image []byte) (string, bool)
	NearestVariant(dominantHex string, variants []Variant) (VariantMatch, bool)
}

// BatchFile is one raw upload handed to the image assignment pipeline.
type BatchFile struct {
	Name string
	Data []byte
}

// BatchReport aggregates the terminal state of every file in one upload
// batch after both assignment passes have settled.
type BatchReport struct {
	AutoAssigned int
	Suggested    int
	Unassigned   int
	Redundant    int
	Failed       int
	Assignments  []BatchAssignment
	Pending      []UnassignedImage
}

// BatchAssignment records a single filename-pass auto assignment.
type BatchAssignment struct {
	FileID       string
	URL          string
	OriginalName string
	VariantID    string
	VariantColor string
	Redundant    bool
}

// ImageAssignmentService runs the two-pass classification over freshly
// uploaded photos and tracks the unassigned working set until images are
// manually placed or discarded.
type ImageAssignmentService interface {
	ProcessBatch(ctx context.Context, files []BatchFile) (BatchReport, error)
	Unassigned(ctx context.Context) []UnassignedImage
	AssignImage(ctx context.Context, imageID, variantID string) (AssignImageResult, error)
	DiscardImage(ctx context.Context, imageID string)
}

// AssignImageResult reports the outcome of a manual assignment.
type AssignImageResult struct {
	VariantID    string
	URL          string
	AlreadyOwned bool
}

// UploadTransport pushes raw file bytes to blob storage and reports back the
// transport-assigned identity per file.
type UploadTransport interface {
	Upload(ctx context.Context, originalName string, data []byte) (UploadedFile, error)
}

// CatalogService serves the persisted catalog: categories, flat product
// records, and the grouped display projection with live updates.
type CatalogService interface {
	ListCategories(ctx context.Context) ([]CategoryRecord, error)
	ListProducts(ctx context.Context) ([]ProductRecord, error)
	GroupedCatalog(ctx context.Context) ([]DisplayEntity, error)
	Subscribe(ctx context.Context, onUpdate func([]DisplayEntity)) (func(), error)
}

// CatalogEventPublisher emits catalog change notifications to interested
// consumers after a successful publish.
type CatalogEventPublisher interface {
	PublishCatalogUpdated(ctx context.Context, baseProductName string, productIDs []string) error
}

// TextSanitizer strips unwanted markup from free-text fields before they
// enter the draft.
type TextSanitizer interface {
	Sanitize(value string) string
}

// SystemService exposes operational health information for probes.
type SystemService interface {
	Health(ctx context.Context) (SystemHealthReport, error)
}
