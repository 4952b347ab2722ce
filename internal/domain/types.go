package domain

import (
	"time"
)

// DraftStatus describes the lifecycle state of a product draft.
type DraftStatus string

const (
	// DraftStatusDraft indicates the product is still being authored.
	DraftStatusDraft DraftStatus = "draft"
	// DraftStatusPublished indicates the product has been persisted to the catalog.
	DraftStatusPublished DraftStatus = "published"
)

// Variant is one color-specific instance of a product under authoring.
type Variant struct {
	ID             string
	Color          string
	Hex            string
	Images         []string
	RetailPrice    float64
	WholesalePrice float64
	SKU            string
	SEOTitle       string
	SEODescription string
	Keywords       []string
}

// ProductDraft is the mutable representation of a product being authored.
// All mutation flows through the draft service's named operations; readers
// only ever observe complete snapshots.
type ProductDraft struct {
	BaseName       string
	CategoryID     string
	Material       string
	Dimensions     string
	Description    string
	Variants       []Variant
	SEOTitle       string
	SEODescription string
	Keywords       []string
	Status         DraftStatus
	UpdatedAt      time.Time
}

// UnassignedImage is an uploaded photograph not yet bound to a variant.
// It lives only in working memory and is never persisted on its own.
type UnassignedImage struct {
	ID                    string
	URL                   string
	OriginalName          string
	DominantColor         string
	SuggestedVariantID    string
	SuggestedVariantColor string
	Error                 string
}

// UploadedFile is the result handed back by the upload transport per file.
type UploadedFile struct {
	FileID       string
	URL          string
	OriginalName string
}

// CompletionItem is one entry of the draft completion checklist.
type CompletionItem struct {
	Label     string
	Completed bool
}

// ProductRecord is a persisted catalog product as stored remotely, one
// record per published color variant.
type ProductRecord struct {
	ID              string
	Name            string
	BaseProductName string
	CategoryID      string
	Color           string
	Hex             string
	SKU             string
	Price           *float64
	WholesalePrice  *float64
	MainImage       string
	Description     string
	Material        string
	Dimensions      string
	Images          []string
	SEOTitle        string
	SEODescription  string
	Keywords        []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CategoryRecord is a persisted catalog category.
type CategoryRecord struct {
	ID    string
	Name  string
	Order int
}

// DisplayEntity is the read-only catalog projection produced by grouping
// product records that share a base product name. Ungrouped records pass
// through with IsGrouped false and an empty Variants slice.
type DisplayEntity struct {
	ID          string
	Name        string
	CategoryID  string
	Price       *float64
	MainImage   string
	Description string
	Images      []string
	Variants    []ProductRecord
	IsGrouped   bool
}
