package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/ateliedecor/api/internal/domain"
	"github.com/ateliedecor/api/internal/platform/httpx"
	"github.com/ateliedecor/api/internal/services"
)

const catalogCacheControl = "public, max-age=60"

// CatalogHandlers exposes the unauthenticated read side of the catalog.
type CatalogHandlers struct {
	catalog services.CatalogService
}

// CatalogOption customises construction of CatalogHandlers.
type CatalogOption func(*CatalogHandlers)

// WithCatalogService injects the catalog service dependency.
func WithCatalogService(svc services.CatalogService) CatalogOption {
	return func(h *CatalogHandlers) {
		h.catalog = svc
	}
}

// NewCatalogHandlers constructs the public catalog handler set.
func NewCatalogHandlers(opts ...CatalogOption) *CatalogHandlers {
	h := &CatalogHandlers{}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the public catalog endpoints.
func (h *CatalogHandlers) Routes(r chi.Router) {
	r.Get("/categories", h.listCategories)
	r.Get("/products", h.listProducts)
	r.Get("/grouped", h.groupedCatalog)
	r.Get("/stream", h.streamCatalog)
}

func (h *CatalogHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("catalog_list_failed", err.Error(), http.StatusInternalServerError))
		return
	}

	items := make([]categoryPayload, 0, len(categories))
	for _, category := range categories {
		items = append(items, categoryPayload{
			ID:    category.ID,
			Name:  category.Name,
			Order: category.Order,
		})
	}

	w.Header().Set("Cache-Control", catalogCacheControl)
	writeJSON(w, http.StatusOK, categoryListResponse{Categories: items})
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("catalog_list_failed", err.Error(), http.StatusInternalServerError))
		return
	}

	items := make([]productPayload, 0, len(products))
	for _, product := range products {
		items = append(items, newProductPayload(product))
	}

	w.Header().Set("Cache-Control", catalogCacheControl)
	writeJSON(w, http.StatusOK, productListResponse{Products: items})
}

func (h *CatalogHandlers) groupedCatalog(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	entities, err := h.catalog.GroupedCatalog(r.Context())
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("catalog_list_failed", err.Error(), http.StatusInternalServerError))
		return
	}

	w.Header().Set("Cache-Control", catalogCacheControl)
	writeJSON(w, http.StatusOK, groupedCatalogResponse{Entities: newDisplayEntityPayloads(entities)})
}

// streamCatalog pushes the grouped catalog over server-sent events. The
// initial snapshot arrives as the first event; subsequent events follow
// remote changes until the client disconnects.
func (h *CatalogHandlers) streamCatalog(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("catalog_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("streaming_unsupported", "response writer does not support streaming", http.StatusInternalServerError))
		return
	}

	// Single producer: the subscription callback runs on one goroutine, so
	// dropping the stale snapshot before re-sending is race free.
	updates := make(chan []domain.DisplayEntity, 1)
	cancel, err := h.catalog.Subscribe(r.Context(), func(entities []domain.DisplayEntity) {
		select {
		case updates <- entities:
		default:
			select {
			case <-updates:
			default:
			}
			updates <- entities
		}
	})
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("catalog_stream_failed", err.Error(), http.StatusInternalServerError))
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case entities := <-updates:
			data, err := json.Marshal(groupedCatalogResponse{Entities: newDisplayEntityPayloads(entities)})
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: catalog\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

type categoryListResponse struct {
	Categories []categoryPayload `json:"categories"`
}

type categoryPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type productListResponse struct {
	Products []productPayload `json:"products"`
}

type productPayload struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	BaseProductName string   `json:"base_product_name,omitempty"`
	CategoryID      string   `json:"category_id,omitempty"`
	Color           string   `json:"color,omitempty"`
	Hex             string   `json:"hex,omitempty"`
	SKU             string   `json:"sku,omitempty"`
	Price           *float64 `json:"price,omitempty"`
	MainImage       string   `json:"main_image,omitempty"`
	Description     string   `json:"description,omitempty"`
	Material        string   `json:"material,omitempty"`
	Dimensions      string   `json:"dimensions,omitempty"`
	Images          []string `json:"images,omitempty"`
	SEOTitle        string   `json:"seo_title,omitempty"`
	SEODescription  string   `json:"seo_description,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	CreatedAt       string   `json:"created_at,omitempty"`
	UpdatedAt       string   `json:"updated_at,omitempty"`
}

type groupedCatalogResponse struct {
	Entities []displayEntityPayload `json:"entities"`
}

type displayEntityPayload struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	CategoryID  string           `json:"category_id,omitempty"`
	Price       *float64         `json:"price,omitempty"`
	MainImage   string           `json:"main_image,omitempty"`
	Description string           `json:"description,omitempty"`
	Images      []string         `json:"images,omitempty"`
	Variants    []productPayload `json:"variants,omitempty"`
	IsGrouped   bool             `json:"is_grouped"`
}

func newProductPayload(record domain.ProductRecord) productPayload {
	return productPayload{
		ID:              record.ID,
		Name:            record.Name,
		BaseProductName: record.BaseProductName,
		CategoryID:      record.CategoryID,
		Color:           record.Color,
		Hex:             record.Hex,
		SKU:             record.SKU,
		Price:           record.Price,
		MainImage:       record.MainImage,
		Description:     record.Description,
		Material:        record.Material,
		Dimensions:      record.Dimensions,
		Images:          copyStringSlice(record.Images),
		SEOTitle:        record.SEOTitle,
		SEODescription:  record.SEODescription,
		Keywords:        copyStringSlice(record.Keywords),
		CreatedAt:       formatTimestamp(record.CreatedAt),
		UpdatedAt:       formatTimestamp(record.UpdatedAt),
	}
}

func newDisplayEntityPayloads(entities []domain.DisplayEntity) []displayEntityPayload {
	payloads := make([]displayEntityPayload, 0, len(entities))
	for _, entity := range entities {
		variants := make([]productPayload, 0, len(entity.Variants))
		for _, variant := range entity.Variants {
			variants = append(variants, newProductPayload(variant))
		}
		payloads = append(payloads, displayEntityPayload{
			ID:          entity.ID,
			Name:        entity.Name,
			CategoryID:  entity.CategoryID,
			Price:       entity.Price,
			MainImage:   entity.MainImage,
			Description: entity.Description,
			Images:      copyStringSlice(entity.Images),
			Variants:    variants,
			IsGrouped:   entity.IsGrouped,
		})
	}
	return payloads
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

func copyStringSlice(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
