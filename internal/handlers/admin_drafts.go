package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/ateliedecor/api/internal/domain"
	"github.com/ateliedecor/api/internal/platform/auth"
	"github.com/ateliedecor/api/internal/platform/httpx"
	"github.com/ateliedecor/api/internal/services"
)

const maxDraftRequestBody = 256 * 1024

// AdminDraftHandlers exposes the product draft authoring endpoints.
type AdminDraftHandlers struct {
	authn  *auth.Authenticator
	drafts services.DraftService
}

// NewAdminDraftHandlers constructs the admin draft handler set.
func NewAdminDraftHandlers(authn *auth.Authenticator, drafts services.DraftService) *AdminDraftHandlers {
	return &AdminDraftHandlers{authn: authn, drafts: drafts}
}

// Routes registers the draft authoring endpoints.
func (h *AdminDraftHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin))
	}
	r.Route("/draft", func(rt chi.Router) {
		rt.Get("/", h.currentDraft)
		rt.Get("/completion", h.completion)
		rt.Put("/base-name", h.setField((services.DraftService).SetBaseName))
		rt.Put("/category", h.setField((services.DraftService).SetCategoryID))
		rt.Put("/material", h.setField((services.DraftService).SetMaterial))
		rt.Put("/dimensions", h.setField((services.DraftService).SetDimensions))
		rt.Put("/description", h.setField((services.DraftService).SetDescription))
		rt.Put("/seo-title", h.setField((services.DraftService).SetSEOTitle))
		rt.Put("/seo-description", h.setField((services.DraftService).SetSEODescription))
		rt.Put("/keywords", h.setKeywords)
		rt.Put("/status", h.setStatus)
		rt.Put("/variants", h.setVariants)
		rt.Post("/variants", h.addVariant)
		rt.Patch("/variants/{variantID}", h.updateVariant)
		rt.Delete("/variants/{variantID}", h.removeVariant)
		rt.Post("/variants/{variantID}/images", h.addVariantImage)
		rt.Post("/load", h.loadProduct)
		rt.Post("/publish", h.publish)
		rt.Post("/reset", h.reset)
	})
}

func (h *AdminDraftHandlers) currentDraft(w http.ResponseWriter, r *http.Request) {
	if h.drafts == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("service_unavailable", "draft service unavailable", http.StatusServiceUnavailable))
		return
	}
	writeJSON(w, http.StatusOK, newDraftPayload(h.drafts.Current(r.Context())))
}

func (h *AdminDraftHandlers) completion(w http.ResponseWriter, r *http.Request) {
	if h.drafts == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("service_unavailable", "draft service unavailable", http.StatusServiceUnavailable))
		return
	}

	items := h.drafts.Completion(r.Context())
	payload := make([]completionItemPayload, 0, len(items))
	completed := 0
	for _, item := range items {
		if item.Completed {
			completed++
		}
		payload = append(payload, completionItemPayload{Label: item.Label, Completed: item.Completed})
	}

	writeJSON(w, http.StatusOK, completionResponse{
		Items:     payload,
		Completed: completed,
		Total:     len(payload),
	})
}

// setField adapts a single-value draft mutation into an HTTP handler. Every
// field endpoint shares the {"value": ...} request shape.
func (h *AdminDraftHandlers) setField(apply func(services.DraftService, context.Context, string) services.ProductDraft) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if h.drafts == nil {
			httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "draft service unavailable", http.StatusServiceUnavailable))
			return
		}

		var payload struct {
			Value string `json:"value"`
		}
		if err := decodeJSONBody(r, &payload); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return
		}

		writeJSON(w, http.StatusOK, newDraftPayload(apply(h.drafts, ctx, payload.Value)))
	}
}

func (h *AdminDraftHandlers) setKeywords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.drafts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "draft service unavailable", http.StatusServiceUnavailable))
		return
	}

	var payload struct {
		Keywords []string `json:"keywords"`
	}
	if err := decodeJSONBody(r, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	writeJSON(w, http.StatusOK, newDraftPayload(h.drafts.SetKeywords(ctx, payload.Keywords)))
}

func (h *AdminDraftHandlers) setStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.drafts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "draft service unavailable", http.StatusServiceUnavailable))
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSONBody(r, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	status := domain.DraftStatus(strings.TrimSpace(payload.Status))
	switch status {
	case domain.DraftStatusDraft, domain.DraftStatusPublished:
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_status", fmt.Sprintf("unknown draft status %q", payload.Status), http.StatusBadRequest))
		return
	}

	writeJSON(w, http.StatusOK, newDraftPayload(h.drafts.SetStatus(ctx, status)))
}

func (h *AdminDraftHandlers) setVariants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.drafts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "draft service unavailable", http.StatusServiceUnavailable))
		return
	}

	var payload struct {
		Variants []variantRequest `json:"variants"`
	}
	if err := decodeJSONBody(r, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	variants := make([]services.Variant, 0, len(payload.Variants))
	for _, req := range payload.Variants {
		variants = append(variants, req.toVariant())
	}

	writeJSON(w, http.StatusOK, newDraftPayload(h.drafts.SetVariants(ctx, variants)))
}

func (h *AdminDraftHandlers) addVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.drafts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "draft service unavailable", http.StatusServiceUnavailable))
		return
	}

	var payload variantRequest
	if err := decodeJSONBody(r, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	writeJSON(w, http.StatusCreated, newDraftPayload(h.drafts.AddVariant(ctx, payload.toVariant())))
}

func (h *AdminDraftHandlers) updateVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.drafts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "draft service unavailable", http.StatusServiceUnavailable))
		return
	}

	variantID := strings.TrimSpace(chi.URLParam(r, "variantID"))
	if variantID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_variant_id", "variant id is required", http.StatusBadRequest))
		return
	}

	var payload variantPatchRequest
	if err := decodeJSONBody(r, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	writeJSON(w, http.StatusOK, newDraftPayload(h.drafts.UpdateVariant(ctx, variantID, payload.toPatch())))
}

func (h *AdminDraftHandlers) removeVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.drafts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "draft service unavailable", http.StatusServiceUnavailable))
		return
	}

	variantID := strings.TrimSpace(chi.URLParam(r, "variantID"))
	if variantID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_variant_id", "variant id is required", http.StatusBadRequest))
		return
	}

	writeJSON(w, http.StatusOK, newDraftPayload(h.drafts.RemoveVariant(ctx, variantID)))
}

func (h *AdminDraftHandlers) addVariantImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.drafts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "draft service unavailable", http.StatusServiceUnavailable))
		return
	}

	variantID := strings.TrimSpace(chi.URLParam(r, "variantID"))
	if variantID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_variant_id", "variant id is required", http.StatusBadRequest))
		return
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := decodeJSONBody(r, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(payload.URL) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "image url is required", http.StatusBadRequest))
		return
	}

	writeJSON(w, http.StatusOK, newDraftPayload(h.drafts.AddImageToVariant(ctx, variantID, payload.URL)))
}

func (h *AdminDraftHandlers) loadProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.drafts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "draft service unavailable", http.StatusServiceUnavailable))
		return
	}

	var payload struct {
		BaseProductName string `json:"base_product_name"`
	}
	if err := decodeJSONBody(r, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(payload.BaseProductName) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "base product name is required", http.StatusBadRequest))
		return
	}

	draft, err := h.drafts.LoadProduct(ctx, payload.BaseProductName)
	if err != nil {
		if errors.Is(err, services.ErrDraftProductNotFound) {
			httpx.WriteError(ctx, w, httpx.NewError("product_not_found", fmt.Sprintf("no products named %q", payload.BaseProductName), http.StatusNotFound))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("draft_load_failed", err.Error(), http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, newDraftPayload(draft))
}

func (h *AdminDraftHandlers) publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.drafts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "draft service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	actorID := ""
	if ok && identity != nil {
		actorID = identity.UID
	}

	result, err := h.drafts.Publish(ctx, services.PublishDraftCommand{ActorID: actorID})
	if err != nil {
		var validation *services.PublishValidationError
		if errors.As(err, &validation) {
			httpx.WriteError(ctx, w, httpx.NewError("draft_incomplete", "draft is not ready to publish", http.StatusUnprocessableEntity).
				WithDetails(map[string]any{"messages": validation.Messages}))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("publish_failed", err.Error(), http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, publishResponse{
		BaseProductName: result.BaseProductName,
		ProductIDs:      copyStringSlice(result.ProductIDs),
	})
}

func (h *AdminDraftHandlers) reset(w http.ResponseWriter, r *http.Request) {
	if h.drafts == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("service_unavailable", "draft service unavailable", http.StatusServiceUnavailable))
		return
	}
	writeJSON(w, http.StatusOK, newDraftPayload(h.drafts.Reset(r.Context())))
}

func decodeJSONBody(r *http.Request, dst any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxDraftRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

type variantRequest struct {
	ID             string   `json:"id,omitempty"`
	Color          string   `json:"color"`
	Hex            string   `json:"hex,omitempty"`
	Images         []string `json:"images,omitempty"`
	RetailPrice    float64  `json:"retail_price,omitempty"`
	WholesalePrice float64  `json:"wholesale_price,omitempty"`
	SKU            string   `json:"sku,omitempty"`
	SEOTitle       string   `json:"seo_title,omitempty"`
	SEODescription string   `json:"seo_description,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
}

func (req variantRequest) toVariant() services.Variant {
	return services.Variant{
		ID:             req.ID,
		Color:          req.Color,
		Hex:            req.Hex,
		Images:         copyStringSlice(req.Images),
		RetailPrice:    req.RetailPrice,
		WholesalePrice: req.WholesalePrice,
		SKU:            req.SKU,
		SEOTitle:       req.SEOTitle,
		SEODescription: req.SEODescription,
		Keywords:       copyStringSlice(req.Keywords),
	}
}

type variantPatchRequest struct {
	Color          *string   `json:"color,omitempty"`
	Hex            *string   `json:"hex,omitempty"`
	Images         *[]string `json:"images,omitempty"`
	RetailPrice    *float64  `json:"retail_price,omitempty"`
	WholesalePrice *float64  `json:"wholesale_price,omitempty"`
	SKU            *string   `json:"sku,omitempty"`
	SEOTitle       *string   `json:"seo_title,omitempty"`
	SEODescription *string   `json:"seo_description,omitempty"`
	Keywords       *[]string `json:"keywords,omitempty"`
}

func (req variantPatchRequest) toPatch() services.VariantPatch {
	return services.VariantPatch{
		Color:          req.Color,
		Hex:            req.Hex,
		Images:         req.Images,
		RetailPrice:    req.RetailPrice,
		WholesalePrice: req.WholesalePrice,
		SKU:            req.SKU,
		SEOTitle:       req.SEOTitle,
		SEODescription: req.SEODescription,
		Keywords:       req.Keywords,
	}
}

type draftPayload struct {
	BaseName       string           `json:"base_name"`
	CategoryID     string           `json:"category_id,omitempty"`
	Material       string           `json:"material,omitempty"`
	Dimensions     string           `json:"dimensions,omitempty"`
	Description    string           `json:"description,omitempty"`
	Variants       []variantPayload `json:"variants"`
	SEOTitle       string           `json:"seo_title,omitempty"`
	SEODescription string           `json:"seo_description,omitempty"`
	Keywords       []string         `json:"keywords,omitempty"`
	Status         string           `json:"status"`
	UpdatedAt      string           `json:"updated_at,omitempty"`
}

type variantPayload struct {
	ID             string   `json:"id"`
	Color          string   `json:"color"`
	Hex            string   `json:"hex,omitempty"`
	Images         []string `json:"images,omitempty"`
	RetailPrice    float64  `json:"retail_price,omitempty"`
	WholesalePrice float64  `json:"wholesale_price,omitempty"`
	SKU            string   `json:"sku,omitempty"`
	SEOTitle       string   `json:"seo_title,omitempty"`
	SEODescription string   `json:"seo_description,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
}

type completionResponse struct {
	Items     []completionItemPayload `json:"items"`
	Completed int                     `json:"completed"`
	Total     int                     `json:"total"`
}

type completionItemPayload struct {
	Label     string `json:"label"`
	Completed bool   `json:"completed"`
}

type publishResponse struct {
	BaseProductName string   `json:"base_product_name"`
	ProductIDs      []string `json:"product_ids"`
}

func newDraftPayload(draft domain.ProductDraft) draftPayload {
	variants := make([]variantPayload, 0, len(draft.Variants))
	for _, variant := range draft.Variants {
		variants = append(variants, variantPayload{
			ID:             variant.ID,
			Color:          variant.Color,
			Hex:            variant.Hex,
			Images:         copyStringSlice(variant.Images),
			RetailPrice:    variant.RetailPrice,
			WholesalePrice: variant.WholesalePrice,
			SKU:            variant.SKU,
			SEOTitle:       variant.SEOTitle,
			SEODescription: variant.SEODescription,
			Keywords:       copyStringSlice(variant.Keywords),
		})
	}
	return draftPayload{
		BaseName:       draft.BaseName,
		CategoryID:     draft.CategoryID,
		Material:       draft.Material,
		Dimensions:     draft.Dimensions,
		Description:    draft.Description,
		Variants:       variants,
		SEOTitle:       draft.SEOTitle,
		SEODescription: draft.SEODescription,
		Keywords:       copyStringSlice(draft.Keywords),
		Status:         string(draft.Status),
		UpdatedAt:      formatTimestamp(draft.UpdatedAt),
	}
}
