package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/ateliedecor/api/internal/domain"
	"github.com/ateliedecor/api/internal/platform/auth"
	"github.com/ateliedecor/api/internal/platform/httpx"
	"github.com/ateliedecor/api/internal/platform/storage"
	"github.com/ateliedecor/api/internal/services"
)

const (
	defaultMaxUploadBytes   = 10 << 20
	uploadFormField         = "photos"
	defaultSignedURLTimeout = 10 * time.Minute
)

// PhotoURLSigner mints signed upload URLs so browsers can push photos
// straight to the bucket.
type PhotoURLSigner interface {
	PhotoUploadURL(ctx context.Context, bucket, object string, opts storage.PhotoUploadOptions) (storage.SignedURLResult, error)
}

// AdminImageHandlers exposes the photo upload and assignment endpoints.
type AdminImageHandlers struct {
	authn          *auth.Authenticator
	images         services.ImageAssignmentService
	signer         PhotoURLSigner
	bucket         string
	maxUploadBytes int64
}

// AdminImageOption customises construction of AdminImageHandlers.
type AdminImageOption func(*AdminImageHandlers)

// WithImageSigner enables the signed upload URL endpoint against the given bucket.
func WithImageSigner(signer PhotoURLSigner, bucket string) AdminImageOption {
	return func(h *AdminImageHandlers) {
		h.signer = signer
		h.bucket = bucket
	}
}

// WithMaxUploadBytes caps the size of a single uploaded photo.
func WithMaxUploadBytes(limit int64) AdminImageOption {
	return func(h *AdminImageHandlers) {
		if limit > 0 {
			h.maxUploadBytes = limit
		}
	}
}

// NewAdminImageHandlers constructs the admin image handler set.
func NewAdminImageHandlers(authn *auth.Authenticator, images services.ImageAssignmentService, opts ...AdminImageOption) *AdminImageHandlers {
	h := &AdminImageHandlers{
		authn:          authn,
		images:         images,
		maxUploadBytes: defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the image pipeline endpoints.
func (h *AdminImageHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin))
	}
	r.Route("/images", func(rt chi.Router) {
		rt.Post("/batch", h.processBatch)
		rt.Get("/unassigned", h.listUnassigned)
		rt.Post("/{imageID}/assign", h.assignImage)
		rt.Delete("/{imageID}", h.discardImage)
	})
	r.Post("/uploads/sign", h.signUploadURL)
}

func (h *AdminImageHandlers) processBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.images == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "image service unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed multipart request", http.StatusBadRequest))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	headers := r.MultipartForm.File[uploadFormField]
	if len(headers) == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "no photos in request", http.StatusBadRequest))
		return
	}

	files := make([]services.BatchFile, 0, len(headers))
	for _, header := range headers {
		data, err := readUploadedFile(header, h.maxUploadBytes)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("upload_too_large", err.Error(), http.StatusRequestEntityTooLarge))
			return
		}
		files = append(files, services.BatchFile{Name: header.Filename, Data: data})
	}

	report, err := h.images.ProcessBatch(ctx, files)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("batch_failed", err.Error(), http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, newBatchReportPayload(report))
}

func (h *AdminImageHandlers) listUnassigned(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("service_unavailable", "image service unavailable", http.StatusServiceUnavailable))
		return
	}

	images := h.images.Unassigned(r.Context())
	payload := make([]unassignedImagePayload, 0, len(images))
	for _, img := range images {
		payload = append(payload, newUnassignedImagePayload(img))
	}

	writeJSON(w, http.StatusOK, unassignedListResponse{Images: payload})
}

func (h *AdminImageHandlers) assignImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.images == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "image service unavailable", http.StatusServiceUnavailable))
		return
	}

	imageID := strings.TrimSpace(chi.URLParam(r, "imageID"))
	if imageID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_image_id", "image id is required", http.StatusBadRequest))
		return
	}

	var payload struct {
		VariantID string `json:"variant_id"`
	}
	if err := decodeJSONBody(r, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(payload.VariantID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "variant id is required", http.StatusBadRequest))
		return
	}

	result, err := h.images.AssignImage(ctx, imageID, payload.VariantID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAssignmentImageNotFound):
			httpx.WriteError(ctx, w, httpx.NewError("image_not_found", "image not found", http.StatusNotFound))
		case errors.Is(err, services.ErrAssignmentVariantNotFound):
			httpx.WriteError(ctx, w, httpx.NewError("variant_not_found", "variant not found", http.StatusNotFound))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("assign_failed", err.Error(), http.StatusInternalServerError))
		}
		return
	}

	writeJSON(w, http.StatusOK, assignImageResponse{
		VariantID:    result.VariantID,
		URL:          result.URL,
		AlreadyOwned: result.AlreadyOwned,
	})
}

func (h *AdminImageHandlers) discardImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.images == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "image service unavailable", http.StatusServiceUnavailable))
		return
	}

	imageID := strings.TrimSpace(chi.URLParam(r, "imageID"))
	if imageID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_image_id", "image id is required", http.StatusBadRequest))
		return
	}

	h.images.DiscardImage(ctx, imageID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminImageHandlers) signUploadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.signer == nil || h.bucket == "" {
		httpx.WriteError(ctx, w, httpx.NewError("signing_unavailable", "signed uploads are not configured", http.StatusServiceUnavailable))
		return
	}

	var payload struct {
		Object      string `json:"object"`
		ContentType string `json:"content_type"`
	}
	if err := decodeJSONBody(r, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(payload.Object) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "object name is required", http.StatusBadRequest))
		return
	}

	result, err := h.signer.PhotoUploadURL(ctx, h.bucket, payload.Object, storage.PhotoUploadOptions{
		ContentType: payload.ContentType,
		MaxSize:     h.maxUploadBytes,
		ExpiresIn:   defaultSignedURLTimeout,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("signing_failed", err.Error(), http.StatusBadRequest))
		return
	}

	writeJSON(w, http.StatusOK, signedURLResponse{
		URL:       result.URL,
		Method:    result.Method,
		ExpiresAt: formatTimestamp(result.ExpiresAt),
		Headers:   result.Headers,
	})
}

func readUploadedFile(header *multipart.FileHeader, limit int64) ([]byte, error) {
	if header.Size > limit {
		return nil, errors.New("photo exceeds the upload size limit")
	}
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errors.New("photo exceeds the upload size limit")
	}
	return data, nil
}

type batchReportPayload struct {
	AutoAssigned int                      `json:"auto_assigned"`
	Suggested    int                      `json:"suggested"`
	Unassigned   int                      `json:"unassigned"`
	Redundant    int                      `json:"redundant"`
	Failed       int                      `json:"failed"`
	Assignments  []batchAssignmentPayload `json:"assignments"`
	Pending      []unassignedImagePayload `json:"pending"`
}

type batchAssignmentPayload struct {
	FileID       string `json:"file_id"`
	URL          string `json:"url"`
	OriginalName string `json:"original_name"`
	VariantID    string `json:"variant_id"`
	VariantColor string `json:"variant_color,omitempty"`
	Redundant    bool   `json:"redundant,omitempty"`
}

type unassignedListResponse struct {
	Images []unassignedImagePayload `json:"images"`
}

type unassignedImagePayload struct {
	ID                    string `json:"id"`
	URL                   string `json:"url"`
	OriginalName          string `json:"original_name"`
	DominantColor         string `json:"dominant_color,omitempty"`
	SuggestedVariantID    string `json:"suggested_variant_id,omitempty"`
	SuggestedVariantColor string `json:"suggested_variant_color,omitempty"`
	Error                 string `json:"error,omitempty"`
}

type assignImageResponse struct {
	VariantID    string `json:"variant_id"`
	URL          string `json:"url"`
	AlreadyOwned bool   `json:"already_owned"`
}

type signedURLResponse struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	ExpiresAt string            `json:"expires_at"`
	Headers   map[string]string `json:"headers,omitempty"`
}

func newBatchReportPayload(report services.BatchReport) batchReportPayload {
	assignments := make([]batchAssignmentPayload, 0, len(report.Assignments))
	for _, assignment := range report.Assignments {
		assignments = append(assignments, batchAssignmentPayload{
			FileID:       assignment.FileID,
			URL:          assignment.URL,
			OriginalName: assignment.OriginalName,
			VariantID:    assignment.VariantID,
			VariantColor: assignment.VariantColor,
			Redundant:    assignment.Redundant,
		})
	}
	pending := make([]unassignedImagePayload, 0, len(report.Pending))
	for _, img := range report.Pending {
		pending = append(pending, newUnassignedImagePayload(img))
	}
	return batchReportPayload{
		AutoAssigned: report.AutoAssigned,
		Suggested:    report.Suggested,
		Unassigned:   report.Unassigned,
		Redundant:    report.Redundant,
		Failed:       report.Failed,
		Assignments:  assignments,
		Pending:      pending,
	}
}

func newUnassignedImagePayload(img domain.UnassignedImage) unassignedImagePayload {
	return unassignedImagePayload{
		ID:                    img.ID,
		URL:                   img.URL,
		OriginalName:          img.OriginalName,
		DominantColor:         img.DominantColor,
		SuggestedVariantID:    img.SuggestedVariantID,
		SuggestedVariantColor: img.SuggestedVariantColor,
		Error:                 img.Error,
	}
}
