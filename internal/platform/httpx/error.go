// Package httpx holds the JSON error envelope shared by every handler.
package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ateliedecor/api/internal/platform/requestctx"
)

var newlineScrubber = strings.NewReplacer("\n", " ", "\r", " ")

// scrub flattens newlines and caps the value so a hostile input cannot blow
// up the envelope or split log lines.
func scrub(value string, limit int) string {
	if limit <= 0 {
		limit = 256
	}
	value = strings.TrimSpace(newlineScrubber.Replace(value))
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}

// Error is the wire shape of an API failure. Code is a stable machine tag,
// Message is for humans, and Details are merged flat into the JSON body.
type Error struct {
	Code      string
	Message   string
	Status    int
	RequestID string
	TraceID   string
	Details   map[string]any
}

// NewError builds an Error, defaulting a zero status to 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    scrub(code, 80),
		Message: scrub(message, 512),
		Status:  status,
	}
}

// WithRequestID overrides the request identifier taken from context.
func (e Error) WithRequestID(id string) Error {
	e.RequestID = scrub(id, 80)
	return e
}

// WithTraceID overrides the trace identifier taken from context.
func (e Error) WithTraceID(id string) Error {
	e.TraceID = scrub(id, 64)
	return e
}

// WithDetails attaches extra JSON fields to the envelope. The map is copied.
func (e Error) WithDetails(details map[string]any) Error {
	if len(details) == 0 {
		return e
	}
	merged := make(map[string]any, len(details))
	for k, v := range details {
		merged[k] = v
	}
	e.Details = merged
	return e
}

// WriteError renders err as the canonical JSON envelope. Request and trace
// identifiers fall back to whatever the middleware stack put on ctx.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	requestID := err.RequestID
	if requestID == "" {
		requestID = scrub(middleware.GetReqID(ctx), 80)
	}
	traceID := err.TraceID
	if traceID == "" {
		traceID = scrub(requestctx.TraceID(ctx), 64)
	}

	body := map[string]any{
		"error":   err.Code,
		"message": err.Message,
		"status":  status,
	}
	if requestID != "" {
		body["request_id"] = requestID
	}
	if traceID != "" {
		body["trace_id"] = traceID
	}
	for k, v := range err.Details {
		body[k] = v
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
