package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ateliedecor/api/internal/platform/auth"
)

var testClock = func() time.Time {
	return time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC)
}

func publishRequest(key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/draft/publish", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: "admin_1", Roles: []string{auth.RoleAdmin}}))
	return req
}

func assertRefusal(t *testing.T, body []byte, wantCode string) {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode refusal: %v", err)
	}
	if payload["error"] != wantCode {
		t.Fatalf("expected error %q, got %v", wantCode, payload["error"])
	}
}

func TestMiddlewareRequiresKey(t *testing.T) {
	mw := Middleware(NewMemoryStore(), WithClock(testClock))

	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, publishRequest(""))

	if called {
		t.Fatal("handler ran without an idempotency key")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	assertRefusal(t, rec.Body.Bytes(), "idempotency_key_required")
}

func TestMiddlewareReplaysStoredResponse(t *testing.T) {
	mw := Middleware(NewMemoryStore(), WithClock(testClock))

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"base_product_name":"Almofada Paris"}`))
	})
	guarded := mw(next)

	first := httptest.NewRecorder()
	guarded.ServeHTTP(first, publishRequest("pub-123"))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", first.Code)
	}
	if first.Header().Get("X-Idempotent-Replay") != "" {
		t.Fatal("first response must not be marked as replay")
	}

	second := httptest.NewRecorder()
	guarded.ServeHTTP(second, publishRequest("pub-123"))
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d", second.Code)
	}
	if second.Header().Get("X-Idempotent-Replay") != "true" {
		t.Fatal("replay marker missing")
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body %q differs from original %q", second.Body.String(), first.Body.String())
	}
}

func TestMiddlewareRejectsInFlightDuplicate(t *testing.T) {
	store := NewMemoryStore()
	now := testClock()
	if _, err := store.Claim(context.Background(), "pub-busy|admin_1", fingerprintRequest(publishRequest("pub-busy"), []byte(`{}`), "admin_1"), now, time.Hour); err != nil {
		t.Fatalf("seed claim: %v", err)
	}

	mw := Middleware(store, WithClock(testClock))
	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run while the key is in flight")
	})).ServeHTTP(rec, publishRequest("pub-busy"))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	assertRefusal(t, rec.Body.Bytes(), "idempotency_in_progress")
}

func TestMiddlewareRejectsReusedKeyWithDifferentBody(t *testing.T) {
	mw := Middleware(NewMemoryStore(), WithClock(testClock))
	guarded := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	guarded.ServeHTTP(first, publishRequest("pub-shape"))
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.Code)
	}

	altered := httptest.NewRequest(http.MethodPost, "/api/v1/admin/draft/reset", bytes.NewBufferString(`{}`))
	altered.Header.Set("Content-Type", "application/json")
	altered.Header.Set("Idempotency-Key", "pub-shape")
	altered = altered.WithContext(auth.WithIdentity(altered.Context(), &auth.Identity{UID: "admin_1"}))

	second := httptest.NewRecorder()
	guarded.ServeHTTP(second, altered)
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", second.Code)
	}
	assertRefusal(t, second.Body.Bytes(), "idempotency_key_conflict")
}

func TestMiddlewareScopesKeysByRequester(t *testing.T) {
	mw := Middleware(NewMemoryStore(), WithClock(testClock))

	calls := 0
	guarded := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	guarded.ServeHTTP(httptest.NewRecorder(), publishRequest("shared-key"))

	other := httptest.NewRequest(http.MethodPost, "/api/v1/admin/draft/publish", bytes.NewBufferString(`{}`))
	other.Header.Set("Content-Type", "application/json")
	other.Header.Set("Idempotency-Key", "shared-key")
	other = other.WithContext(auth.WithIdentity(other.Context(), &auth.Identity{UID: "admin_2"}))
	guarded.ServeHTTP(httptest.NewRecorder(), other)

	if calls != 2 {
		t.Fatalf("handler ran %d times, want one run per requester", calls)
	}
}

type failingStore struct {
	*MemoryStore
	completeErr error
}

func (s *failingStore) Complete(context.Context, string, string, StoredResponse, time.Time, time.Duration) error {
	return s.completeErr
}

func TestMiddlewareSurfacesPersistFailure(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(), completeErr: errors.New("firestore unavailable")}
	mw := Middleware(store, WithClock(testClock))

	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})).ServeHTTP(rec, publishRequest("pub-fail"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	assertRefusal(t, rec.Body.Bytes(), "idempotency_store_error")
}

func TestMiddlewareIgnoresReadRequests(t *testing.T) {
	mw := Middleware(NewMemoryStore(), WithClock(testClock))

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/draft", nil)
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if !called {
		t.Fatal("GET requests should pass through unguarded")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
