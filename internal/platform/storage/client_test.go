package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ateliedecor/api/internal/platform/auth"
)

type fakeSigner struct {
	email    string
	payloads [][]byte
	err      error
}

func (f *fakeSigner) Email() string {
	return f.email
}

func (f *fakeSigner) SignBytes(_ context.Context, payload []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.payloads = append(f.payloads, append([]byte(nil), payload...))
	return []byte("signed"), nil
}

func TestPhotoUploadURLSuccess(t *testing.T) {
	signer := &fakeSigner{email: "catalog@example.iam.gserviceaccount.com"}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client, err := NewClient(signer, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}

	res, err := client.PhotoUploadURL(context.Background(), "catalog-bucket", "uploads/photos/img_1/file.png", PhotoUploadOptions{
		ContentType: "image/png",
		MaxSize:     1 << 20,
		ExpiresIn:   10 * time.Minute,
	})
	if err != nil {
		t.Fatalf("PhotoUploadURL returned error: %v", err)
	}

	if res.Method != "PUT" {
		t.Fatalf("expected method PUT, got %s", res.Method)
	}
	if !res.ExpiresAt.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("unexpected expiry: %v", res.ExpiresAt)
	}
	if res.Headers["Content-Type"] != "image/png" {
		t.Fatalf("expected Content-Type header, got %v", res.Headers)
	}
	if res.Headers["x-goog-content-length-range"] != "0,1048576" {
		t.Fatalf("expected content length header, got %v", res.Headers)
	}

	parsed, err := url.Parse(res.URL)
	if err != nil {
		t.Fatalf("failed to parse signed URL: %v", err)
	}
	if !strings.Contains(parsed.RawQuery, "X-Goog-Signature=") {
		t.Fatalf("expected signature in query: %s", parsed.RawQuery)
	}
	if len(signer.payloads) == 0 {
		t.Fatalf("expected signer to be invoked")
	}
}

func TestPhotoUploadURLRejectsNonImageContentType(t *testing.T) {
	signer := &fakeSigner{email: "catalog@example.iam.gserviceaccount.com"}
	client, err := NewClient(signer)
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}

	_, err = client.PhotoUploadURL(context.Background(), "bucket", "object", PhotoUploadOptions{ContentType: "application/pdf"})
	if !errors.Is(err, errContentTypeDenied) {
		t.Fatalf("expected errContentTypeDenied, got %v", err)
	}

	_, err = client.PhotoUploadURL(context.Background(), "bucket", "object", PhotoUploadOptions{})
	if !errors.Is(err, errContentTypeMissing) {
		t.Fatalf("expected errContentTypeMissing, got %v", err)
	}
}

func TestPhotoDownloadURLRequiresStaff(t *testing.T) {
	signer := &fakeSigner{email: "catalog@example.iam.gserviceaccount.com"}
	client, err := NewClient(signer)
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}

	_, err = client.PhotoDownloadURL(context.Background(), "bucket", "object", PhotoDownloadOptions{
		Identity: &auth.Identity{UID: "user-1", Roles: []string{auth.RoleUser}},
	})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestPhotoDownloadURLAllowsStaff(t *testing.T) {
	signer := &fakeSigner{email: "catalog@example.iam.gserviceaccount.com"}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client, err := NewClient(signer, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}

	res, err := client.PhotoDownloadURL(context.Background(), "bucket", "object", PhotoDownloadOptions{
		Identity:  &auth.Identity{UID: "staff-1", Roles: []string{auth.RoleStaff}},
		ExpiresIn: 5 * time.Minute,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Method != "GET" {
		t.Fatalf("expected GET method, got %s", res.Method)
	}
	if !res.ExpiresAt.Equal(now.Add(5 * time.Minute)) {
		t.Fatalf("unexpected expiry: %v", res.ExpiresAt)
	}
}

func TestPhotoDownloadURLExpiryTooLong(t *testing.T) {
	signer := &fakeSigner{email: "catalog@example.iam.gserviceaccount.com"}
	client, err := NewClient(signer)
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}

	_, err = client.PhotoDownloadURL(context.Background(), "bucket", "object", PhotoDownloadOptions{
		Identity:  &auth.Identity{UID: "staff-1", Roles: []string{auth.RoleStaff}},
		ExpiresIn: 30 * time.Minute,
	})
	if !errors.Is(err, errExpiryTooLong) {
		t.Fatalf("expected errExpiryTooLong, got %v", err)
	}
}
