package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/oklog/ulid/v2"

	"github.com/ateliedecor/api/internal/domain"
)

const (
	defaultPublicBaseURL = "https://storage.googleapis.com"
	uploadCacheControl   = "public, max-age=86400"
	imageIDPrefix        = "img_"
)

var (
	errUploaderClientMissing = errors.New("storage uploader: client is required")
	errUploaderBucketMissing = errors.New("storage uploader: bucket is required")
	errUploadEmptyFile       = errors.New("storage uploader: file data is empty")
)

// UploaderDeps wires the Cloud Storage uploader.
type UploaderDeps struct {
	Client        *gcs.Client
	Bucket        string
	PublicBaseURL string
	IDGenerator   func() string
	Clock         func() time.Time
}

// Uploader streams raw photo bytes into the staging prefix of the catalog
// bucket and hands back the public URL the assignment pipeline works with.
type Uploader struct {
	client  *gcs.Client
	bucket  string
	baseURL string
	newID   func() string
	now     func() time.Time
}

// NewUploader constructs a bucket-backed upload transport.
func NewUploader(deps UploaderDeps) (*Uploader, error) {
	if deps.Client == nil {
		return nil, errUploaderClientMissing
	}
	bucket := strings.TrimSpace(deps.Bucket)
	if bucket == "" {
		return nil, errUploaderBucketMissing
	}
	baseURL := strings.TrimRight(strings.TrimSpace(deps.PublicBaseURL), "/")
	if baseURL == "" {
		baseURL = defaultPublicBaseURL
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &Uploader{client: deps.Client, bucket: bucket, baseURL: baseURL, newID: newID, now: now}, nil
}

// Upload writes one file to the staging prefix and returns its identity.
func (u *Uploader) Upload(ctx context.Context, originalName string, data []byte) (domain.UploadedFile, error) {
	if u == nil || u.client == nil {
		return domain.UploadedFile{}, errUploaderClientMissing
	}
	if len(data) == 0 {
		return domain.UploadedFile{}, errUploadEmptyFile
	}

	imageID := imageIDPrefix + u.newID()
	object, err := BuildObjectPath(PurposePhotoUpload, PathParams{
		ImageID:  imageID,
		FileName: SanitizeFileName(originalName),
	})
	if err != nil {
		return domain.UploadedFile{}, err
	}

	writer := u.client.Bucket(u.bucket).Object(object).NewWriter(ctx)
	writer.ContentType = http.DetectContentType(data)
	writer.CacheControl = uploadCacheControl
	writer.Metadata = map[string]string{
		"original-name": strings.TrimSpace(originalName),
		"uploaded-at":   u.now().UTC().Format(time.RFC3339),
	}
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return domain.UploadedFile{}, fmt.Errorf("storage uploader: write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return domain.UploadedFile{}, fmt.Errorf("storage uploader: finalize object: %w", err)
	}

	return domain.UploadedFile{
		FileID:       imageID,
		URL:          fmt.Sprintf("%s/%s/%s", u.baseURL, u.bucket, object),
		OriginalName: originalName,
	}, nil
}

// SanitizeFileName strips path separators and traversal sequences so user
// supplied names cannot escape the object prefix.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "photo"
	}
	replacer := strings.NewReplacer("/", "-", "\\", "-", "..", "-")
	cleaned := strings.Trim(replacer.Replace(name), ".")
	// "../../etc" turns into four dashes before the collapse.
	for strings.Contains(cleaned, "--") {
		cleaned = strings.ReplaceAll(cleaned, "--", "-")
	}
	if cleaned == "" {
		return "photo"
	}
	return cleaned
}
