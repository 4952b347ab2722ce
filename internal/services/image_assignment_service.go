package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/ateliedecor/api/internal/platform/textutil"
)

const (
	imageIDPrefix = "img_"

	imageLoggerEventBatch   = "images.batch.processed"
	imageLoggerEventAssign  = "images.manual.assigned"
	imageLoggerEventDiscard = "images.unassigned.discarded"
)

var (
	// ErrAssignmentDraftMissing indicates the draft service dependency is absent.
	ErrAssignmentDraftMissing = errors.New("image assignment service: draft service is not configured")
	// ErrAssignmentImageNotFound indicates the unassigned image id is unknown.
	ErrAssignmentImageNotFound = errors.New("image assignment service: image not found")
	// ErrAssignmentVariantNotFound indicates the target variant id is unknown.
	ErrAssignmentVariantNotFound = errors.New("image assignment service: variant not found")
)

// ImageAssignmentServiceDeps bundles constructor inputs for the assignment pipeline.
type ImageAssignmentServiceDeps struct {
	Draft       DraftService
	Matcher     ColorMatchService
	Uploads     UploadTransport
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
	// Concurrency caps the number of color analyses running at once.
	// Values below one fall back to defaultBatchConcurrency.
	Concurrency int
}

const defaultBatchConcurrency = 4

type imageAssignmentService struct {
	draft       DraftService
	matcher     ColorMatchService
	uploads     UploadTransport
	idgen       func() string
	logger      func(ctx context.Context, event string, fields map[string]any)
	concurrency int

	mu         sync.Mutex
	unassigned []UnassignedImage
}

// NewImageAssignmentService constructs the assignment pipeline with the
// supplied dependencies. The matcher and upload transport are optional: a nil
// matcher skips the color pass, a nil transport treats file names as the
// stored URL (useful in tests and offline runs).
func NewImageAssignmentService(deps ImageAssignmentServiceDeps) (ImageAssignmentService, error) {
	if deps.Draft == nil {
		return nil, fmt.Errorf("image assignment service: draft service is required")
	}
	idgen := deps.IDGenerator
	if idgen == nil {
		idgen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	concurrency := deps.Concurrency
	if concurrency < 1 {
		concurrency = defaultBatchConcurrency
	}
	return &imageAssignmentService{
		draft:       deps.Draft,
		matcher:     deps.Matcher,
		uploads:     deps.Uploads,
		idgen:       idgen,
		logger:      logger,
		concurrency: concurrency,
	}, nil
}

// batchEntry tracks one file through the upload and both assignment passes.
type batchEntry struct {
	file     UploadedFile
	data     []byte
	failed   bool
	errorMsg string
}

func (s *imageAssignmentService) ProcessBatch(ctx context.Context, files []BatchFile) (BatchReport, error) {
	report := BatchReport{}
	if len(files) == 0 {
		return report, nil
	}

	entries := s.uploadFiles(ctx, files)

	// Filename pass: the first variant in draft order whose color name
	// appears in the file name claims the image outright.
	var pending []*batchEntry
	draft := s.draft.Current(ctx)
	for _, entry := range entries {
		if entry.failed {
			report.Failed++
			s.stash(ctx, UnassignedImage{
				ID:           imageIDPrefix + s.idgen(),
				OriginalName: entry.file.OriginalName,
				Error:        entry.errorMsg,
			}, &report)
			continue
		}
		variant, matched := matchByFilename(entry.file.OriginalName, draft.Variants)
		if !matched {
			pending = append(pending, entry)
			continue
		}
		assignment := BatchAssignment{
			FileID:       entry.file.FileID,
			URL:          entry.file.URL,
			OriginalName: entry.file.OriginalName,
			VariantID:    variant.ID,
			VariantColor: variant.Color,
		}
		if variantHoldsURL(variant, entry.file.URL) {
			assignment.Redundant = true
			report.Redundant++
		} else {
			draft = s.draft.AddImageToVariant(ctx, variant.ID, entry.file.URL)
			report.AutoAssigned++
		}
		report.Assignments = append(report.Assignments, assignment)
	}

	// Color pass: analyses run concurrently, each writing only its own
	// entry; aggregation waits for every file to settle.
	results := make([]UnassignedImage, len(pending))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for i, entry := range pending {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, entry *batchEntry) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.analyzeColor(ctx, entry, draft.Variants)
		}(i, entry)
	}
	wg.Wait()

	for _, image := range results {
		s.stash(ctx, image, &report)
	}

	s.logger(ctx, imageLoggerEventBatch, map[string]any{
		"files":        len(files),
		"autoAssigned": report.AutoAssigned,
		"suggested":    report.Suggested,
		"unassigned":   report.Unassigned,
		"failed":       report.Failed,
	})
	return report, nil
}

func (s *imageAssignmentService) Unassigned(ctx context.Context) []UnassignedImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]UnassignedImage(nil), s.unassigned...)
}

func (s *imageAssignmentService) AssignImage(ctx context.Context, imageID, variantID string) (AssignImageResult, error) {
	s.mu.Lock()
	index := -1
	for i, image := range s.unassigned {
		if image.ID == imageID {
			index = i
			break
		}
	}
	if index < 0 {
		s.mu.Unlock()
		return AssignImageResult{}, fmt.Errorf("%w: %s", ErrAssignmentImageNotFound, imageID)
	}
	image := s.unassigned[index]
	s.mu.Unlock()

	draft := s.draft.Current(ctx)
	variantIndex := -1
	for i, variant := range draft.Variants {
		if variant.ID == variantID {
			variantIndex = i
			break
		}
	}
	if variantIndex < 0 {
		return AssignImageResult{}, fmt.Errorf("%w: %s", ErrAssignmentVariantNotFound, variantID)
	}

	// A URL already held by any variant is rejected idempotently; the image
	// stays in the working set for the author to resolve.
	for _, variant := range draft.Variants {
		if variantHoldsURL(variant, image.URL) {
			return AssignImageResult{VariantID: variant.ID, URL: image.URL, AlreadyOwned: true}, nil
		}
	}

	s.draft.AddImageToVariant(ctx, variantID, image.URL)
	s.remove(imageID)
	s.logger(ctx, imageLoggerEventAssign, map[string]any{
		"imageId":   imageID,
		"variantId": variantID,
	})
	return AssignImageResult{VariantID: variantID, URL: image.URL}, nil
}

func (s *imageAssignmentService) DiscardImage(ctx context.Context, imageID string) {
	if s.remove(imageID) {
		s.logger(ctx, imageLoggerEventDiscard, map[string]any{"imageId": imageID})
	}
}

func (s *imageAssignmentService) uploadFiles(ctx context.Context, files []BatchFile) []*batchEntry {
	entries := make([]*batchEntry, 0, len(files))
	for _, file := range files {
		entry := &batchEntry{data: file.Data}
		if s.uploads == nil {
			entry.file = UploadedFile{
				FileID:       imageIDPrefix + s.idgen(),
				URL:          file.Name,
				OriginalName: file.Name,
			}
		} else {
			uploaded, err := s.uploads.Upload(ctx, file.Name, file.Data)
			if err != nil {
				entry.failed = true
				entry.errorMsg = err.Error()
				entry.file = UploadedFile{OriginalName: file.Name}
			} else {
				entry.file = uploaded
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

func (s *imageAssignmentService) analyzeColor(ctx context.Context, entry *batchEntry, variants []Variant) UnassignedImage {
	image := UnassignedImage{
		ID:           entry.file.FileID,
		URL:          entry.file.URL,
		OriginalName: entry.file.OriginalName,
	}
	if strings.TrimSpace(image.ID) == "" {
		image.ID = imageIDPrefix + s.idgen()
	}
	if s.matcher == nil {
		return image
	}
	hex, ok := s.matcher.DominantColorHex(ctx, entry.data)
	if !ok {
		return image
	}
	image.DominantColor = hex
	if match, ok := s.matcher.NearestVariant(hex, variants); ok {
		image.SuggestedVariantID = match.Variant.ID
		image.SuggestedVariantColor = match.Variant.Color
	}
	return image
}

// stash records a terminal unassigned entry in the working set and folds it
// into the batch report counters.
func (s *imageAssignmentService) stash(ctx context.Context, image UnassignedImage, report *BatchReport) {
	if image.SuggestedVariantID != "" {
		report.Suggested++
	} else if image.Error == "" {
		report.Unassigned++
	}
	report.Pending = append(report.Pending, image)
	s.mu.Lock()
	s.unassigned = append(s.unassigned, image)
	s.mu.Unlock()
}

func (s *imageAssignmentService) remove(imageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, image := range s.unassigned {
		if image.ID == imageID {
			s.unassigned = append(s.unassigned[:i], s.unassigned[i+1:]...)
			return true
		}
	}
	return false
}

func matchByFilename(originalName string, variants []Variant) (Variant, bool) {
	folded := textutil.FoldForMatch(originalName)
	if folded == "" {
		return Variant{}, false
	}
	for _, variant := range variants {
		color := textutil.FoldForMatch(variant.Color)
		if color == "" {
			continue
		}
		if strings.Contains(folded, color) {
			return variant, true
		}
	}
	return Variant{}, false
}

func variantHoldsURL(variant Variant, url string) bool {
	for _, existing := range variant.Images {
		if existing == url {
			return true
		}
	}
	return false
}
