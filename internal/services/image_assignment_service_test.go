package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"testing"

	domain "github.com/ateliedecor/api/internal/domain"
)

type stubUploadTransport struct {
	failFor map[string]error
	counter int
}

func (s *stubUploadTransport) Upload(ctx context.Context, originalName string, data []byte) (UploadedFile, error) {
	if err, ok := s.failFor[originalName]; ok {
		return UploadedFile{}, err
	}
	s.counter++
	return UploadedFile{
		FileID:       fmt.Sprintf("file_%03d", s.counter),
		URL:          "https://cdn/" + originalName,
		OriginalName: originalName,
	}, nil
}

// byteKeyedExtractor returns a canned dominant color per image payload.
type byteKeyedExtractor struct {
	colors map[string]domain.RGB
}

func (s *byteKeyedExtractor) DominantColor(ctx context.Context, image []byte) (domain.RGB, error) {
	color, ok := s.colors[string(image)]
	if !ok {
		return domain.RGB{}, errors.New("undecodable image")
	}
	return color, nil
}

type assignmentFixture struct {
	draft   DraftService
	service ImageAssignmentService
	uploads *stubUploadTransport
}

func newAssignmentFixture(t *testing.T, colors map[string]domain.RGB) assignmentFixture {
	t.Helper()
	draft := newTestDraftService(t, DraftServiceDeps{})
	matcher, err := NewColorMatchService(ColorMatchServiceDeps{Extractor: &byteKeyedExtractor{colors: colors}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	uploads := &stubUploadTransport{failFor: map[string]error{}}
	counter := 0
	svc, err := NewImageAssignmentService(ImageAssignmentServiceDeps{
		Draft:   draft,
		Matcher: matcher,
		Uploads: uploads,
		IDGenerator: func() string {
			counter++
			return fmt.Sprintf("%04d", counter)
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return assignmentFixture{draft: draft, service: svc, uploads: uploads}
}

func (f assignmentFixture) addVariant(ctx context.Context, color, hex string) Variant {
	draft := f.draft.AddVariant(ctx, Variant{Color: color, Hex: hex})
	return draft.Variants[len(draft.Variants)-1]
}

func TestProcessBatchFilenamePass(t *testing.T) {
	ctx := context.Background()
	fx := newAssignmentFixture(t, nil)
	vermelho := fx.addVariant(ctx, "Vermelho", "#FF0000")
	fx.addVariant(ctx, "Azul", "#0000FF")

	report, err := fx.service.ProcessBatch(ctx, []BatchFile{{Name: "capa-vermelho.jpg", Data: []byte("red")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.AutoAssigned != 1 || report.Unassigned != 0 || report.Suggested != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(report.Assignments) != 1 || report.Assignments[0].VariantID != vermelho.ID {
		t.Fatalf("unexpected assignments %+v", report.Assignments)
	}

	draft := fx.draft.Current(ctx)
	if len(draft.Variants[0].Images) != 1 || draft.Variants[0].Images[0] != "https://cdn/capa-vermelho.jpg" {
		t.Fatalf("image not placed on variant: %+v", draft.Variants[0])
	}
	if len(draft.Variants[1].Images) != 0 {
		t.Fatalf("wrong variant received the image: %+v", draft.Variants[1])
	}
}

func TestProcessBatchFilenamePassIgnoresDiacriticsAndCase(t *testing.T) {
	ctx := context.Background()
	fx := newAssignmentFixture(t, nil)
	fx.addVariant(ctx, "Verde Musgo", "#4A5D23")

	report, err := fx.service.ProcessBatch(ctx, []BatchFile{{Name: "ALMOFADA-VERDE-MUSGO.png"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.AutoAssigned != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestProcessBatchColorSuggestionPass(t *testing.T) {
	ctx := context.Background()
	fx := newAssignmentFixture(t, map[string]domain.RGB{
		"reddish": {R: 254, B: 1},
	})
	vermelho := fx.addVariant(ctx, "Vermelho", "#FF0000")

	report, err := fx.service.ProcessBatch(ctx, []BatchFile{{Name: "IMG_1234.jpg", Data: []byte("reddish")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.AutoAssigned != 0 || report.Suggested != 1 || report.Unassigned != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(report.Pending) != 1 {
		t.Fatalf("expected pending entry, got %+v", report.Pending)
	}
	pending := report.Pending[0]
	if pending.SuggestedVariantID != vermelho.ID || pending.SuggestedVariantColor != "Vermelho" {
		t.Fatalf("unexpected suggestion %+v", pending)
	}
	if pending.DominantColor != "#FE0001" {
		t.Fatalf("unexpected dominant color %q", pending.DominantColor)
	}

	// Suggestions never auto-place the image.
	if images := fx.draft.Current(ctx).Variants[0].Images; len(images) != 0 {
		t.Fatalf("suggestion was auto-assigned: %#v", images)
	}
}

func TestProcessBatchUnresolvedFileStaysPlainUnassigned(t *testing.T) {
	ctx := context.Background()
	fx := newAssignmentFixture(t, map[string]domain.RGB{
		"greenish": {G: 255},
	})
	fx.addVariant(ctx, "Vermelho", "#FF0000")

	report, err := fx.service.ProcessBatch(ctx, []BatchFile{{Name: "IMG_9.jpg", Data: []byte("greenish")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Unassigned != 1 || report.Suggested != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Pending[0].SuggestedVariantID != "" {
		t.Fatalf("expected no suggestion: %+v", report.Pending[0])
	}
	// The dominant color is still recorded for the author.
	if report.Pending[0].DominantColor != "#00FF00" {
		t.Fatalf("unexpected dominant color %q", report.Pending[0].DominantColor)
	}
}

func TestProcessBatchUndecodableImageDegrades(t *testing.T) {
	ctx := context.Background()
	fx := newAssignmentFixture(t, nil)
	fx.addVariant(ctx, "Vermelho", "#FF0000")

	report, err := fx.service.ProcessBatch(ctx, []BatchFile{
		{Name: "broken.jpg", Data: []byte("garbage")},
		{Name: "capa-vermelho.jpg", Data: []byte("more")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The undecodable file lands unassigned without aborting the batch.
	if report.AutoAssigned != 1 || report.Unassigned != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestProcessBatchRedundantDuplicate(t *testing.T) {
	ctx := context.Background()
	fx := newAssignmentFixture(t, nil)
	fx.addVariant(ctx, "Vermelho", "#FF0000")

	if _, err := fx.service.ProcessBatch(ctx, []BatchFile{{Name: "capa-vermelho.jpg"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	report, err := fx.service.ProcessBatch(ctx, []BatchFile{{Name: "capa-vermelho.jpg"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Redundant != 1 || report.AutoAssigned != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(report.Assignments) != 1 || !report.Assignments[0].Redundant {
		t.Fatalf("expected redundant assignment notice, got %+v", report.Assignments)
	}
	if images := fx.draft.Current(ctx).Variants[0].Images; len(images) != 1 {
		t.Fatalf("duplicate URL was re-added: %#v", images)
	}
}

func TestProcessBatchUploadFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	fx := newAssignmentFixture(t, nil)
	fx.addVariant(ctx, "Azul", "#0000FF")
	fx.uploads.failFor["quebrada-azul.jpg"] = errors.New("transport: connection reset")

	report, err := fx.service.ProcessBatch(ctx, []BatchFile{
		{Name: "quebrada-azul.jpg"},
		{Name: "capa-azul.jpg"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Failed != 1 || report.AutoAssigned != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	var failed *UnassignedImage
	for i := range report.Pending {
		if report.Pending[i].Error != "" {
			failed = &report.Pending[i]
		}
	}
	if failed == nil || !strings.Contains(failed.Error, "connection reset") {
		t.Fatalf("expected failed entry with error, got %+v", report.Pending)
	}
}

// gateExtractor blocks every color analysis until released so the test can
// observe how many run at once.
type gateExtractor struct {
	release chan struct{}

	mu       sync.Mutex
	inflight int
	peak     int
}

func (g *gateExtractor) DominantColor(ctx context.Context, image []byte) (domain.RGB, error) {
	g.mu.Lock()
	g.inflight++
	if g.inflight > g.peak {
		g.peak = g.inflight
	}
	g.mu.Unlock()
	<-g.release
	g.mu.Lock()
	g.inflight--
	g.mu.Unlock()
	return domain.RGB{R: 74, G: 93, B: 35}, nil
}

func (g *gateExtractor) currentPeak() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.peak
}

func TestProcessBatchBoundsColorPassConcurrency(t *testing.T) {
	ctx := context.Background()
	draft := newTestDraftService(t, DraftServiceDeps{})
	draft.AddVariant(ctx, Variant{Color: "Verde Musgo", Hex: "#4A5D23"})

	gate := &gateExtractor{release: make(chan struct{})}
	matcher, err := NewColorMatchService(ColorMatchServiceDeps{Extractor: gate})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc, err := NewImageAssignmentService(ImageAssignmentServiceDeps{
		Draft:       draft,
		Matcher:     matcher,
		Concurrency: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	files := make([]BatchFile, 5)
	for i := range files {
		files[i] = BatchFile{Name: fmt.Sprintf("foto-%d.jpg", i), Data: []byte("jpeg-bytes")}
	}
	done := make(chan BatchReport, 1)
	go func() {
		report, err := svc.ProcessBatch(ctx, files)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		done <- report
	}()

	// Both slots fill before anything is released, then the gate opens.
	for gate.currentPeak() < 2 {
		runtime.Gosched()
	}
	close(gate.release)

	report := <-done
	if peak := gate.currentPeak(); peak != 2 {
		t.Fatalf("expected at most 2 concurrent analyses, saw %d", peak)
	}
	if report.Suggested != 5 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestManualAssignAndDiscard(t *testing.T) {
	ctx := context.Background()
	fx := newAssignmentFixture(t, map[string]domain.RGB{})
	vermelho := fx.addVariant(ctx, "Vermelho", "#FF0000")
	fx.addVariant(ctx, "Azul", "#0000FF")

	report, err := fx.service.ProcessBatch(ctx, []BatchFile{
		{Name: "IMG_1.jpg", Data: []byte("a")},
		{Name: "IMG_2.jpg", Data: []byte("b")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Pending) != 2 {
		t.Fatalf("expected 2 pending images, got %+v", report.Pending)
	}
	first, second := report.Pending[0], report.Pending[1]

	result, err := fx.service.AssignImage(ctx, first.ID, vermelho.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AlreadyOwned {
		t.Fatalf("unexpected result %+v", result)
	}
	if images := fx.draft.Current(ctx).Variants[0].Images; len(images) != 1 || images[0] != first.URL {
		t.Fatalf("manual assign did not place the image: %#v", images)
	}
	if remaining := fx.service.Unassigned(ctx); len(remaining) != 1 || remaining[0].ID != second.ID {
		t.Fatalf("assigned image not removed from working set: %+v", remaining)
	}

	// Discard removes the entry without touching assigned variants.
	fx.service.DiscardImage(ctx, second.ID)
	if remaining := fx.service.Unassigned(ctx); len(remaining) != 0 {
		t.Fatalf("discard left entries behind: %+v", remaining)
	}
	if images := fx.draft.Current(ctx).Variants[0].Images; len(images) != 1 {
		t.Fatalf("discard affected assigned images: %#v", images)
	}
}

func TestManualAssignRejectsURLAlreadyOnAnotherVariant(t *testing.T) {
	ctx := context.Background()
	fx := newAssignmentFixture(t, map[string]domain.RGB{})
	vermelho := fx.addVariant(ctx, "Vermelho", "#FF0000")
	azul := fx.addVariant(ctx, "Azul", "#0000FF")

	report, err := fx.service.ProcessBatch(ctx, []BatchFile{{Name: "IMG_1.jpg", Data: []byte("a")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	image := report.Pending[0]

	fx.draft.AddImageToVariant(ctx, vermelho.ID, image.URL)

	result, err := fx.service.AssignImage(ctx, image.ID, azul.ID)
	if err != nil {
		t.Fatalf("expected idempotent rejection, got error %v", err)
	}
	if !result.AlreadyOwned || result.VariantID != vermelho.ID {
		t.Fatalf("unexpected result %+v", result)
	}
	if images := fx.draft.Current(ctx).Variants[1].Images; len(images) != 0 {
		t.Fatalf("duplicate was placed on second variant: %#v", images)
	}
}

func TestManualAssignUnknownIDs(t *testing.T) {
	ctx := context.Background()
	fx := newAssignmentFixture(t, map[string]domain.RGB{})
	vermelho := fx.addVariant(ctx, "Vermelho", "#FF0000")

	if _, err := fx.service.AssignImage(ctx, "img_ghost", vermelho.ID); !errors.Is(err, ErrAssignmentImageNotFound) {
		t.Fatalf("expected ErrAssignmentImageNotFound, got %v", err)
	}

	report, err := fx.service.ProcessBatch(ctx, []BatchFile{{Name: "IMG_1.jpg", Data: []byte("a")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := fx.service.AssignImage(ctx, report.Pending[0].ID, "var_ghost"); !errors.Is(err, ErrAssignmentVariantNotFound) {
		t.Fatalf("expected ErrAssignmentVariantNotFound, got %v", err)
	}
}
