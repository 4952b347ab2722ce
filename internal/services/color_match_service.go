package services

import (
	"context"
	"fmt"

	domain "github.com/ateliedecor/api/internal/domain"
)

// DefaultColorDistanceThreshold is the empirically chosen RGB distance below
// which a dominant color counts as a match for a variant color.
const DefaultColorDistanceThreshold = 75.0

// ColorMatchServiceDeps bundles constructor inputs for the color matcher.
type ColorMatchServiceDeps struct {
	Extractor DominantColorExtractor
	// Threshold overrides DefaultColorDistanceThreshold when positive.
	Threshold float64
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type colorMatchService struct {
	extractor DominantColorExtractor
	threshold float64
	logger    func(ctx context.Context, event string, fields map[string]any)
}

// NewColorMatchService constructs the color matcher with the supplied dependencies.
func NewColorMatchService(deps ColorMatchServiceDeps) (ColorMatchService, error) {
	if deps.Extractor == nil {
		return nil, fmt.Errorf("color match service: dominant color extractor is required")
	}
	threshold := deps.Threshold
	if threshold <= 0 {
		threshold = DefaultColorDistanceThreshold
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &colorMatchService{extractor: deps.Extractor, threshold: threshold, logger: logger}, nil
}

// DominantColorHex extracts the dominant color of the image and renders it as
// "#RRGGBB". Decode or quantization failures degrade to "no color" so a bad
// image never aborts a batch.
func (s *colorMatchService) DominantColorHex(ctx context.Context, image []byte) (string, bool) {
	if len(image) == 0 {
		return "", false
	}
	color, err := s.extractor.DominantColor(ctx, image)
	if err != nil {
		s.logger(ctx, "colormatch.extract_failed", map[string]any{"error": err.Error()})
		return "", false
	}
	return color.Hex(), true
}

// NearestVariant scans the variants in order, computing RGB distance to each
// hex, and returns the closest one when it falls under the threshold. Equal
// minimum distances resolve to the first variant in iteration order.
func (s *colorMatchService) NearestVariant(dominantHex string, variants []Variant) (VariantMatch, bool) {
	dominant, err := domain.ParseHexColor(dominantHex)
	if err != nil {
		return VariantMatch{}, false
	}
	best := VariantMatch{Distance: domain.MaxColorDistance + 1}
	found := false
	for _, variant := range variants {
		candidate, err := domain.ParseHexColor(variant.Hex)
		if err != nil {
			continue
		}
		distance := domain.ColorDistance(dominant, candidate)
		if distance < best.Distance {
			best = VariantMatch{Variant: variant, Distance: distance}
			found = true
		}
	}
	if !found || best.Distance >= s.threshold {
		return VariantMatch{}, false
	}
	return best, true
}
