// Package imaging extracts dominant colors from uploaded product photos.
package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"

	domain "github.com/ateliedecor/api/internal/domain"
)

const (
	// sampleWidth is the width images are downscaled to before counting
	// pixels; enough resolution for a dominant hue, cheap to scan.
	sampleWidth = 64
	// bucketShift collapses each 8-bit channel into 16 buckets so photo
	// noise and gradients vote for the same color.
	bucketShift = 4
)

// ErrEmptyImage indicates no bytes were supplied.
var ErrEmptyImage = errors.New("imaging: empty image")

// Extractor quantizes an image down to its most representative color.
type Extractor struct {
	filter imaging.ResampleFilter
}

// NewExtractor constructs a dominant color extractor.
func NewExtractor() *Extractor {
	return &Extractor{filter: imaging.Lanczos}
}

// DominantColor decodes the image, downscales it, and returns the average
// color of the most populated quantization bucket.
func (e *Extractor) DominantColor(ctx context.Context, data []byte) (domain.RGB, error) {
	if len(data) == 0 {
		return domain.RGB{}, ErrEmptyImage
	}
	if err := ctx.Err(); err != nil {
		return domain.RGB{}, err
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.RGB{}, fmt.Errorf("imaging: decode: %w", err)
	}

	sample := imaging.Resize(decoded, sampleWidth, 0, e.filter)
	bounds := sample.Bounds()
	if bounds.Empty() {
		return domain.RGB{}, errors.New("imaging: empty sample")
	}

	type bucket struct {
		count   int
		sumR    uint64
		sumG    uint64
		sumB    uint64
	}
	buckets := make(map[uint32]*bucket)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r16, g16, b16, a16 := sample.At(x, y).RGBA()
			if a16 < 0x8000 {
				// Mostly transparent pixels carry no color information.
				continue
			}
			r, g, b := uint8(r16>>8), uint8(g16>>8), uint8(b16>>8)
			key := uint32(r>>bucketShift)<<16 | uint32(g>>bucketShift)<<8 | uint32(b>>bucketShift)
			entry, ok := buckets[key]
			if !ok {
				entry = &bucket{}
				buckets[key] = entry
			}
			entry.count++
			entry.sumR += uint64(r)
			entry.sumG += uint64(g)
			entry.sumB += uint64(b)
		}
	}
	if len(buckets) == 0 {
		return domain.RGB{}, errors.New("imaging: no opaque pixels")
	}

	var winner *bucket
	var winnerKey uint32
	for key, entry := range buckets {
		if winner == nil || entry.count > winner.count || (entry.count == winner.count && key < winnerKey) {
			winner = entry
			winnerKey = key
		}
	}

	n := uint64(winner.count)
	return domain.RGB{
		R: uint8(winner.sumR / n),
		G: uint8(winner.sumG / n),
		B: uint8(winner.sumB / n),
	}, nil
}
