package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func solidImage(t *testing.T, c color.RGBA, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return encodePNG(t, img)
}

func TestDominantColorSolidImage(t *testing.T) {
	extractor := NewExtractor()
	data := solidImage(t, color.RGBA{R: 254, G: 0, B: 1, A: 255}, 120, 90)

	got, err := extractor.DominantColor(context.Background(), data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Resampling may wobble a channel by a couple of values.
	if diff(got.R, 254) > 3 || diff(got.G, 0) > 3 || diff(got.B, 1) > 3 {
		t.Fatalf("unexpected dominant color %+v", got)
	}
}

func TestDominantColorMajorityRegion(t *testing.T) {
	extractor := NewExtractor()
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			// Three quarters red, one quarter blue.
			if x < 75 {
				img.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}

	got, err := extractor.DominantColor(context.Background(), encodePNG(t, img))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.R < 200 || got.B > 80 {
		t.Fatalf("expected red dominant, got %+v", got)
	}
}

func TestDominantColorRejectsGarbage(t *testing.T) {
	extractor := NewExtractor()
	if _, err := extractor.DominantColor(context.Background(), []byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := extractor.DominantColor(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func diff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
