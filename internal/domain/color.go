package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MaxColorDistance is the Euclidean RGB distance between black and white.
const MaxColorDistance = 441.673

var (
	hexColorPattern       = regexp.MustCompile(`^#?[0-9A-Fa-f]{6}$`)
	strictHexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

// RGB is a color in 8-bit-per-channel RGB space.
type RGB struct {
	R uint8
	G uint8
	B uint8
}

// Hex renders the color in "#RRGGBB" form.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// ParseHexColor parses a "#RRGGBB" string, tolerating a missing hash and
// either letter case.
func ParseHexColor(value string) (RGB, error) {
	trimmed := strings.TrimSpace(value)
	if !hexColorPattern.MatchString(trimmed) {
		return RGB{}, fmt.Errorf("invalid hex color %q", value)
	}
	digits := strings.TrimPrefix(trimmed, "#")
	parsed, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid hex color %q", value)
	}
	return RGB{
		R: uint8(parsed >> 16),
		G: uint8(parsed >> 8),
		B: uint8(parsed),
	}, nil
}

// IsValidHexColor reports whether the value is a "#RRGGBB" color, hash
// included, either letter case.
func IsValidHexColor(value string) bool {
	return strictHexColorPattern.MatchString(strings.TrimSpace(value))
}

// ColorDistance computes Euclidean distance between two colors in RGB
// space, ranging 0 to MaxColorDistance.
func ColorDistance(a, b RGB) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}
