package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultDimensionUnit is assumed whenever free text carries no recognizable unit.
const DefaultDimensionUnit = "cm"

// Dimensions holds the structured form of a product size string. Width,
// Height and Depth keep their textual numeric form; empty means "not yet
// specified", never zero.
type Dimensions struct {
	Width  string
	Height string
	Depth  string
	Unit   string
}

var (
	dimensionLabeledPattern = regexp.MustCompile(`(?i)L:\s*([0-9]+(?:[.,][0-9]+)?)\s*([a-z]*)\s*,\s*A:\s*([0-9]+(?:[.,][0-9]+)?)\s*([a-z]*)\s*,\s*P:\s*([0-9]+(?:[.,][0-9]+)?)\s*([a-z]*)`)
	dimensionSeparatorPattern = regexp.MustCompile(`(?i)([0-9]+(?:[.,][0-9]+)?)\s*([a-z]*)\s*x\s*([0-9]+(?:[.,][0-9]+)?)\s*([a-z]*)\s*x\s*([0-9]+(?:[.,][0-9]+)?)\s*([a-z]*)`)
	dimensionNumberPattern    = regexp.MustCompile(`^[0-9]+(?:[.,][0-9]+)?$`)
	dimensionUnitPattern      = regexp.MustCompile(`(?i)^(cm|mm|m|in|ft)$`)
)

// ParseDimensions extracts width/height/depth/unit from free text. Three
// shapes are tried in order, stopping at the first match: the labeled
// canonical form, an "x"-separated triple, and loose whitespace-separated
// numbers with an optional trailing unit token. Parsing never fails; when
// nothing matches the result carries only the default unit.
func ParseDimensions(text string) Dimensions {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Dimensions{Unit: DefaultDimensionUnit}
	}
	if dims, ok := parseLabeledDimensions(trimmed); ok {
		return dims
	}
	if dims, ok := parseSeparatedDimensions(trimmed); ok {
		return dims
	}
	if dims, ok := parseLooseDimensions(trimmed); ok {
		return dims
	}
	return Dimensions{Unit: DefaultDimensionUnit}
}

// String renders the canonical labeled form used across the catalog,
// "L: {w}{unit}, A: {h}{unit}, P: {d}{unit}".
func (d Dimensions) String() string {
	unit := d.Unit
	if unit == "" {
		unit = DefaultDimensionUnit
	}
	return fmt.Sprintf("L: %s%s, A: %s%s, P: %s%s", d.Width, unit, d.Height, unit, d.Depth, unit)
}

// IsZero reports whether no numeric component has been specified.
func (d Dimensions) IsZero() bool {
	return d.Width == "" && d.Height == "" && d.Depth == ""
}

func parseLabeledDimensions(text string) (Dimensions, bool) {
	match := dimensionLabeledPattern.FindStringSubmatch(text)
	if match == nil {
		return Dimensions{}, false
	}
	return Dimensions{
		Width:  match[1],
		Height: match[3],
		Depth:  match[5],
		Unit:   firstDimensionUnit(match[2], match[4], match[6]),
	}, true
}

func parseSeparatedDimensions(text string) (Dimensions, bool) {
	match := dimensionSeparatorPattern.FindStringSubmatch(text)
	if match == nil {
		return Dimensions{}, false
	}
	return Dimensions{
		Width:  match[1],
		Height: match[3],
		Depth:  match[5],
		Unit:   firstDimensionUnit(match[2], match[4], match[6]),
	}, true
}

func parseLooseDimensions(text string) (Dimensions, bool) {
	tokens := strings.Fields(text)
	unit := ""
	if len(tokens) > 0 && dimensionUnitPattern.MatchString(tokens[len(tokens)-1]) {
		unit = strings.ToLower(tokens[len(tokens)-1])
		tokens = tokens[:len(tokens)-1]
	}
	var numbers []string
	for _, token := range tokens {
		if dimensionNumberPattern.MatchString(token) {
			numbers = append(numbers, token)
		}
	}
	if len(numbers) < 3 {
		return Dimensions{}, false
	}
	if unit == "" {
		unit = DefaultDimensionUnit
	}
	return Dimensions{Width: numbers[0], Height: numbers[1], Depth: numbers[2], Unit: unit}, true
}

func firstDimensionUnit(candidates ...string) string {
	for _, candidate := range candidates {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate != "" && dimensionUnitPattern.MatchString(candidate) {
			return candidate
		}
	}
	return DefaultDimensionUnit
}
