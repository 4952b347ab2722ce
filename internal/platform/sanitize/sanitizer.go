// Package sanitize strips markup from free-text fields before they enter a
// product draft.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer removes every HTML element and unescapes the remaining
// entities, leaving plain text suitable for descriptions and SEO fields.
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer constructs a strict-policy sanitizer.
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize strips tags and normalizes surrounding whitespace.
func (s *TextSanitizer) Sanitize(value string) string {
	if s == nil || s.policy == nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(value)))
}
