package services

import (
	"strings"

	domain "github.com/ateliedecor/api/internal/domain"
)

// Checklist labels shown alongside each completion predicate.
const (
	completionLabelBaseName       = "Nome do produto preenchido"
	completionLabelCategory       = "Categoria selecionada"
	completionLabelVariants       = "Pelo menos uma cor adicionada"
	completionLabelVariantImages  = "Todas as cores com foto"
	completionLabelSEOTitle       = "Título SEO preenchido"
	completionLabelSEODescription = "Descrição SEO preenchida"
)

// EvaluateCompletion derives the authoring checklist from the current draft
// state. It is recomputed from scratch on every call, never caches, and never
// mutates the draft; publish performs its own stricter validation.
func EvaluateCompletion(draft domain.ProductDraft) []domain.CompletionItem {
	return []domain.CompletionItem{
		{Label: completionLabelBaseName, Completed: strings.TrimSpace(draft.BaseName) != ""},
		{Label: completionLabelCategory, Completed: strings.TrimSpace(draft.CategoryID) != ""},
		{Label: completionLabelVariants, Completed: len(draft.Variants) > 0},
		{Label: completionLabelVariantImages, Completed: allVariantsHaveImages(draft.Variants)},
		{Label: completionLabelSEOTitle, Completed: strings.TrimSpace(draft.SEOTitle) != ""},
		{Label: completionLabelSEODescription, Completed: strings.TrimSpace(draft.SEODescription) != ""},
	}
}

// AllComplete reports whether every checklist predicate holds.
func AllComplete(items []domain.CompletionItem) bool {
	for _, item := range items {
		if !item.Completed {
			return false
		}
	}
	return true
}

func allVariantsHaveImages(variants []domain.Variant) bool {
	if len(variants) == 0 {
		return false
	}
	for _, variant := range variants {
		if len(variant.Images) == 0 {
			return false
		}
	}
	return true
}
