// Package classify turns raw email plus tenant configuration into a
// validated classification by driving the LLM and checking its output.
package classify

import (
	"fmt"
	"strings"

	"github.com/floworx/floworx-core/internal/common"
	"github.com/floworx/floworx-core/internal/model"
)

// ValidateClassification checks an LLM classification against the tenant's
// taxonomy. Violations are never silently accepted; the caller decides
// between a stricter retry and a human-queue fallback.
func ValidateClassification(result model.ClassificationResult, taxonomy *model.TaxonomyTree) error {
	if taxonomy == nil {
		return fmt.Errorf("taxonomy is required")
	}

	if result.PrimaryCategory == "" {
		return common.NewValidationError("primaryCategory", "must not be empty")
	}

	primary := taxonomy.FindByName(model.LevelPrimary, result.PrimaryCategory)
	if primary == nil {
		return common.NewValidationError("primaryCategory", "%q is not in the taxonomy", result.PrimaryCategory)
	}

	var secondary *model.TaxonomyNode
	if result.SecondaryCategory != "" {
		for _, child := range taxonomy.Children(primary) {
			if strings.EqualFold(child.Name, result.SecondaryCategory) {
				secondary = child
				break
			}
		}
		if secondary == nil {
			return common.NewValidationError("secondaryCategory",
				"%q is not a child of %q", result.SecondaryCategory, result.PrimaryCategory)
		}
	}

	if result.TertiaryCategory != "" {
		if secondary == nil {
			return common.NewValidationError("tertiaryCategory",
				"%q given without a secondary category", result.TertiaryCategory)
		}
		found := false
		for _, child := range taxonomy.Children(secondary) {
			if strings.EqualFold(child.Name, result.TertiaryCategory) {
				found = true
				break
			}
		}
		if !found {
			return common.NewValidationError("tertiaryCategory",
				"%q is not a child of %q", result.TertiaryCategory, result.SecondaryCategory)
		}
	}

	// Hard business rule: certain secondary categories must carry a tertiary.
	if model.TertiaryRequired(result.SecondaryCategory) && result.TertiaryCategory == "" {
		return common.NewValidationError("tertiaryCategory",
			"required for secondary category %q", result.SecondaryCategory)
	}

	if result.Confidence < 0 || result.Confidence > 1 {
		return common.NewValidationError("confidence",
			"must be between 0 and 1, got %.2f", result.Confidence)
	}

	return nil
}
