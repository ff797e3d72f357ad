package model

import "strings"

// ClassificationResult is the structured output expected from the LLM for a
// single email.
type ClassificationResult struct {
	PrimaryCategory   string  `json:"primaryCategory"`
	SecondaryCategory string  `json:"secondaryCategory"`
	TertiaryCategory  string  `json:"tertiaryCategory,omitempty"`
	Summary           string  `json:"summary"`
	Confidence        float64 `json:"confidence"`
	AICanReply        bool    `json:"aiCanReply"`
}

// tertiaryRequiredSecondaries lists the secondary categories that must carry
// a tertiary category. This is a hard business rule shared by the prompt
// builder (which states it to the LLM) and the validator (which enforces it
// on the response).
var tertiaryRequiredSecondaries = []string{
	"e-transfer",
	"receipts",
	"invoice",
	"bank-alert",
	"refund",
}

// TertiaryRequired reports whether the given secondary category requires a
// non-empty tertiary category.
func TertiaryRequired(secondary string) bool {
	for _, s := range tertiaryRequiredSecondaries {
		if strings.EqualFold(s, secondary) {
			return true
		}
	}
	return false
}

// TertiaryRequiredSecondaries returns the secondary categories that demand a
// tertiary category, for embedding verbatim into prompts.
func TertiaryRequiredSecondaries() []string {
	out := make([]string, len(tertiaryRequiredSecondaries))
	copy(out, tertiaryRequiredSecondaries)
	return out
}
