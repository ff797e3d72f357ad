// Package feedback implements the correction loop: recording human
// overrides of AI classifications, measuring accuracy from them, and
// exporting approved corrections as fine-tuning examples.
package feedback

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/floworx/floworx-core/internal/model"
)

// highConfidenceThreshold marks corrections where the AI was confidently
// wrong. Those drive prompt-rule fixes before anything else.
const highConfidenceThreshold = 0.8

// NewCorrection builds an append-only correction record in the pending
// training state. The record is immutable once stored except for training
// status transitions.
func NewCorrection(tenantID, emailSubject string, original, corrected model.ClassificationResult, rating int, reason string) (*model.CorrectionFeedback, error) {
	c := &model.CorrectionFeedback{
		ID:                  uuid.NewString(),
		TenantID:            tenantID,
		EmailSubject:        emailSubject,
		OriginalCategories:  original,
		CorrectedCategories: corrected,
		ConfidenceRating:    rating,
		CorrectionReason:    reason,
		TrainingStatus:      model.TrainingPending,
		CreatedAt:           time.Now().UTC(),
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid correction: %w", err)
	}
	return c, nil
}

// Advance moves a correction one step along the training pipeline.
// Transitions are monotonic; skipping or reversing a step is an error.
func Advance(c *model.CorrectionFeedback, next model.TrainingStatus) error {
	if !c.TrainingStatus.CanTransitionTo(next) {
		return fmt.Errorf("illegal training status transition %s -> %s for correction %s",
			c.TrainingStatus, next, c.ID)
	}
	c.TrainingStatus = next
	return nil
}

// Metrics summarizes classification accuracy over a set of corrections.
type Metrics struct {
	// AvgOriginalConfidence is nil when there are no corrections. A zero
	// would be indistinguishable from "the AI was always sure and wrong".
	AvgOriginalConfidence    *float64
	TotalCorrections         int
	HighConfidenceErrorCount int
	CorrectionRate           float64
}

// ComputeAccuracyMetrics derives accuracy numbers from corrections already
// filtered to the window of interest. totalClassified is the number of
// classifications made in the same window and anchors the correction rate.
func ComputeAccuracyMetrics(corrections []model.CorrectionFeedback, totalClassified int) Metrics {
	m := Metrics{TotalCorrections: len(corrections)}

	if totalClassified > 0 {
		m.CorrectionRate = float64(len(corrections)) / float64(totalClassified)
	}

	if len(corrections) == 0 {
		return m
	}

	var sum float64
	for _, c := range corrections {
		sum += c.OriginalCategories.Confidence
		if c.OriginalCategories.Confidence >= highConfidenceThreshold {
			m.HighConfidenceErrorCount++
		}
	}
	avg := sum / float64(len(corrections))
	m.AvgOriginalConfidence = &avg

	return m
}
