package model

import (
	"fmt"
	"time"
)

// TrainingStatus tracks a correction through the training pipeline.
type TrainingStatus string

// Training status constants. Transitions are monotonic:
// pending -> approved -> used_in_training.
const (
	TrainingPending  TrainingStatus = "pending"
	TrainingApproved TrainingStatus = "approved"
	TrainingUsed     TrainingStatus = "used_in_training"
)

var trainingOrder = map[TrainingStatus]int{
	TrainingPending:  0,
	TrainingApproved: 1,
	TrainingUsed:     2,
}

// Valid reports whether the status is a known training status.
func (s TrainingStatus) Valid() bool {
	_, ok := trainingOrder[s]
	return ok
}

// CanTransitionTo reports whether moving to next is a legal forward step.
func (s TrainingStatus) CanTransitionTo(next TrainingStatus) bool {
	cur, ok := trainingOrder[s]
	if !ok {
		return false
	}
	nxt, ok := trainingOrder[next]
	if !ok {
		return false
	}
	return nxt == cur+1
}

// CorrectionFeedback records a human override of an AI classification.
// Immutable once created except for TrainingStatus transitions.
type CorrectionFeedback struct {
	CreatedAt          time.Time
	ID                 string
	TenantID           string
	EmailSubject       string
	CorrectionReason   string
	TrainingStatus     TrainingStatus
	OriginalCategories ClassificationResult
	CorrectedCategories ClassificationResult
	ConfidenceRating   int
}

// Validate checks the correction's structural invariants.
func (c *CorrectionFeedback) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("correction ID is required")
	}
	if c.ConfidenceRating < 1 || c.ConfidenceRating > 5 {
		return fmt.Errorf("confidence rating must be between 1 and 5, got %d", c.ConfidenceRating)
	}
	if !c.TrainingStatus.Valid() {
		return fmt.Errorf("invalid training status: %s", c.TrainingStatus)
	}
	return nil
}
