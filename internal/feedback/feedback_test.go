package feedback

import (
	"testing"

	"github.com/floworx/floworx-core/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCorrection(t *testing.T) {
	original := model.ClassificationResult{PrimaryCategory: "SALES", Confidence: 0.9}
	corrected := model.ClassificationResult{PrimaryCategory: "SUPPORT", Confidence: 0.9}

	c, err := NewCorrection("tenant-1", "Re: hot tub cover", original, corrected, 4, "sales pitch was actually a warranty claim")
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, model.TrainingPending, c.TrainingStatus)
	assert.Equal(t, "tenant-1", c.TenantID)
	assert.Equal(t, "SUPPORT", c.CorrectedCategories.PrimaryCategory)
	assert.False(t, c.CreatedAt.IsZero())
}

func TestNewCorrection_RejectsInvalidRating(t *testing.T) {
	for _, rating := range []int{0, -1, 6} {
		_, err := NewCorrection("tenant-1", "subj", model.ClassificationResult{}, model.ClassificationResult{}, rating, "")
		assert.Error(t, err, "rating %d", rating)
	}
}

func TestAdvance(t *testing.T) {
	c := &model.CorrectionFeedback{ID: "c-1", TrainingStatus: model.TrainingPending}

	require.NoError(t, Advance(c, model.TrainingApproved))
	assert.Equal(t, model.TrainingApproved, c.TrainingStatus)

	require.NoError(t, Advance(c, model.TrainingUsed))

	// Terminal state: no further transitions, no reversals.
	assert.Error(t, Advance(c, model.TrainingApproved))
	assert.Error(t, Advance(c, model.TrainingPending))
}

func TestAdvance_NoSkipping(t *testing.T) {
	c := &model.CorrectionFeedback{ID: "c-2", TrainingStatus: model.TrainingPending}
	assert.Error(t, Advance(c, model.TrainingUsed))
	assert.Equal(t, model.TrainingPending, c.TrainingStatus)
}

func TestComputeAccuracyMetrics_EmptyListHasNilAverage(t *testing.T) {
	m := ComputeAccuracyMetrics(nil, 0)

	assert.Equal(t, 0, m.TotalCorrections)
	assert.Equal(t, 0.0, m.CorrectionRate)
	assert.Equal(t, 0, m.HighConfidenceErrorCount)
	// Nil distinguishes "no data" from "average confidence of zero".
	assert.Nil(t, m.AvgOriginalConfidence)
}

func TestComputeAccuracyMetrics(t *testing.T) {
	corrections := []model.CorrectionFeedback{
		{OriginalCategories: model.ClassificationResult{Confidence: 0.9}},
		{OriginalCategories: model.ClassificationResult{Confidence: 0.8}},
		{OriginalCategories: model.ClassificationResult{Confidence: 0.4}},
	}

	m := ComputeAccuracyMetrics(corrections, 100)

	assert.Equal(t, 3, m.TotalCorrections)
	assert.InDelta(t, 0.03, m.CorrectionRate, 0.0001)
	require.NotNil(t, m.AvgOriginalConfidence)
	assert.InDelta(t, 0.7, *m.AvgOriginalConfidence, 0.0001)
	// 0.9 and 0.8 are at or above the high-confidence threshold.
	assert.Equal(t, 2, m.HighConfidenceErrorCount)
}

func TestComputeAccuracyMetrics_ZeroClassifiedAvoidsDivisionByZero(t *testing.T) {
	corrections := []model.CorrectionFeedback{
		{OriginalCategories: model.ClassificationResult{Confidence: 0.5}},
	}

	m := ComputeAccuracyMetrics(corrections, 0)
	assert.Equal(t, 0.0, m.CorrectionRate)
	assert.Equal(t, 1, m.TotalCorrections)
}
