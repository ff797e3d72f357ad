package feedback

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/floworx/floworx-core/internal/model"
	"github.com/floworx/floworx-core/internal/service"
)

const defaultExportPageSize = 100

// TrainingExample is one prompt/completion pair for downstream fine-tuning.
type TrainingExample struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// Exporter streams a tenant's corrections as training examples, filtered
// to confidenceRating >= minQuality. Correction volume is unbounded over
// time, so the exporter pages lazily and can be restarted from an offset.
type Exporter struct {
	store      service.Storage
	tenantID   string
	minQuality int
	pageSize   int
	offset     int
	exhausted  bool
}

// NewExporter creates an exporter starting at offset zero.
func NewExporter(store service.Storage, tenantID string, minQuality int) *Exporter {
	return &Exporter{
		store:      store,
		tenantID:   tenantID,
		minQuality: minQuality,
		pageSize:   defaultExportPageSize,
	}
}

// Offset returns the position to resume from in a later run.
func (e *Exporter) Offset() int {
	return e.offset
}

// SetOffset positions the exporter, typically from a checkpoint saved by a
// previous run.
func (e *Exporter) SetOffset(offset int) {
	e.offset = offset
	e.exhausted = false
}

// Next returns the next page of training examples. It returns an empty
// slice once the corrections are exhausted.
func (e *Exporter) Next(ctx context.Context) ([]TrainingExample, error) {
	if e.exhausted {
		return nil, nil
	}

	corrections, err := e.store.GetCorrections(ctx, e.tenantID, service.CorrectionFilter{
		MinRating: e.minQuality,
		Limit:     e.pageSize,
		Offset:    e.offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load corrections page at offset %d: %w", e.offset, err)
	}

	if len(corrections) == 0 {
		e.exhausted = true
		return nil, nil
	}
	e.offset += len(corrections)
	if len(corrections) < e.pageSize {
		e.exhausted = true
	}

	examples := make([]TrainingExample, 0, len(corrections))
	for _, c := range corrections {
		example, err := buildExample(c)
		if err != nil {
			return nil, err
		}
		examples = append(examples, example)
	}
	return examples, nil
}

// buildExample renders the correction as the conversation the model should
// have had: the email context plus the wrong answer in, the corrected
// classification out.
func buildExample(c model.CorrectionFeedback) (TrainingExample, error) {
	completion, err := json.Marshal(c.CorrectedCategories)
	if err != nil {
		return TrainingExample{}, fmt.Errorf("failed to encode correction %s: %w", c.ID, err)
	}

	prompt := fmt.Sprintf(
		"Subject: %s\nOriginal classification: %s / %s / %s\nCorrection reason: %s",
		c.EmailSubject,
		c.OriginalCategories.PrimaryCategory,
		c.OriginalCategories.SecondaryCategory,
		c.OriginalCategories.TertiaryCategory,
		c.CorrectionReason,
	)

	return TrainingExample{Prompt: prompt, Completion: string(completion)}, nil
}
