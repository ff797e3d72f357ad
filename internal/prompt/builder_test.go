package prompt

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/floworx/floworx-core/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTenantConfig(t *testing.T) *model.TenantConfig {
	t.Helper()

	tree := model.NewTaxonomyTree()
	banking, err := tree.AddNode(nil, "BANKING")
	require.NoError(t, err)
	etransfer, err := tree.AddNode(banking, "e-transfer")
	require.NoError(t, err)
	_, err = tree.AddNode(etransfer, "sent")
	require.NoError(t, err)
	support, err := tree.AddNode(nil, "SUPPORT")
	require.NoError(t, err)
	_, err = tree.AddNode(support, "general")
	require.NoError(t, err)

	return &model.TenantConfig{
		TenantID: "tenant-1",
		Business: model.BusinessInfo{
			Name:           "Hailey's Hot Tubs",
			Domain:         "haileyshottubs.ca",
			Phone:          "555-0182",
			ServiceArea:    "Greater Moncton",
			OperatingHours: "Mon-Fri 8am-5pm",
			BusinessType:   "hot tub retail and service",
		},
		Managers: []model.Manager{
			{Name: "Hailey Park", Email: "hailey@haileyshottubs.ca", ForwardEnabled: true},
			{Name: "Aaron Smith", Email: "aaron@haileyshottubs.ca", ForwardEnabled: true},
		},
		Suppliers: []model.Supplier{
			{Name: "AquaSpa Parts", Domains: []string{"aquaspaparts.com"}},
		},
		Taxonomy: tree,
	}
}

func TestBuildClassifierPrompt_EmbedsBusinessContext(t *testing.T) {
	builder, err := NewBuilder()
	require.NoError(t, err)

	cfg := testTenantConfig(t)
	out, err := builder.BuildClassifierPrompt(cfg, nil)
	require.NoError(t, err)

	// Business context is embedded verbatim and untruncated.
	for _, want := range []string{
		"Hailey's Hot Tubs",
		"haileyshottubs.ca",
		"555-0182",
		"Greater Moncton",
		"Mon-Fri 8am-5pm",
		"Hailey Park, Aaron Smith",
		"AquaSpa Parts",
	} {
		assert.Contains(t, out, want)
	}

	// Full taxonomy with the mandatory tertiary marker on e-transfer.
	assert.Contains(t, out, "- BANKING")
	assert.Contains(t, out, "e-transfer [MANDATORY TERTIARY CATEGORY]")
	assert.Contains(t, out, "- sent")
	assert.Contains(t, out, "- general")

	// The hard rule lists every mandatory secondary.
	assert.Contains(t, out, "e-transfer, receipts, invoice, bank-alert, refund")

	// No history yields the none tier.
	assert.Contains(t, out, "quality tier: none")
}

func TestBuildClassifierPrompt_Deterministic(t *testing.T) {
	builder, err := NewBuilder()
	require.NoError(t, err)

	cfg := testTenantConfig(t)
	corrections := []model.CorrectionFeedback{
		{
			ID:           "c-1",
			EmailSubject: "etransfer received",
			OriginalCategories: model.ClassificationResult{
				PrimaryCategory: "SUPPORT", SecondaryCategory: "general",
			},
			CorrectedCategories: model.ClassificationResult{
				PrimaryCategory: "BANKING", SecondaryCategory: "e-transfer", TertiaryCategory: "sent",
			},
			ConfidenceRating: 5,
			TrainingStatus:   model.TrainingPending,
			CreatedAt:        time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
		},
	}

	first, err := builder.BuildClassifierPrompt(cfg, corrections)
	require.NoError(t, err)
	second, err := builder.BuildClassifierPrompt(cfg, corrections)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Contains(t, first, "etransfer received")
	assert.Contains(t, first, "BANKING/e-transfer/sent")
	assert.Contains(t, first, "quality tier: low")
}

func TestBuildClassifierPrompt_CapsExamples(t *testing.T) {
	builder, err := NewBuilder()
	require.NoError(t, err)

	cfg := testTenantConfig(t)
	var corrections []model.CorrectionFeedback
	for i := 0; i < 30; i++ {
		corrections = append(corrections, model.CorrectionFeedback{
			ID:           fmt.Sprintf("c-%d", i),
			EmailSubject: fmt.Sprintf("subject-%d", i),
			OriginalCategories: model.ClassificationResult{
				PrimaryCategory: "SUPPORT",
			},
			CorrectedCategories: model.ClassificationResult{
				PrimaryCategory: "BANKING",
			},
			ConfidenceRating: 3,
			TrainingStatus:   model.TrainingPending,
			CreatedAt:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
		})
	}

	out, err := builder.BuildClassifierPrompt(cfg, corrections)
	require.NoError(t, err)

	shown := strings.Count(out, "- Subject: subject-")
	assert.Equal(t, maxCorrectionExamples, shown)

	// Newest corrections win the example slots; total count still reported.
	assert.Contains(t, out, "subject-29")
	assert.NotContains(t, out, "subject-0\n")
	assert.Contains(t, out, "30 human corrections on record")
	assert.Contains(t, out, "quality tier: high")
}

func TestTierForCount(t *testing.T) {
	tests := []struct {
		count int
		want  QualityTier
	}{
		{0, TierNone},
		{1, TierLow},
		{4, TierLow},
		{5, TierMedium},
		{19, TierMedium},
		{20, TierHigh},
		{100, TierHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierForCount(tt.count), "count %d", tt.count)
	}
}

func TestBuildRetryPrompt(t *testing.T) {
	builder, err := NewBuilder()
	require.NoError(t, err)

	out, err := builder.BuildRetryPrompt(RetryData{
		InvalidResponse: `{"primaryCategory": "BANKING", "secondaryCategory": "e-transfer"}`,
		ErrorDetails:    "tertiaryCategory is required for secondary category e-transfer",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "rejected")
	assert.Contains(t, out, `"secondaryCategory": "e-transfer"`)
	assert.Contains(t, out, "tertiaryCategory is required")
}
