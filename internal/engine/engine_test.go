package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/floworx/floworx-core/internal/classify"
	"github.com/floworx/floworx-core/internal/model"
	"github.com/floworx/floworx-core/internal/prompt"
	"github.com/floworx/floworx-core/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConfigStore serves a fixed tenant config.
type fakeConfigStore struct {
	cfg *model.TenantConfig
}

func (f *fakeConfigStore) TenantConfig(_ context.Context, tenantID string) (*model.TenantConfig, error) {
	if f.cfg == nil || f.cfg.TenantID != tenantID {
		return nil, errors.New("unknown tenant")
	}
	return f.cfg, nil
}

func (f *fakeConfigStore) TenantIDs(_ context.Context) ([]string, error) {
	if f.cfg == nil {
		return nil, nil
	}
	return []string{f.cfg.TenantID}, nil
}

// fakeStorage records what the engine persists.
type fakeStorage struct {
	service.Storage
	corrections []model.CorrectionFeedback
	decisions   []model.RoutingDecision
	classified  int
}

func (f *fakeStorage) SaveCorrection(_ context.Context, c *model.CorrectionFeedback) error {
	f.corrections = append(f.corrections, *c)
	return nil
}

func (f *fakeStorage) GetCorrections(_ context.Context, _ string, _ service.CorrectionFilter) ([]model.CorrectionFeedback, error) {
	return f.corrections, nil
}

func (f *fakeStorage) SaveRoutingDecision(_ context.Context, d *model.RoutingDecision) error {
	f.decisions = append(f.decisions, *d)
	return nil
}

func (f *fakeStorage) CountRoutingDecisions(_ context.Context, _ string, _ time.Time) (int, error) {
	return f.classified, nil
}

// fakeLLM returns one canned completion.
type fakeLLM struct {
	response string
}

func (f *fakeLLM) Complete(_ context.Context, _, _ string) (string, error) {
	return f.response, nil
}

// fakeLabels is a minimal in-memory label provider.
type fakeLabels struct {
	labels map[string]model.ProviderLabel
	nextID int
}

func newFakeLabels() *fakeLabels {
	return &fakeLabels{labels: make(map[string]model.ProviderLabel)}
}

func (f *fakeLabels) ListLabels(_ context.Context) ([]model.ProviderLabel, error) {
	var out []model.ProviderLabel
	for _, l := range f.labels {
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeLabels) GetLabel(_ context.Context, id string) (model.ProviderLabel, error) {
	l, ok := f.labels[id]
	if !ok {
		return model.ProviderLabel{}, errors.New("label not found")
	}
	return l, nil
}

func (f *fakeLabels) CreateLabel(_ context.Context, name, parentID string) (model.ProviderLabel, error) {
	f.nextID++
	l := model.ProviderLabel{ID: fmt.Sprintf("id-%d", f.nextID), Name: name, ParentID: parentID}
	f.labels[l.ID] = l
	return l, nil
}

func (f *fakeLabels) MoveLabel(_ context.Context, id, newParentID string) (model.ProviderLabel, error) {
	l := f.labels[id]
	l.ParentID = newParentID
	f.labels[id] = l
	return l, nil
}

func (f *fakeLabels) DeleteLabel(_ context.Context, id string) error {
	delete(f.labels, id)
	return nil
}

func (f *fakeLabels) Hierarchical() bool { return true }

func testTenantConfig(t *testing.T) *model.TenantConfig {
	t.Helper()

	tree := model.NewTaxonomyTree()
	support, err := tree.AddNode(nil, "SUPPORT")
	require.NoError(t, err)
	_, err = tree.AddNode(support, "general")
	require.NoError(t, err)
	_, err = tree.AddNode(nil, "BANKING")
	require.NoError(t, err)

	return &model.TenantConfig{
		TenantID: "tenant-1",
		Provider: "gmail",
		Business: model.BusinessInfo{Name: "Hailey's Hot Tubs"},
		Taxonomy: tree,
		Managers: []model.Manager{
			{Name: "Hailey", Email: "hailey@example.com"},
			{Name: "Aaron"},
		},
		NoReplyCategories: []string{"BANKING"},
	}
}

func newTestEngine(t *testing.T, store *fakeStorage, llmResponse string, labels service.LabelAPI) *Engine {
	t.Helper()

	builder, err := prompt.NewBuilder()
	require.NoError(t, err)
	classifier := classify.NewClassifier(&fakeLLM{response: llmResponse}, builder, slog.Default())

	factory := func(_ context.Context, _ *model.TenantConfig) (service.LabelAPI, error) {
		if labels == nil {
			return nil, errors.New("no label API configured")
		}
		return labels, nil
	}

	return New(&fakeConfigStore{cfg: testTenantConfig(t)}, store, classifier, factory, slog.Default())
}

func TestEngine_Classify(t *testing.T) {
	store := &fakeStorage{}
	eng := newTestEngine(t, store,
		`{"primaryCategory":"SUPPORT","secondaryCategory":"general","summary":"s","confidence":0.8,"aiCanReply":true}`,
		nil)

	result, err := eng.Classify(context.Background(), "tenant-1", model.Email{MessageID: "m-1", Subject: "help"})
	require.NoError(t, err)
	assert.Equal(t, "SUPPORT", result.PrimaryCategory)
}

func TestEngine_RoutePersistsDecision(t *testing.T) {
	store := &fakeStorage{}
	eng := newTestEngine(t, store, "", nil)

	email := model.Email{MessageID: "m-1", Body: "please ask hailey"}
	classification := model.ClassificationResult{PrimaryCategory: "SUPPORT", AICanReply: true}

	decision, err := eng.Route(context.Background(), "tenant-1", email, classification)
	require.NoError(t, err)

	assert.Equal(t, "Hailey", decision.Manager)
	assert.NotEmpty(t, decision.ID)
	assert.Equal(t, "tenant-1", decision.TenantID)
	assert.Equal(t, "m-1", decision.MessageID)
	assert.False(t, decision.Timestamp.IsZero())
	assert.True(t, decision.DraftAllowed)

	require.Len(t, store.decisions, 1)
	assert.Equal(t, decision.ID, store.decisions[0].ID)
}

func TestEngine_RouteBlocksDraftsForNoReplyCategories(t *testing.T) {
	store := &fakeStorage{}
	eng := newTestEngine(t, store, "", nil)

	classification := model.ClassificationResult{PrimaryCategory: "BANKING", AICanReply: true}
	decision, err := eng.Route(context.Background(), "tenant-1", model.Email{MessageID: "m-2"}, classification)
	require.NoError(t, err)
	assert.False(t, decision.DraftAllowed)
}

func TestEngine_ReconcilePlanOnly(t *testing.T) {
	labels := newFakeLabels()
	eng := newTestEngine(t, &fakeStorage{}, "", labels)

	report, err := eng.Reconcile(context.Background(), "tenant-1", false)
	require.NoError(t, err)

	// Three taxonomy nodes, all missing, none applied.
	assert.Len(t, report.Plan.Ops, 3)
	assert.Nil(t, report.Result)
	assert.Empty(t, labels.labels)
}

func TestEngine_ReconcileApply(t *testing.T) {
	labels := newFakeLabels()
	eng := newTestEngine(t, &fakeStorage{}, "", labels)

	report, err := eng.Reconcile(context.Background(), "tenant-1", true)
	require.NoError(t, err)
	require.NotNil(t, report.Result)
	assert.Len(t, report.Result.Applied, 3)
	assert.Len(t, labels.labels, 3)
}

func TestEngine_RecordCorrectionAndMetrics(t *testing.T) {
	store := &fakeStorage{classified: 50}
	eng := newTestEngine(t, store, "", nil)

	original := model.ClassificationResult{PrimaryCategory: "SUPPORT", Confidence: 0.9}
	corrected := model.ClassificationResult{PrimaryCategory: "BANKING", Confidence: 0.9}

	c, err := eng.RecordCorrection(context.Background(), "tenant-1", "subj", original, corrected, 5, "wrong bucket")
	require.NoError(t, err)
	assert.Equal(t, model.TrainingPending, c.TrainingStatus)
	require.Len(t, store.corrections, 1)

	metrics, err := eng.AccuracyMetrics(context.Background(), "tenant-1", time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.TotalCorrections)
	assert.InDelta(t, 0.02, metrics.CorrectionRate, 0.0001)
	assert.Equal(t, 1, metrics.HighConfidenceErrorCount)
}

func TestEngine_PromptPreview(t *testing.T) {
	eng := newTestEngine(t, &fakeStorage{}, "", nil)

	preview, err := eng.PromptPreview(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Contains(t, preview, "Hailey's Hot Tubs")
	assert.Contains(t, preview, "SUPPORT")
}
