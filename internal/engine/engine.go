// Package engine wires the classification, routing, reconciliation, and
// feedback components behind one tenant-scoped façade for the delivery
// layer. Every call is request/response; the engine holds no per-tenant
// state between calls.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/floworx/floworx-core/internal/classify"
	"github.com/floworx/floworx-core/internal/common"
	"github.com/floworx/floworx-core/internal/feedback"
	"github.com/floworx/floworx-core/internal/model"
	"github.com/floworx/floworx-core/internal/prompt"
	"github.com/floworx/floworx-core/internal/reconcile"
	"github.com/floworx/floworx-core/internal/router"
	"github.com/floworx/floworx-core/internal/service"
)

// maxPromptCorrections bounds how many corrections are loaded per classify
// call for prompt few-shot examples. The prompt builder trims further.
const maxPromptCorrections = 50

// LabelAPIFactory opens a provider label client for one tenant. The engine
// stays provider-agnostic; the delivery layer owns OAuth tokens.
type LabelAPIFactory func(ctx context.Context, cfg *model.TenantConfig) (service.LabelAPI, error)

// Engine is the top-level entry point into the core.
type Engine struct {
	configs    service.ConfigStore
	storage    service.Storage
	classifier *classify.Classifier
	labelAPIs  LabelAPIFactory
	logger     *slog.Logger
}

// New creates an engine from its collaborators.
func New(configs service.ConfigStore, store service.Storage, classifier *classify.Classifier, labelAPIs LabelAPIFactory, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		configs:    configs,
		storage:    store,
		classifier: classifier,
		labelAPIs:  labelAPIs,
		logger:     logger,
	}
}

// Classify runs the LLM classification for one email, feeding recent
// corrections into the prompt as few-shot examples.
func (e *Engine) Classify(ctx context.Context, tenantID string, email model.Email) (model.ClassificationResult, error) {
	if e.classifier == nil {
		return model.ClassificationResult{}, fmt.Errorf("%w: no LLM client configured", common.ErrMissingConfig)
	}

	cfg, err := e.configs.TenantConfig(ctx, tenantID)
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("failed to load tenant %s: %w", tenantID, err)
	}

	corrections, err := e.storage.GetCorrections(ctx, tenantID, service.CorrectionFilter{
		Limit: maxPromptCorrections,
	})
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("failed to load corrections for tenant %s: %w", tenantID, err)
	}

	return e.classifier.Classify(ctx, email, cfg, corrections)
}

// Route assigns the classified email to a manager and persists the decision
// for audit. The decision always exists, even with an empty roster.
func (e *Engine) Route(ctx context.Context, tenantID string, email model.Email, classification model.ClassificationResult) (model.RoutingDecision, error) {
	cfg, err := e.configs.TenantConfig(ctx, tenantID)
	if err != nil {
		return model.RoutingDecision{}, fmt.Errorf("failed to load tenant %s: %w", tenantID, err)
	}

	decision := router.Route(email, classification, cfg)
	decision.ID = uuid.NewString()
	decision.TenantID = tenantID
	decision.MessageID = email.MessageID
	decision.Timestamp = time.Now().UTC()
	decision.DraftAllowed = classification.AICanReply && cfg.ReplyAllowed(classification.PrimaryCategory)

	if err := e.storage.SaveRoutingDecision(ctx, &decision); err != nil {
		return model.RoutingDecision{}, fmt.Errorf("failed to persist routing decision: %w", err)
	}

	e.logger.Info("email routed",
		"tenant_id", tenantID,
		"message_id", email.MessageID,
		"manager", decision.Manager,
		"priority", decision.Priority,
		"confidence", decision.Confidence)

	return decision, nil
}

// ReconcileReport is the outcome of one tenant reconciliation.
type ReconcileReport struct {
	Plan    *reconcile.Plan
	Result  *reconcile.Result
	Orphans []model.ProviderLabel
}

// Reconcile converges the tenant's provider labels to the configured
// taxonomy. With apply false it only plans; nothing is mutated.
func (e *Engine) Reconcile(ctx context.Context, tenantID string, apply bool) (*ReconcileReport, error) {
	cfg, err := e.configs.TenantConfig(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant %s: %w", tenantID, err)
	}
	if cfg.Taxonomy == nil {
		return nil, fmt.Errorf("tenant %s has no taxonomy configured", tenantID)
	}

	api, err := e.labelAPIs(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open label API for tenant %s: %w", tenantID, err)
	}

	actual, err := api.ListLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list labels for tenant %s: %w", tenantID, err)
	}

	// The listing succeeded, so absence of a bound label is confirmed by
	// the provider, not inferred from a transient failure.
	reconcile.MarkAbsent(cfg.Taxonomy, actual)

	report := &ReconcileReport{
		Plan:    reconcile.BuildPlan(cfg.Taxonomy, actual, api.Hierarchical()),
		Orphans: reconcile.Orphans(cfg.Taxonomy, actual),
	}

	if !apply || report.Plan.Empty() {
		return report, nil
	}

	executor := reconcile.NewExecutor(api, e.logger)
	report.Result, err = executor.Apply(ctx, cfg.Taxonomy, report.Plan)
	if err != nil {
		return report, err
	}
	return report, nil
}

// DeleteOrphans removes the given provider labels for a tenant. This is
// the only path that deletes labels, and it only acts on an explicit list,
// typically the Orphans section of a reconcile report.
func (e *Engine) DeleteOrphans(ctx context.Context, tenantID string, orphans []model.ProviderLabel) (*reconcile.Result, error) {
	if len(orphans) == 0 {
		return &reconcile.Result{}, nil
	}

	cfg, err := e.configs.TenantConfig(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant %s: %w", tenantID, err)
	}
	api, err := e.labelAPIs(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open label API for tenant %s: %w", tenantID, err)
	}

	executor := reconcile.NewExecutor(api, e.logger)
	return executor.DeleteOrphans(ctx, orphans)
}

// RecordCorrection stores a human override of an AI classification.
func (e *Engine) RecordCorrection(ctx context.Context, tenantID, emailSubject string, original, corrected model.ClassificationResult, rating int, reason string) (*model.CorrectionFeedback, error) {
	correction, err := feedback.NewCorrection(tenantID, emailSubject, original, corrected, rating, reason)
	if err != nil {
		return nil, err
	}
	if err := e.storage.SaveCorrection(ctx, correction); err != nil {
		return nil, fmt.Errorf("failed to save correction: %w", err)
	}

	e.logger.Info("correction recorded",
		"tenant_id", tenantID,
		"correction_id", correction.ID,
		"original_primary", original.PrimaryCategory,
		"corrected_primary", corrected.PrimaryCategory)

	return correction, nil
}

// AccuracyMetrics computes correction statistics over the given window.
func (e *Engine) AccuracyMetrics(ctx context.Context, tenantID string, since time.Time) (feedback.Metrics, error) {
	corrections, err := e.storage.GetCorrections(ctx, tenantID, service.CorrectionFilter{Since: &since})
	if err != nil {
		return feedback.Metrics{}, fmt.Errorf("failed to load corrections for tenant %s: %w", tenantID, err)
	}

	totalClassified, err := e.storage.CountRoutingDecisions(ctx, tenantID, since)
	if err != nil {
		return feedback.Metrics{}, fmt.Errorf("failed to count decisions for tenant %s: %w", tenantID, err)
	}

	return feedback.ComputeAccuracyMetrics(corrections, totalClassified), nil
}

// ExportTrainingExamples returns a lazy exporter over the tenant's
// corrections rated at least minQuality.
func (e *Engine) ExportTrainingExamples(tenantID string, minQuality int) *feedback.Exporter {
	return feedback.NewExporter(e.storage, tenantID, minQuality)
}

// PromptPreview renders the tenant's classifier system prompt, useful for
// inspecting what the LLM will actually see.
func (e *Engine) PromptPreview(ctx context.Context, tenantID string) (string, error) {
	cfg, err := e.configs.TenantConfig(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("failed to load tenant %s: %w", tenantID, err)
	}
	corrections, err := e.storage.GetCorrections(ctx, tenantID, service.CorrectionFilter{Limit: maxPromptCorrections})
	if err != nil {
		return "", fmt.Errorf("failed to load corrections for tenant %s: %w", tenantID, err)
	}

	builder, err := prompt.NewBuilder()
	if err != nil {
		return "", err
	}
	return builder.BuildClassifierPrompt(cfg, corrections)
}
