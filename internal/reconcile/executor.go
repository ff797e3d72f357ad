package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/floworx/floworx-core/internal/common"
	"github.com/floworx/floworx-core/internal/model"
	"github.com/floworx/floworx-core/internal/service"
)

const (
	// defaultOpsPerSecond keeps a single tenant's reconciliation well under
	// Gmail's per-user label mutation quota.
	defaultOpsPerSecond = 2
	verifyAttempts      = 3
)

// AppliedOp records a successfully executed operation and the provider
// label it now refers to.
type AppliedOp struct {
	Op      Operation
	LabelID string
}

// FailedOp records an operation that could not be applied.
type FailedOp struct {
	Err error
	Op  Operation
}

// Result is the partial outcome of applying a plan. A failed operation
// never aborts the rest of the plan; each op stands alone.
type Result struct {
	Applied []AppliedOp
	Failed  []FailedOp
}

// Executor applies reconciliation plans through a provider label API.
// Operations run sequentially per tenant so concurrent creations cannot
// race the provider into duplicate labels.
type Executor struct {
	api     service.LabelAPI
	limiter *rate.Limiter
	logger  *slog.Logger
	verify  service.RetryOptions
}

// NewExecutor creates an executor with provider-safe rate limiting.
func NewExecutor(api service.LabelAPI, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(defaultOpsPerSecond), 1),
		logger:  logger,
		verify: service.RetryOptions{
			MaxAttempts:  verifyAttempts,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// Apply executes the plan in order, binding created and adopted labels back
// onto the tree. It returns the partial result and a nil error unless the
// context is cancelled; per-op failures live in Result.Failed.
func (e *Executor) Apply(ctx context.Context, tree *model.TaxonomyTree, plan *Plan) (*Result, error) {
	result := &Result{}

	for _, op := range plan.Ops {
		if err := e.limiter.Wait(ctx); err != nil {
			return result, err
		}

		labelID, err := e.applyOne(ctx, tree, op)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			e.logger.Warn("reconcile operation failed",
				"kind", op.Kind,
				"path", op.Path,
				"error", err)
			result.Failed = append(result.Failed, FailedOp{Op: op, Err: err})
			continue
		}

		result.Applied = append(result.Applied, AppliedOp{Op: op, LabelID: labelID})
	}

	e.logger.Info("reconcile plan applied",
		"applied", len(result.Applied),
		"failed", len(result.Failed))
	return result, nil
}

func (e *Executor) applyOne(ctx context.Context, tree *model.TaxonomyTree, op Operation) (string, error) {
	switch op.Kind {
	case OpBind:
		if err := tree.BindLabel(op.Node, op.LabelID, true); err != nil {
			return "", fmt.Errorf("failed to adopt label %s for %s: %w", op.LabelID, op.Path, err)
		}
		return op.LabelID, nil

	case OpCreate:
		return e.create(ctx, tree, op)

	case OpMove:
		parentID, err := e.resolveParent(op)
		if err != nil {
			return "", err
		}
		moved, err := e.api.MoveLabel(ctx, op.LabelID, parentID)
		if err != nil {
			return "", fmt.Errorf("failed to move label %s: %w", op.Path, err)
		}
		return moved.ID, nil

	default:
		return "", fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

// create makes the label, then re-reads it before trusting the binding.
// Some providers acknowledge a create before the label is visible to
// subsequent calls, and a child create against an unverified parent fails.
func (e *Executor) create(ctx context.Context, tree *model.TaxonomyTree, op Operation) (string, error) {
	parentID, err := e.resolveParent(op)
	if err != nil {
		return "", err
	}

	created, err := e.api.CreateLabel(ctx, op.Name, parentID)
	if err != nil {
		return "", fmt.Errorf("failed to create label %s: %w", op.Path, err)
	}

	err = common.WithRetry(ctx, func() error {
		if _, getErr := e.api.GetLabel(ctx, created.ID); getErr != nil {
			return &common.RetryableError{Err: getErr, Retryable: true}
		}
		return nil
	}, e.verify)
	if err != nil {
		return "", fmt.Errorf("created label %s not visible after %d checks: %w", op.Path, e.verify.MaxAttempts, err)
	}

	if err := tree.BindLabel(op.Node, created.ID, true); err != nil {
		return "", fmt.Errorf("failed to bind created label %s: %w", op.Path, err)
	}
	return created.ID, nil
}

// resolveParent prefers the plan-time parent ID and falls back to the
// binding recorded by an earlier operation in the same run.
func (e *Executor) resolveParent(op Operation) (string, error) {
	if op.ParentID != "" {
		return op.ParentID, nil
	}
	if op.Node == nil || op.Node.Parent == nil {
		return "", nil
	}
	if op.Node.Parent.ProviderLabelID == "" {
		return "", fmt.Errorf("parent %s has no label binding for %s", op.ParentPath, op.Path)
	}
	return op.Node.Parent.ProviderLabelID, nil
}

// DeleteOrphans removes explicitly listed provider labels. The list must
// come from the tenant acting on an Orphans report; reconciliation itself
// never deletes.
func (e *Executor) DeleteOrphans(ctx context.Context, orphans []model.ProviderLabel) (*Result, error) {
	result := &Result{}

	for _, l := range orphans {
		if err := e.limiter.Wait(ctx); err != nil {
			return result, err
		}

		op := Operation{Kind: OpDelete, Path: l.Name, Name: l.Name, LabelID: l.ID}
		if err := e.api.DeleteLabel(ctx, l.ID); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			e.logger.Warn("orphan delete failed", "label", l.Name, "error", err)
			result.Failed = append(result.Failed, FailedOp{Op: op, Err: err})
			continue
		}
		result.Applied = append(result.Applied, AppliedOp{Op: op, LabelID: l.ID})
	}

	return result, nil
}
