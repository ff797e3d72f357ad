// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/floworx/floworx-core/internal/model"
)

// LabelAPI abstracts the mail provider's label/folder operations. Gmail
// labels are flat (paths encoded in names); Outlook folders are a real
// hierarchy. Implementations normalize both behind this interface.
type LabelAPI interface {
	ListLabels(ctx context.Context) ([]model.ProviderLabel, error)
	GetLabel(ctx context.Context, id string) (model.ProviderLabel, error)
	CreateLabel(ctx context.Context, name, parentID string) (model.ProviderLabel, error)
	MoveLabel(ctx context.Context, id, newParentID string) (model.ProviderLabel, error)
	DeleteLabel(ctx context.Context, id string) error
	// Hierarchical reports whether the provider supports real folder
	// nesting. When false, move operations are skipped during planning.
	Hierarchical() bool
}

// ConfigStore provides read-only access to tenant configuration.
type ConfigStore interface {
	TenantConfig(ctx context.Context, tenantID string) (*model.TenantConfig, error)
	TenantIDs(ctx context.Context) ([]string, error)
}

// CorrectionFilter defines filtering options for correction queries.
type CorrectionFilter struct {
	Since     *time.Time
	Status    model.TrainingStatus
	MinRating int
	Limit     int
	Offset    int
}

// Storage defines the contract for the persistence layer.
type Storage interface {
	// Correction operations
	SaveCorrection(ctx context.Context, correction *model.CorrectionFeedback) error
	GetCorrections(ctx context.Context, tenantID string, filter CorrectionFilter) ([]model.CorrectionFeedback, error)
	UpdateTrainingStatus(ctx context.Context, correctionID string, status model.TrainingStatus) error

	// Routing decision audit
	SaveRoutingDecision(ctx context.Context, decision *model.RoutingDecision) error
	GetRoutingDecisions(ctx context.Context, tenantID string, since time.Time) ([]model.RoutingDecision, error)
	CountRoutingDecisions(ctx context.Context, tenantID string, since time.Time) (int, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
