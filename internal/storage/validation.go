package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/floworx/floworx-core/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidCorrection = errors.New("invalid correction")
	ErrInvalidDecision   = errors.New("invalid routing decision")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateCorrection validates a correction before persisting it.
func validateCorrection(c *model.CorrectionFeedback) error {
	if c == nil {
		return fmt.Errorf("%w: correction", ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCorrection, err)
	}
	if strings.TrimSpace(c.TenantID) == "" {
		return fmt.Errorf("%w: tenant ID is required", ErrInvalidCorrection)
	}
	return nil
}

// validateDecision validates a routing decision audit record.
func validateDecision(d *model.RoutingDecision) error {
	if d == nil {
		return fmt.Errorf("%w: decision", ErrNilParameter)
	}
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: decision ID is required", ErrInvalidDecision)
	}
	if strings.TrimSpace(d.TenantID) == "" {
		return fmt.Errorf("%w: tenant ID is required", ErrInvalidDecision)
	}
	return nil
}
