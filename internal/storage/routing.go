package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/floworx/floworx-core/internal/model"
)

// SaveRoutingDecision appends a routing decision to the audit log.
func (s *SQLiteStorage) SaveRoutingDecision(ctx context.Context, decision *model.RoutingDecision) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDecision(decision); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO routing_decisions (
			id, tenant_id, message_id, manager, manager_email,
			reason, priority, confidence, draft_allowed, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		decision.ID,
		decision.TenantID,
		decision.MessageID,
		decision.Manager,
		decision.ManagerEmail,
		decision.Reason,
		int(decision.Priority),
		decision.Confidence,
		decision.DraftAllowed,
		decision.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save routing decision: %w", err)
	}
	return nil
}

// GetRoutingDecisions returns a tenant's decisions since the given time,
// newest first.
func (s *SQLiteStorage) GetRoutingDecisions(ctx context.Context, tenantID string, since time.Time) ([]model.RoutingDecision, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, message_id, manager, manager_email,
			reason, priority, confidence, draft_allowed, created_at
		FROM routing_decisions
		WHERE tenant_id = ? AND created_at >= ?
		ORDER BY created_at DESC, id`,
		tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query routing decisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.RoutingDecision
	for rows.Next() {
		var d model.RoutingDecision
		var priority int
		err := rows.Scan(
			&d.ID, &d.TenantID, &d.MessageID, &d.Manager, &d.ManagerEmail,
			&d.Reason, &priority, &d.Confidence, &d.DraftAllowed, &d.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan routing decision: %w", err)
		}
		d.Priority = model.RoutingPriority(priority)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate routing decisions: %w", err)
	}
	return out, nil
}

// CountRoutingDecisions counts a tenant's decisions since the given time.
// The count anchors the correction rate in accuracy metrics.
func (s *SQLiteStorage) CountRoutingDecisions(ctx context.Context, tenantID string, since time.Time) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM routing_decisions
		WHERE tenant_id = ? AND created_at >= ?`,
		tenantID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count routing decisions: %w", err)
	}
	return count, nil
}
