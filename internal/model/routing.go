package model

import "time"

// RoutingPriority records which stage of the routing pipeline produced a
// decision.
type RoutingPriority int

// Routing pipeline stages, in evaluation order. Lower values win first.
const (
	PriorityNameMatch RoutingPriority = iota + 1
	PriorityCategoryNameMatch
	PriorityRoleWeight
	PriorityKeyword
	PrioritySupplierMention
	PriorityFallback
)

// RoutingDecision is the immutable outcome of routing one email. A decision
// is always produced; an empty Manager means unassigned. Decisions are
// persisted for audit and later correction feedback.
type RoutingDecision struct {
	Timestamp    time.Time
	ID           string
	TenantID     string
	MessageID    string
	Manager      string
	ManagerEmail string
	Reason       string
	Priority     RoutingPriority
	Confidence   int
	DraftAllowed bool
}

// Assigned reports whether the decision routed to a real manager.
func (d RoutingDecision) Assigned() bool {
	return d.Manager != ""
}
