// Package router assigns a classified email to exactly one staff member.
//
// Routing is a strict, ordered, first-match-wins pipeline. The ordering is
// a business decision, not an implementation detail: an explicit name
// mention beats the AI category, which beats keyword heuristics. Every
// email gets a decision; uncertainty routes to a fallback, never blocks
// delivery.
package router

import (
	"fmt"
	"math"
	"strings"

	"github.com/floworx/floworx-core/internal/model"
)

// ManagerKeywordCategory is the primary category that enables keyword
// matching against manager role keywords.
const ManagerKeywordCategory = "MANAGER"

// Route runs the priority pipeline and always returns a decision. It is a
// pure function over its inputs: no I/O, no randomness. ID, tenant, and
// timestamp fields are filled in by the caller that persists the decision.
func Route(email model.Email, classification model.ClassificationResult, cfg *model.TenantConfig) model.RoutingDecision {
	text := email.SearchText()

	// Priority 1: explicit manager name mention dominates everything.
	for _, m := range cfg.Managers {
		if nameMentioned(text, m) {
			return decided(m, model.PriorityNameMatch, 100,
				fmt.Sprintf("manager %s mentioned by name in the email", m.Name))
		}
	}

	// Priority 2: the AI put a manager's name in the secondary category.
	for _, m := range cfg.Managers {
		if strings.EqualFold(classification.SecondaryCategory, m.Name) {
			return decided(m, model.PriorityCategoryNameMatch, 95,
				fmt.Sprintf("secondary category matches manager %s", m.Name))
		}
	}

	// Priority 3: role weights over the AI's primary category. Ties break
	// by roster order: the first listed manager wins. Arbitrary but stable.
	if m, score, ok := bestRoleMatch(classification.PrimaryCategory, cfg); ok {
		confidence := int(math.Min(95, 70+score))
		return decided(m, model.PriorityRoleWeight, confidence,
			fmt.Sprintf("role weight %.0f for category %s via manager %s", score, classification.PrimaryCategory, m.Name))
	}

	// Priority 4: keyword occurrence counting, only for MANAGER email.
	if strings.EqualFold(classification.PrimaryCategory, ManagerKeywordCategory) {
		if m, count, ok := bestKeywordMatch(text, cfg); ok {
			confidence := int(math.Min(85, float64(50+2*count)))
			return decided(m, model.PriorityKeyword, confidence,
				fmt.Sprintf("%d role keyword matches for manager %s", count, m.Name))
		}
	}

	// Priority 5: supplier mention routes to the operations manager.
	for _, s := range cfg.Suppliers {
		if s.Name != "" && strings.Contains(text, strings.ToLower(s.Name)) {
			if m, ok := cfg.ManagerWithRole(model.RoleOperationsManager); ok {
				return decided(m, model.PrioritySupplierMention, 90,
					fmt.Sprintf("supplier %s mentioned, routed to operations manager %s", s.Name, m.Name))
			}
			break
		}
	}

	// Priority 6: fallback to the first manager in the roster.
	if len(cfg.Managers) > 0 {
		m := cfg.Managers[0]
		return decided(m, model.PriorityFallback, 30,
			fmt.Sprintf("no routing signal matched, defaulting to %s", m.Name))
	}

	return model.RoutingDecision{
		Priority:   model.PriorityFallback,
		Confidence: 0,
		Reason:     "no managers configured",
	}
}

func decided(m model.Manager, priority model.RoutingPriority, confidence int, reason string) model.RoutingDecision {
	return model.RoutingDecision{
		Manager:      m.Name,
		ManagerEmail: m.Email,
		Priority:     priority,
		Confidence:   confidence,
		Reason:       reason,
	}
}

// nameMentioned checks for the manager's full or first name in the email
// text, case-insensitively.
func nameMentioned(text string, m model.Manager) bool {
	if m.Name == "" {
		return false
	}
	if strings.Contains(text, strings.ToLower(m.Name)) {
		return true
	}
	first := m.FirstName()
	return first != m.Name && strings.Contains(text, strings.ToLower(first))
}

// bestRoleMatch sums role weights per manager for the classified primary
// category and returns the highest scorer, if any scored above zero.
func bestRoleMatch(primary string, cfg *model.TenantConfig) (model.Manager, float64, bool) {
	var best model.Manager
	var bestScore float64

	for _, m := range cfg.Managers {
		var score float64
		for _, roleID := range m.Roles {
			role, ok := cfg.Role(roleID)
			if !ok {
				continue
			}
			if role.MatchesCategory(primary) {
				score += role.Weight
			}
		}
		// Strict greater-than keeps the first-listed manager on ties.
		if score > bestScore {
			best = m
			bestScore = score
		}
	}

	return best, bestScore, bestScore > 0
}

// bestKeywordMatch counts case-insensitive keyword occurrences from each
// manager's role keyword lists.
func bestKeywordMatch(text string, cfg *model.TenantConfig) (model.Manager, int, bool) {
	var best model.Manager
	bestCount := 0

	for _, m := range cfg.Managers {
		count := 0
		for _, roleID := range m.Roles {
			role, ok := cfg.Role(roleID)
			if !ok {
				continue
			}
			for _, kw := range role.Keywords {
				if kw == "" {
					continue
				}
				count += strings.Count(text, strings.ToLower(kw))
			}
		}
		if count > bestCount {
			best = m
			bestCount = count
		}
	}

	return best, bestCount, bestCount > 0
}
