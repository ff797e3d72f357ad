package model

import "strings"

// RoleID identifies a routing role in tenant configuration.
type RoleID string

// RoleOperationsManager receives supplier-related mail when no stronger
// routing signal fires.
const RoleOperationsManager RoleID = "operations_manager"

// Role is static routing configuration: which primary categories and
// keywords a role covers, and how strongly a category match counts.
// Roles are loaded once per tenant and never mutated during routing.
type Role struct {
	ID                RoleID
	Label             string
	MatchedCategories []string
	Keywords          []string
	Weight            float64
}

// MatchesCategory reports whether the role covers the given primary category.
func (r Role) MatchesCategory(primary string) bool {
	for _, c := range r.MatchedCategories {
		if strings.EqualFold(c, primary) {
			return true
		}
	}
	return false
}

// Manager is a staff member that email can be routed to.
type Manager struct {
	Name           string
	Email          string
	Roles          []RoleID
	ForwardEnabled bool
}

// FirstName returns the manager's first name, or the full name when it has
// no spaces.
func (m Manager) FirstName() string {
	if i := strings.IndexByte(m.Name, ' '); i > 0 {
		return m.Name[:i]
	}
	return m.Name
}

// HasRole reports whether the manager holds the given role.
func (m Manager) HasRole(id RoleID) bool {
	for _, r := range m.Roles {
		if r == id {
			return true
		}
	}
	return false
}

// Supplier is a known vendor, used only as a routing hint.
type Supplier struct {
	Name    string
	Email   string
	Domains []string
}
