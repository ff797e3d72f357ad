package model

import "strings"

// BusinessInfo is the tenant's business context, embedded verbatim into the
// classifier prompt.
type BusinessInfo struct {
	Name           string
	Domain         string
	Phone          string
	ServiceArea    string
	OperatingHours string
	BusinessType   string
}

// TenantConfig is the complete per-tenant configuration consumed by the
// core. It is read-only during any single classify/route/reconcile call;
// there is no process-wide roster state.
type TenantConfig struct {
	Taxonomy          *TaxonomyTree
	TenantID          string
	Provider          string
	Business          BusinessInfo
	Managers          []Manager
	Suppliers         []Supplier
	Roles             []Role
	NoReplyCategories []string
}

// Role resolves a role ID against the tenant's role table.
func (c *TenantConfig) Role(id RoleID) (Role, bool) {
	for _, r := range c.Roles {
		if r.ID == id {
			return r, true
		}
	}
	return Role{}, false
}

// ManagerWithRole returns the first manager holding the given role.
func (c *TenantConfig) ManagerWithRole(id RoleID) (Manager, bool) {
	for _, m := range c.Managers {
		if m.HasRole(id) {
			return m, true
		}
	}
	return Manager{}, false
}

// ReplyAllowed reports whether AI drafts are permitted for the given primary
// category under this tenant's no-reply configuration.
func (c *TenantConfig) ReplyAllowed(primary string) bool {
	for _, cat := range c.NoReplyCategories {
		if strings.EqualFold(cat, primary) {
			return false
		}
	}
	return true
}

// Normalize applies configuration defaults: forwarding is enabled by default
// only for managers with an email address.
func (c *TenantConfig) Normalize() {
	for i := range c.Managers {
		if c.Managers[i].Email == "" {
			c.Managers[i].ForwardEnabled = false
		}
	}
}
