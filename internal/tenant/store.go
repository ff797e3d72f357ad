// Package tenant loads read-only tenant configuration from JSON files.
// Each tenant is one file named <tenantID>.json under the config root.
// External JSON is translated into validated domain types at this boundary;
// nothing downstream ever sees a raw label-name map.
package tenant

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/floworx/floworx-core/internal/common"
	"github.com/floworx/floworx-core/internal/model"
)

// FileStore implements service.ConfigStore over a directory of JSON files.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: tenant config directory %s: %v", common.ErrMissingConfig, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", common.ErrInvalidConfig, dir)
	}
	return &FileStore{dir: dir}, nil
}

// TenantConfig loads and validates one tenant's configuration.
func (s *FileStore) TenantConfig(_ context.Context, tenantID string) (*model.TenantConfig, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, fmt.Errorf("%w: tenant ID is required", common.ErrInvalidConfig)
	}

	path := filepath.Join(s.dir, tenantID+".json")
	data, err := os.ReadFile(path) // #nosec G304 -- path is rooted at the config dir
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: tenant %s", common.ErrNotFound, tenantID)
		}
		return nil, fmt.Errorf("failed to read tenant config %s: %w", tenantID, err)
	}

	var raw configFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: tenant %s: %v", common.ErrInvalidConfig, tenantID, err)
	}

	cfg, err := raw.toConfig(tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: tenant %s: %v", common.ErrInvalidConfig, tenantID, err)
	}
	return cfg, nil
}

// TenantIDs lists the tenants present in the config directory, sorted.
func (s *FileStore) TenantIDs(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant configs: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// configFile is the on-disk JSON shape. The taxonomy nests category names;
// tree structure and levels are derived during conversion.
type configFile struct {
	Provider string `json:"provider"`
	Business struct {
		Name           string `json:"name"`
		Domain         string `json:"domain"`
		Phone          string `json:"phone"`
		ServiceArea    string `json:"serviceArea"`
		OperatingHours string `json:"operatingHours"`
		BusinessType   string `json:"businessType"`
	} `json:"business"`
	Taxonomy []categoryFile `json:"taxonomy"`
	Managers []struct {
		Name  string   `json:"name"`
		Email string   `json:"email"`
		Roles []string `json:"roles"`
		// Pointer so an absent key is distinguishable from explicit false.
		ForwardEnabled *bool `json:"forwardEnabled"`
	} `json:"managers"`
	Suppliers []struct {
		Name    string   `json:"name"`
		Email   string   `json:"email"`
		Domains []string `json:"domains"`
	} `json:"suppliers"`
	Roles []struct {
		ID                string   `json:"id"`
		Label             string   `json:"label"`
		MatchedCategories []string `json:"matchedCategories"`
		Keywords          []string `json:"keywords"`
		Weight            float64  `json:"weight"`
	} `json:"roles"`
	NoReplyCategories []string `json:"noReplyCategories"`
}

type categoryFile struct {
	Name     string         `json:"name"`
	LabelID  string         `json:"labelId,omitempty"`
	Children []categoryFile `json:"children,omitempty"`
}

func (f *configFile) toConfig(tenantID string) (*model.TenantConfig, error) {
	tree := model.NewTaxonomyTree()
	for _, cat := range f.Taxonomy {
		if err := addCategory(tree, nil, cat); err != nil {
			return nil, err
		}
	}
	if err := tree.Validate(); err != nil {
		return nil, fmt.Errorf("taxonomy: %w", err)
	}

	cfg := &model.TenantConfig{
		TenantID:          tenantID,
		Provider:          f.Provider,
		Taxonomy:          tree,
		NoReplyCategories: f.NoReplyCategories,
		Business: model.BusinessInfo{
			Name:           f.Business.Name,
			Domain:         f.Business.Domain,
			Phone:          f.Business.Phone,
			ServiceArea:    f.Business.ServiceArea,
			OperatingHours: f.Business.OperatingHours,
			BusinessType:   f.Business.BusinessType,
		},
	}

	roleIDs := make(map[model.RoleID]bool, len(f.Roles))
	for _, r := range f.Roles {
		id := model.RoleID(r.ID)
		if id == "" {
			return nil, fmt.Errorf("role with empty ID")
		}
		if roleIDs[id] {
			return nil, fmt.Errorf("duplicate role %q", r.ID)
		}
		roleIDs[id] = true
		cfg.Roles = append(cfg.Roles, model.Role{
			ID:                id,
			Label:             r.Label,
			MatchedCategories: r.MatchedCategories,
			Keywords:          r.Keywords,
			Weight:            r.Weight,
		})
	}

	for _, m := range f.Managers {
		if strings.TrimSpace(m.Name) == "" {
			return nil, fmt.Errorf("manager with empty name")
		}
		manager := model.Manager{
			Name:  m.Name,
			Email: m.Email,
		}
		if m.ForwardEnabled != nil {
			manager.ForwardEnabled = *m.ForwardEnabled
		} else {
			// Forwarding defaults on only when there is an address to
			// forward to.
			manager.ForwardEnabled = m.Email != ""
		}
		for _, roleID := range m.Roles {
			id := model.RoleID(roleID)
			if !roleIDs[id] {
				return nil, fmt.Errorf("manager %q references unknown role %q", m.Name, roleID)
			}
			manager.Roles = append(manager.Roles, id)
		}
		cfg.Managers = append(cfg.Managers, manager)
	}

	for _, s := range f.Suppliers {
		cfg.Suppliers = append(cfg.Suppliers, model.Supplier{
			Name:    s.Name,
			Email:   s.Email,
			Domains: s.Domains,
		})
	}

	cfg.Normalize()
	return cfg, nil
}

// addCategory inserts one file-level category and its children, binding any
// recorded provider label ID.
func addCategory(tree *model.TaxonomyTree, parent *model.TaxonomyNode, cat categoryFile) error {
	node, err := tree.AddNode(parent, cat.Name)
	if err != nil {
		return err
	}
	if cat.LabelID != "" {
		if err := tree.BindLabel(node, cat.LabelID, false); err != nil {
			return err
		}
	}
	for _, child := range cat.Children {
		if err := addCategory(tree, node, child); err != nil {
			return err
		}
	}
	return nil
}
