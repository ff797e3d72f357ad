// Package model defines the core domain models used throughout the application.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// TaxonomyLevel identifies the depth of a node in the category tree.
type TaxonomyLevel string

// Taxonomy level constants.
const (
	LevelPrimary   TaxonomyLevel = "primary"
	LevelSecondary TaxonomyLevel = "secondary"
	LevelTertiary  TaxonomyLevel = "tertiary"
)

// Taxonomy errors.
var (
	ErrDuplicateSibling = errors.New("duplicate sibling name")
	ErrDepthExceeded    = errors.New("taxonomy depth exceeds three levels")
	ErrCycleDetected    = errors.New("taxonomy contains a cycle")
	ErrUnknownParent    = errors.New("parent node not part of tree")
	ErrAlreadyBound     = errors.New("node already bound to a different label")
	ErrEmptyNodeName    = errors.New("node name cannot be empty")
)

// TaxonomyNode is a single category in a tenant's filing taxonomy.
// Nodes hold parent references only; child relationships are derived,
// which keeps the tree acyclic by construction.
type TaxonomyNode struct {
	Parent          *TaxonomyNode
	Name            string
	Level           TaxonomyLevel
	ProviderLabelID string
	// Deleted is set when the provider confirms the bound label is gone.
	// Nodes are never removed automatically; a transient API error must
	// not silently drop part of the taxonomy.
	Deleted bool
}

// Path returns the slash-joined names from the root to this node.
func (n *TaxonomyNode) Path() string {
	if n.Parent == nil {
		return n.Name
	}
	return n.Parent.Path() + "/" + n.Name
}

// Depth returns 1 for primary, 2 for secondary, 3 for tertiary.
func (n *TaxonomyNode) Depth() int {
	depth := 0
	for cur := n; cur != nil; cur = cur.Parent {
		depth++
		if depth > maxTaxonomyDepth {
			break
		}
	}
	return depth
}

const maxTaxonomyDepth = 3

// levelForDepth maps a tree depth to its expected level.
func levelForDepth(depth int) (TaxonomyLevel, error) {
	switch depth {
	case 1:
		return LevelPrimary, nil
	case 2:
		return LevelSecondary, nil
	case 3:
		return LevelTertiary, nil
	default:
		return "", fmt.Errorf("%w: depth %d", ErrDepthExceeded, depth)
	}
}

// TaxonomyTree is the full category tree for a tenant.
type TaxonomyTree struct {
	Nodes []*TaxonomyNode
}

// NewTaxonomyTree creates an empty taxonomy tree.
func NewTaxonomyTree() *TaxonomyTree {
	return &TaxonomyTree{}
}

// AddNode appends a node under parent (nil for a primary category).
// The node's level is derived from its depth, and sibling names must be
// unique (case-insensitive, matching provider label semantics).
func (t *TaxonomyTree) AddNode(parent *TaxonomyNode, name string) (*TaxonomyNode, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyNodeName
	}

	if parent != nil && !t.contains(parent) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParent, parent.Name)
	}

	depth := 1
	if parent != nil {
		depth = parent.Depth() + 1
	}
	level, err := levelForDepth(depth)
	if err != nil {
		return nil, err
	}

	for _, sibling := range t.Children(parent) {
		if strings.EqualFold(sibling.Name, name) {
			return nil, fmt.Errorf("%w: %q under %q", ErrDuplicateSibling, name, parentName(parent))
		}
	}

	node := &TaxonomyNode{
		Name:   name,
		Level:  level,
		Parent: parent,
	}
	t.Nodes = append(t.Nodes, node)
	return node, nil
}

// Children returns the direct children of parent, preserving insertion order.
// A nil parent returns the primary categories.
func (t *TaxonomyTree) Children(parent *TaxonomyNode) []*TaxonomyNode {
	var children []*TaxonomyNode
	for _, node := range t.Nodes {
		if node.Parent == parent {
			children = append(children, node)
		}
	}
	return children
}

// Primaries returns the root-level categories.
func (t *TaxonomyTree) Primaries() []*TaxonomyNode {
	return t.Children(nil)
}

// FindByPath locates a node by its slash-joined path, case-insensitively.
func (t *TaxonomyTree) FindByPath(path string) *TaxonomyNode {
	for _, node := range t.Nodes {
		if strings.EqualFold(node.Path(), path) {
			return node
		}
	}
	return nil
}

// FindByName returns the first node at the given level with a matching name.
func (t *TaxonomyTree) FindByName(level TaxonomyLevel, name string) *TaxonomyNode {
	for _, node := range t.Nodes {
		if node.Level == level && strings.EqualFold(node.Name, name) {
			return node
		}
	}
	return nil
}

// Validate checks structural invariants: acyclic parent chains, depth at
// most three, sibling name uniqueness, and parents that belong to the tree.
func (t *TaxonomyTree) Validate() error {
	for _, node := range t.Nodes {
		if strings.TrimSpace(node.Name) == "" {
			return ErrEmptyNodeName
		}

		// Walk the parent chain; more hops than the depth limit means a cycle.
		hops := 0
		for cur := node.Parent; cur != nil; cur = cur.Parent {
			hops++
			if cur == node {
				return fmt.Errorf("%w: node %q", ErrCycleDetected, node.Name)
			}
			if hops > maxTaxonomyDepth {
				return fmt.Errorf("%w: node %q", ErrCycleDetected, node.Name)
			}
			if !t.contains(cur) {
				return fmt.Errorf("%w: %q", ErrUnknownParent, cur.Name)
			}
		}

		depth := hops + 1
		expected, err := levelForDepth(depth)
		if err != nil {
			return fmt.Errorf("node %q: %w", node.Name, err)
		}
		if node.Level != expected {
			return fmt.Errorf("node %q: level %q does not match depth %d", node.Name, node.Level, depth)
		}
	}

	// Sibling uniqueness across the whole tree.
	seen := make(map[string]bool)
	for _, node := range t.Nodes {
		key := strings.ToLower(parentName(node.Parent)) + "\x00" + strings.ToLower(node.Name)
		if seen[key] {
			return fmt.Errorf("%w: %q under %q", ErrDuplicateSibling, node.Name, parentName(node.Parent))
		}
		seen[key] = true
	}

	return nil
}

// BindLabel associates a provider label ID with a node. Binding the same ID
// twice is a no-op. Binding a different ID to an already-bound node fails
// unless force is set, which signals deliberate rebinding after the provider
// deleted the original label.
func (t *TaxonomyTree) BindLabel(node *TaxonomyNode, providerLabelID string, force bool) error {
	if !t.contains(node) {
		return fmt.Errorf("%w: %q", ErrUnknownParent, node.Name)
	}
	if node.ProviderLabelID == providerLabelID {
		return nil
	}
	if node.ProviderLabelID != "" && !force {
		return fmt.Errorf("%w: %q bound to %q", ErrAlreadyBound, node.Name, node.ProviderLabelID)
	}
	node.ProviderLabelID = providerLabelID
	node.Deleted = false
	return nil
}

func (t *TaxonomyTree) contains(node *TaxonomyNode) bool {
	for _, n := range t.Nodes {
		if n == node {
			return true
		}
	}
	return false
}

func parentName(parent *TaxonomyNode) string {
	if parent == nil {
		return ""
	}
	return parent.Name
}

// ProviderLabel is a label or folder as reported by the mail provider.
// For flat providers (Gmail) ParentID is derived from the label name path;
// for hierarchical providers (Outlook) it is the real folder parent.
type ProviderLabel struct {
	ID       string
	Name     string
	ParentID string
}
