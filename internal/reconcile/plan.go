// Package reconcile converges a tenant's provider labels to the desired
// taxonomy. Planning is pure; execution applies the plan through the
// provider API sequentially per tenant.
package reconcile

import (
	"strings"

	"github.com/floworx/floworx-core/internal/model"
)

// OpKind identifies a reconciliation operation.
type OpKind string

// Operation kinds. Delete never appears in a plan: deletion is exclusively
// a tenant-initiated action on explicitly listed orphans.
const (
	OpCreate OpKind = "create"
	OpMove   OpKind = "move"
	OpBind   OpKind = "bind"
	// OpDelete only appears in executor results for explicit orphan removal.
	OpDelete OpKind = "delete"
)

// Operation is one step needed to converge provider state.
type Operation struct {
	Node       *model.TaxonomyNode
	Kind       OpKind
	Path       string
	Name       string
	ParentPath string
	// LabelID is the existing provider label involved (bind and move).
	LabelID string
	// ParentID is the target parent, when already resolvable at plan time.
	ParentID string
}

// Plan is the ordered set of operations to apply. Parents always precede
// their children.
type Plan struct {
	Ops []Operation
}

// Empty reports whether the plan has no work.
func (p *Plan) Empty() bool {
	return len(p.Ops) == 0
}

// labelIndex resolves provider labels by ID and by full path. Provider
// label names are the source of truth for matching; locally cached IDs may
// be stale.
type labelIndex struct {
	byID   map[string]model.ProviderLabel
	byPath map[string]model.ProviderLabel
}

func indexLabels(actual []model.ProviderLabel) labelIndex {
	idx := labelIndex{
		byID:   make(map[string]model.ProviderLabel, len(actual)),
		byPath: make(map[string]model.ProviderLabel, len(actual)),
	}
	for _, l := range actual {
		idx.byID[l.ID] = l
	}
	for _, l := range actual {
		idx.byPath[strings.ToLower(labelPath(l, idx.byID))] = l
	}
	return idx
}

// labelPath walks ParentID references to build the slash-joined path.
func labelPath(l model.ProviderLabel, byID map[string]model.ProviderLabel) string {
	path := l.Name
	seen := map[string]bool{l.ID: true}
	for l.ParentID != "" {
		parent, ok := byID[l.ParentID]
		if !ok || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		path = parent.Name + "/" + path
		l = parent
	}
	return path
}

// BuildPlan computes the operations needed to make actual match desired.
// It never plans deletions, and it never touches labels that already match.
// Matching is by name path first: a desired node without a valid binding
// adopts an existing label of the same path instead of creating a duplicate.
func BuildPlan(desired *model.TaxonomyTree, actual []model.ProviderLabel, hierarchical bool) *Plan {
	idx := indexLabels(actual)
	plan := &Plan{}

	for _, node := range orderedNodes(desired) {
		path := node.Path()

		if node.ProviderLabelID != "" {
			if live, ok := idx.byID[node.ProviderLabelID]; ok {
				if hierarchical {
					if op, moved := moveOp(desired, node, live, idx); moved {
						plan.Ops = append(plan.Ops, op)
					}
				}
				continue
			}
		}

		// Binding missing or stale: adopt an existing label by path, or
		// create one with the correct parent.
		if existing, ok := idx.byPath[strings.ToLower(path)]; ok {
			plan.Ops = append(plan.Ops, Operation{
				Kind:    OpBind,
				Node:    node,
				Path:    path,
				Name:    node.Name,
				LabelID: existing.ID,
			})
			continue
		}

		op := Operation{
			Kind: OpCreate,
			Node: node,
			Path: path,
			Name: node.Name,
		}
		if node.Parent != nil {
			op.ParentPath = node.Parent.Path()
			if parentLabel, ok := idx.byPath[strings.ToLower(op.ParentPath)]; ok {
				op.ParentID = parentLabel.ID
			}
		}
		plan.Ops = append(plan.Ops, op)
	}

	return plan
}

// moveOp detects a bound label whose provider-reported parent differs from
// the desired parent. Only meaningful for hierarchical providers.
func moveOp(desired *model.TaxonomyTree, node *model.TaxonomyNode, live model.ProviderLabel, idx labelIndex) (Operation, bool) {
	wantParentID := ""
	wantParentPath := ""
	if node.Parent != nil {
		wantParentPath = node.Parent.Path()
		wantParentID = node.Parent.ProviderLabelID
		if wantParentID == "" {
			if parentLabel, ok := idx.byPath[strings.ToLower(wantParentPath)]; ok {
				wantParentID = parentLabel.ID
			}
		}
	}

	if live.ParentID == wantParentID {
		return Operation{}, false
	}

	return Operation{
		Kind:       OpMove,
		Node:       node,
		Path:       node.Path(),
		Name:       node.Name,
		ParentPath: wantParentPath,
		LabelID:    live.ID,
		ParentID:   wantParentID,
	}, true
}

// orderedNodes returns desired nodes parents-first: primaries, then
// secondaries, then tertiaries, each in tree insertion order.
func orderedNodes(tree *model.TaxonomyTree) []*model.TaxonomyNode {
	levels := []model.TaxonomyLevel{model.LevelPrimary, model.LevelSecondary, model.LevelTertiary}
	var out []*model.TaxonomyNode
	for _, level := range levels {
		for _, node := range tree.Nodes {
			if node.Level == level {
				out = append(out, node)
			}
		}
	}
	return out
}

// MarkAbsent soft-deletes desired nodes whose bound labels the provider
// confirmed missing. Call only after a successful label listing; a
// transient API error must never mark anything deleted.
func MarkAbsent(tree *model.TaxonomyTree, actual []model.ProviderLabel) {
	byID := make(map[string]bool, len(actual))
	for _, l := range actual {
		byID[l.ID] = true
	}
	for _, node := range tree.Nodes {
		if node.ProviderLabelID != "" && !byID[node.ProviderLabelID] {
			node.Deleted = true
		}
	}
}

// Orphans lists provider labels that no desired node accounts for. The
// result is informational: deleting any of them is a separate, explicit,
// tenant-initiated call.
func Orphans(desired *model.TaxonomyTree, actual []model.ProviderLabel) []model.ProviderLabel {
	idx := indexLabels(actual)

	wanted := make(map[string]bool, len(desired.Nodes))
	for _, node := range desired.Nodes {
		wanted[strings.ToLower(node.Path())] = true
	}

	var orphans []model.ProviderLabel
	for _, l := range actual {
		if !wanted[strings.ToLower(labelPath(l, idx.byID))] {
			orphans = append(orphans, l)
		}
	}
	return orphans
}
