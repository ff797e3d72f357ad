// Package prompt assembles the LLM prompts used for email classification.
// Building is pure string substitution: deterministic for identical inputs,
// with no LLM calls and no randomness.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/floworx/floworx-core/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// maxCorrectionExamples bounds the size of the historical-correction block
// in the classifier prompt. Correction volume is unbounded over time; the
// prompt is not.
const maxCorrectionExamples = 10

// QualityTier describes how much correction history backs the prompt, so
// the LLM can calibrate its confidence language.
type QualityTier string

// Quality tiers by correction example count.
const (
	TierNone   QualityTier = "none"
	TierLow    QualityTier = "low"
	TierMedium QualityTier = "medium"
	TierHigh   QualityTier = "high"
)

// TierForCount maps a correction count to its quality tier.
func TierForCount(n int) QualityTier {
	switch {
	case n <= 0:
		return TierNone
	case n < 5:
		return TierLow
	case n < 20:
		return TierMedium
	default:
		return TierHigh
	}
}

// Builder renders classification prompts from embedded templates.
type Builder struct {
	templates map[string]*template.Template
}

// NewBuilder creates a Builder with all templates parsed.
func NewBuilder() (*Builder, error) {
	b := &Builder{
		templates: make(map[string]*template.Template),
	}

	funcMap := template.FuncMap{
		"join":   strings.Join,
		"indent": indent,
	}

	for _, name := range []string{"classifier_prompt", "retry_prompt"} {
		filename := fmt.Sprintf("templates/%s.tmpl", name)
		tmpl, err := template.New(fmt.Sprintf("%s.tmpl", name)).Funcs(funcMap).ParseFS(templateFS, filename)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		b.templates[name] = tmpl
	}

	return b, nil
}

// CategoryNode is the renderable form of a taxonomy node.
type CategoryNode struct {
	Name              string
	MandatoryTertiary bool
	Children          []CategoryNode
}

// CorrectionExample is one historical human correction shown to the LLM.
type CorrectionExample struct {
	Subject   string
	Original  string
	Corrected string
	Reason    string
}

// classifierData carries everything the classifier prompt template needs.
type classifierData struct {
	Business          model.BusinessInfo
	ManagerNames      []string
	SupplierNames     []string
	Taxonomy          []CategoryNode
	MandatoryTertiary []string
	Examples          []CorrectionExample
	QualityTier       QualityTier
	TotalCorrections  int
}

// BuildClassifierPrompt assembles the system prompt for classifying one
// tenant's email. Business context, rosters, and the full taxonomy are
// embedded verbatim; the mandatory-tertiary rule is stated as a hard
// constraint for the categories that require it.
func (b *Builder) BuildClassifierPrompt(cfg *model.TenantConfig, corrections []model.CorrectionFeedback) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("tenant config is required")
	}
	if cfg.Taxonomy == nil {
		return "", fmt.Errorf("tenant %s has no taxonomy", cfg.TenantID)
	}

	managerNames := make([]string, 0, len(cfg.Managers))
	for _, m := range cfg.Managers {
		managerNames = append(managerNames, m.Name)
	}
	supplierNames := make([]string, 0, len(cfg.Suppliers))
	for _, s := range cfg.Suppliers {
		supplierNames = append(supplierNames, s.Name)
	}

	data := classifierData{
		Business:          cfg.Business,
		ManagerNames:      managerNames,
		SupplierNames:     supplierNames,
		Taxonomy:          renderTaxonomy(cfg.Taxonomy, nil),
		MandatoryTertiary: model.TertiaryRequiredSecondaries(),
		Examples:          selectExamples(corrections),
		QualityTier:       TierForCount(len(corrections)),
		TotalCorrections:  len(corrections),
	}

	var buf bytes.Buffer
	if err := b.templates["classifier_prompt"].ExecuteTemplate(&buf, "classifier_prompt.tmpl", data); err != nil {
		return "", fmt.Errorf("failed to execute classifier_prompt template: %w", err)
	}
	return buf.String(), nil
}

// RetryData carries context for a stricter retry after an invalid response.
type RetryData struct {
	InvalidResponse string
	ErrorDetails    string
}

// BuildRetryPrompt creates the follow-up prompt sent when the previous
// response failed validation.
func (b *Builder) BuildRetryPrompt(data RetryData) (string, error) {
	var buf bytes.Buffer
	if err := b.templates["retry_prompt"].ExecuteTemplate(&buf, "retry_prompt.tmpl", data); err != nil {
		return "", fmt.Errorf("failed to execute retry_prompt template: %w", err)
	}
	return buf.String(), nil
}

// renderTaxonomy converts the tree into nested renderable nodes, skipping
// soft-deleted entries.
func renderTaxonomy(tree *model.TaxonomyTree, parent *model.TaxonomyNode) []CategoryNode {
	var out []CategoryNode
	for _, node := range tree.Children(parent) {
		if node.Deleted {
			continue
		}
		out = append(out, CategoryNode{
			Name:              node.Name,
			MandatoryTertiary: node.Level == model.LevelSecondary && model.TertiaryRequired(node.Name),
			Children:          renderTaxonomy(tree, node),
		})
	}
	return out
}

// selectExamples picks the most recent corrections up to the example cap,
// newest first for stable output.
func selectExamples(corrections []model.CorrectionFeedback) []CorrectionExample {
	sorted := make([]model.CorrectionFeedback, len(corrections))
	copy(sorted, corrections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	if len(sorted) > maxCorrectionExamples {
		sorted = sorted[:maxCorrectionExamples]
	}

	examples := make([]CorrectionExample, 0, len(sorted))
	for _, c := range sorted {
		examples = append(examples, CorrectionExample{
			Subject:   c.EmailSubject,
			Original:  categoryPath(c.OriginalCategories),
			Corrected: categoryPath(c.CorrectedCategories),
			Reason:    c.CorrectionReason,
		})
	}
	return examples
}

func categoryPath(c model.ClassificationResult) string {
	parts := []string{c.PrimaryCategory}
	if c.SecondaryCategory != "" {
		parts = append(parts, c.SecondaryCategory)
	}
	if c.TertiaryCategory != "" {
		parts = append(parts, c.TertiaryCategory)
	}
	return strings.Join(parts, "/")
}

func indent(n int, s string) string {
	pad := strings.Repeat(" ", n)
	return pad + strings.ReplaceAll(s, "\n", "\n"+pad)
}
