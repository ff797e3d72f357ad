// Package provider implements the mail provider label adapters. Gmail
// labels are flat with paths encoded in names; Outlook folders are a real
// hierarchy. Both normalize to the LabelAPI interface.
package provider

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/floworx/floworx-core/internal/model"
)

// GmailClient adapts the Gmail labels API. Gmail has no folder hierarchy;
// "BANKING/e-transfer" is a single label whose name contains a slash. The
// adapter translates those path names into parent/child ProviderLabels.
type GmailClient struct {
	service *gmail.Service
}

// NewGmailClient builds a client from an OAuth token.
func NewGmailClient(ctx context.Context, config *oauth2.Config, token *oauth2.Token) (*GmailClient, error) {
	httpClient := config.Client(ctx, token)
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return &GmailClient{service: svc}, nil
}

// Hierarchical reports false: Gmail nesting is purely a naming convention.
func (c *GmailClient) Hierarchical() bool { return false }

// ListLabels returns the tenant's user labels with path names decomposed
// into parent references. System labels (INBOX, SPAM, ...) are not part of
// any taxonomy and are excluded.
func (c *GmailClient) ListLabels(ctx context.Context) ([]model.ProviderLabel, error) {
	resp, err := c.service.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, wrapGoogleError("gmail.ListLabels", err)
	}

	idByPath := make(map[string]string, len(resp.Labels))
	for _, l := range resp.Labels {
		if l.Type == "system" {
			continue
		}
		idByPath[strings.ToLower(l.Name)] = l.Id
	}

	var out []model.ProviderLabel
	for _, l := range resp.Labels {
		if l.Type == "system" {
			continue
		}
		out = append(out, splitPathLabel(l.Id, l.Name, idByPath))
	}
	return out, nil
}

// GetLabel fetches a single label. The parent reference is resolved from a
// fresh listing when the name is a path.
func (c *GmailClient) GetLabel(ctx context.Context, id string) (model.ProviderLabel, error) {
	l, err := c.service.Users.Labels.Get("me", id).Context(ctx).Do()
	if err != nil {
		return model.ProviderLabel{}, wrapGoogleError("gmail.GetLabel", err)
	}

	if !strings.Contains(l.Name, "/") {
		return model.ProviderLabel{ID: l.Id, Name: l.Name}, nil
	}

	labels, err := c.ListLabels(ctx)
	if err != nil {
		return model.ProviderLabel{}, err
	}
	for _, pl := range labels {
		if pl.ID == l.Id {
			return pl, nil
		}
	}
	return model.ProviderLabel{}, wrapGoogleError("gmail.GetLabel", fmt.Errorf("label %s missing from listing", id))
}

// CreateLabel creates a label named under the given parent. The parent's
// full path becomes a name prefix, which is how Gmail renders nesting.
func (c *GmailClient) CreateLabel(ctx context.Context, name, parentID string) (model.ProviderLabel, error) {
	fullName := name
	if parentID != "" {
		parentName, err := c.rawName(ctx, parentID)
		if err != nil {
			return model.ProviderLabel{}, err
		}
		fullName = parentName + "/" + name
	}

	created, err := c.service.Users.Labels.Create("me", &gmail.Label{
		Name:                  fullName,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return model.ProviderLabel{}, wrapGoogleError("gmail.CreateLabel", err)
	}

	return model.ProviderLabel{ID: created.Id, Name: name, ParentID: parentID}, nil
}

// MoveLabel renames the label under a new path prefix. Flat providers never
// see planned moves, but rebuilding the name keeps the operation meaningful
// for manual invocations.
func (c *GmailClient) MoveLabel(ctx context.Context, id, newParentID string) (model.ProviderLabel, error) {
	current, err := c.rawName(ctx, id)
	if err != nil {
		return model.ProviderLabel{}, err
	}
	leaf := current
	if idx := strings.LastIndex(current, "/"); idx >= 0 {
		leaf = current[idx+1:]
	}

	fullName := leaf
	if newParentID != "" {
		parentName, err := c.rawName(ctx, newParentID)
		if err != nil {
			return model.ProviderLabel{}, err
		}
		fullName = parentName + "/" + leaf
	}

	updated, err := c.service.Users.Labels.Patch("me", id, &gmail.Label{Name: fullName}).Context(ctx).Do()
	if err != nil {
		return model.ProviderLabel{}, wrapGoogleError("gmail.MoveLabel", err)
	}
	return model.ProviderLabel{ID: updated.Id, Name: leaf, ParentID: newParentID}, nil
}

// DeleteLabel removes the label. Messages keep their other labels.
func (c *GmailClient) DeleteLabel(ctx context.Context, id string) error {
	if err := c.service.Users.Labels.Delete("me", id).Context(ctx).Do(); err != nil {
		return wrapGoogleError("gmail.DeleteLabel", err)
	}
	return nil
}

// rawName returns the provider-side full path name of a label.
func (c *GmailClient) rawName(ctx context.Context, id string) (string, error) {
	l, err := c.service.Users.Labels.Get("me", id).Context(ctx).Do()
	if err != nil {
		return "", wrapGoogleError("gmail.GetLabel", err)
	}
	return l.Name, nil
}

// splitPathLabel turns a slash-path Gmail label name into a leaf name plus
// a parent reference, when a label for the parent path exists.
func splitPathLabel(id, fullName string, idByPath map[string]string) model.ProviderLabel {
	idx := strings.LastIndex(fullName, "/")
	if idx < 0 {
		return model.ProviderLabel{ID: id, Name: fullName}
	}
	return model.ProviderLabel{
		ID:       id,
		Name:     fullName[idx+1:],
		ParentID: idByPath[strings.ToLower(fullName[:idx])],
	}
}
