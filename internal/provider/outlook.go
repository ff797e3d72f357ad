package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/floworx/floworx-core/internal/model"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// maxFolderDepth bounds the child-folder walk. Taxonomies are at most
// three levels deep, so anything deeper is not ours to manage.
const maxFolderDepth = 3

// folderSelect asks Graph for wellKnownName alongside the defaults so
// distinguished folders can be identified and skipped.
const folderSelect = "id,displayName,parentFolderId,childFolderCount,wellKnownName"

// OutlookClient adapts the Microsoft Graph mail folder API. Folders are a
// real hierarchy, so parent references come straight from the provider.
type OutlookClient struct {
	client  *http.Client
	baseURL string
}

// NewOutlookClient builds a client from an OAuth token.
func NewOutlookClient(ctx context.Context, config *oauth2.Config, token *oauth2.Token) *OutlookClient {
	return &OutlookClient{
		client:  config.Client(ctx, token),
		baseURL: graphBaseURL,
	}
}

// Hierarchical reports true: Graph folders nest for real.
func (c *OutlookClient) Hierarchical() bool { return true }

type graphFolder struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	ParentFolderID   string `json:"parentFolderId"`
	ChildFolderCount int    `json:"childFolderCount"`
	WellKnownName    string `json:"wellKnownName"`
}

type graphFolderList struct {
	Value []graphFolder `json:"value"`
}

// ListLabels walks the folder tree breadth-first down to the taxonomy depth.
// Folders listed as a folder's children get that folder as parent; top-level
// folders get no parent, even though Graph reports the hidden root's ID.
// Well-known folders (Inbox, Sent Items, Drafts, ...) are not tenant-managed
// and are skipped entirely, like system labels on the Gmail side.
func (c *OutlookClient) ListLabels(ctx context.Context) ([]model.ProviderLabel, error) {
	var out []model.ProviderLabel

	type level struct {
		parentID string
		depth    int
	}
	queue := []level{{depth: 1}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		path := "/me/mailFolders?$top=200&$select=" + folderSelect
		if cur.parentID != "" {
			path = fmt.Sprintf("/me/mailFolders/%s/childFolders?$top=200&$select=%s",
				url.PathEscape(cur.parentID), folderSelect)
		}

		var list graphFolderList
		if err := c.get(ctx, path, &list); err != nil {
			return nil, err
		}

		for _, f := range list.Value {
			if f.WellKnownName != "" {
				continue
			}
			out = append(out, model.ProviderLabel{
				ID:       f.ID,
				Name:     f.DisplayName,
				ParentID: cur.parentID,
			})
			if f.ChildFolderCount > 0 && cur.depth < maxFolderDepth {
				queue = append(queue, level{parentID: f.ID, depth: cur.depth + 1})
			}
		}
	}

	return out, nil
}

// GetLabel fetches one folder by ID.
func (c *OutlookClient) GetLabel(ctx context.Context, id string) (model.ProviderLabel, error) {
	var f graphFolder
	if err := c.get(ctx, "/me/mailFolders/"+url.PathEscape(id), &f); err != nil {
		return model.ProviderLabel{}, err
	}
	return model.ProviderLabel{ID: f.ID, Name: f.DisplayName, ParentID: f.ParentFolderID}, nil
}

// CreateLabel creates a folder, nested under parentID when given.
func (c *OutlookClient) CreateLabel(ctx context.Context, name, parentID string) (model.ProviderLabel, error) {
	path := "/me/mailFolders"
	if parentID != "" {
		path = fmt.Sprintf("/me/mailFolders/%s/childFolders", url.PathEscape(parentID))
	}

	var created graphFolder
	body := map[string]string{"displayName": name}
	if err := c.post(ctx, path, body, &created); err != nil {
		return model.ProviderLabel{}, err
	}
	return model.ProviderLabel{ID: created.ID, Name: created.DisplayName, ParentID: parentID}, nil
}

// MoveLabel reparents a folder. Graph may assign the moved folder a new ID,
// which the returned label carries.
func (c *OutlookClient) MoveLabel(ctx context.Context, id, newParentID string) (model.ProviderLabel, error) {
	var moved graphFolder
	path := fmt.Sprintf("/me/mailFolders/%s/move", url.PathEscape(id))
	body := map[string]string{"destinationId": newParentID}
	if err := c.post(ctx, path, body, &moved); err != nil {
		return model.ProviderLabel{}, err
	}
	return model.ProviderLabel{ID: moved.ID, Name: moved.DisplayName, ParentID: newParentID}, nil
}

// DeleteLabel removes a folder and its contents.
func (c *OutlookClient) DeleteLabel(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/me/mailFolders/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return c.doRequest(req, "outlook.DeleteLabel", nil)
}

func (c *OutlookClient) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.doRequest(req, "outlook.Get", result)
}

func (c *OutlookClient) post(ctx context.Context, path string, body, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doRequest(req, "outlook.Post", result)
}

func (c *OutlookClient) doRequest(req *http.Request, op string, result any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return graphError(op, resp.StatusCode, body)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}
