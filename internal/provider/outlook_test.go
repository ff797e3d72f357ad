package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/floworx/floworx-core/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOutlookClient(handler http.Handler) (*OutlookClient, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return &OutlookClient{client: srv.Client(), baseURL: srv.URL}, srv
}

func TestOutlookClient_ListLabelsWalksHierarchy(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/me/mailFolders", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(graphFolderList{Value: []graphFolder{
			{ID: "f-banking", DisplayName: "BANKING", ChildFolderCount: 1},
			{ID: "f-sales", DisplayName: "SALES"},
		}})
	})
	mux.HandleFunc("/me/mailFolders/f-banking/childFolders", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(graphFolderList{Value: []graphFolder{
			{ID: "f-et", DisplayName: "e-transfer", ParentFolderID: "f-banking"},
		}})
	})

	client, srv := newTestOutlookClient(mux)
	defer srv.Close()

	labels, err := client.ListLabels(context.Background())
	require.NoError(t, err)
	require.Len(t, labels, 3)

	byName := map[string]string{}
	for _, l := range labels {
		byName[l.Name] = l.ParentID
	}
	assert.Equal(t, "", byName["BANKING"])
	assert.Equal(t, "", byName["SALES"])
	assert.Equal(t, "f-banking", byName["e-transfer"])
}

func TestOutlookClient_ListLabelsSkipsWellKnownFolders(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/me/mailFolders", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("$select"), "wellKnownName")
		json.NewEncoder(w).Encode(graphFolderList{Value: []graphFolder{
			{ID: "f-inbox", DisplayName: "Inbox", WellKnownName: "inbox", ChildFolderCount: 2},
			{ID: "f-sent", DisplayName: "Sent Items", WellKnownName: "sentitems"},
			{ID: "f-drafts", DisplayName: "Drafts", WellKnownName: "drafts"},
			{ID: "f-sales", DisplayName: "SALES"},
		}})
	})
	mux.HandleFunc("/me/mailFolders/f-inbox/childFolders", func(w http.ResponseWriter, r *http.Request) {
		t.Error("well-known folders must not be descended into")
	})

	client, srv := newTestOutlookClient(mux)
	defer srv.Close()

	labels, err := client.ListLabels(context.Background())
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, "SALES", labels[0].Name)
}

func TestOutlookClient_CreateLabelNested(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(graphFolder{ID: "f-new", DisplayName: gotBody["displayName"]})
	})

	client, srv := newTestOutlookClient(mux)
	defer srv.Close()

	created, err := client.CreateLabel(context.Background(), "e-transfer", "f-banking")
	require.NoError(t, err)
	assert.Equal(t, "/me/mailFolders/f-banking/childFolders", gotPath)
	assert.Equal(t, "e-transfer", gotBody["displayName"])
	assert.Equal(t, "f-new", created.ID)
	assert.Equal(t, "f-banking", created.ParentID)
}

func TestOutlookClient_MoveLabel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/me/mailFolders/f-et/move", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "f-banking", body["destinationId"])
		// Graph assigns a new ID on move.
		json.NewEncoder(w).Encode(graphFolder{ID: "f-et-2", DisplayName: "e-transfer"})
	})

	client, srv := newTestOutlookClient(mux)
	defer srv.Close()

	moved, err := client.MoveLabel(context.Background(), "f-et", "f-banking")
	require.NoError(t, err)
	assert.Equal(t, "f-et-2", moved.ID)
	assert.Equal(t, "f-banking", moved.ParentID)
}

func TestOutlookClient_ErrorCarriesStatusCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"TooManyRequests"}}`, http.StatusTooManyRequests)
	})

	client, srv := newTestOutlookClient(mux)
	defer srv.Close()

	_, err := client.GetLabel(context.Background(), "f-1")
	require.Error(t, err)

	var provErr *common.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusTooManyRequests, provErr.StatusCode)
	assert.True(t, provErr.Transient())
}

func TestOutlookClient_DeleteLabel(t *testing.T) {
	deleted := false
	mux := http.NewServeMux()
	mux.HandleFunc("/me/mailFolders/f-old", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		deleted = true
		w.WriteHeader(http.StatusNoContent)
	})

	client, srv := newTestOutlookClient(mux)
	defer srv.Close()

	require.NoError(t, client.DeleteLabel(context.Background(), "f-old"))
	assert.True(t, deleted)
}
