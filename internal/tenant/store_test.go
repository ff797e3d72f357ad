package tenant

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/floworx/floworx-core/internal/common"
	"github.com/floworx/floworx-core/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `{
	"provider": "gmail",
	"business": {
		"name": "Hailey's Hot Tubs",
		"domain": "haileyshottubs.ca",
		"businessType": "hot tub sales and service"
	},
	"taxonomy": [
		{"name": "SALES"},
		{"name": "BANKING", "labelId": "l-banking", "children": [
			{"name": "e-transfer", "children": [
				{"name": "received"},
				{"name": "sent"}
			]}
		]}
	],
	"roles": [
		{"id": "operations_manager", "label": "Operations",
		 "matchedCategories": ["SUPPLIERS"], "keywords": ["schedule"], "weight": 20}
	],
	"managers": [
		{"name": "Hailey Park", "email": "hailey@haileyshottubs.ca",
		 "roles": ["operations_manager"], "forwardEnabled": true},
		{"name": "Aaron"}
	],
	"suppliers": [
		{"name": "AquaSpa Parts", "domains": ["aquaspaparts.com"]}
	],
	"noReplyCategories": ["BANKING"]
}`

func writeTenantFile(t *testing.T, dir, tenantID, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, tenantID+".json"), []byte(content), 0600)
	require.NoError(t, err)
}

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestFileStore_TenantConfig(t *testing.T) {
	store, dir := newTestStore(t)
	writeTenantFile(t, dir, "hailey", validConfig)

	cfg, err := store.TenantConfig(context.Background(), "hailey")
	require.NoError(t, err)

	assert.Equal(t, "hailey", cfg.TenantID)
	assert.Equal(t, "gmail", cfg.Provider)
	assert.Equal(t, "Hailey's Hot Tubs", cfg.Business.Name)

	// Taxonomy levels derive from nesting depth.
	require.NotNil(t, cfg.Taxonomy)
	banking := cfg.Taxonomy.FindByPath("BANKING")
	require.NotNil(t, banking)
	assert.Equal(t, model.LevelPrimary, banking.Level)
	assert.Equal(t, "l-banking", banking.ProviderLabelID)

	received := cfg.Taxonomy.FindByPath("BANKING/e-transfer/received")
	require.NotNil(t, received)
	assert.Equal(t, model.LevelTertiary, received.Level)

	// Role references resolve and normalization runs.
	require.Len(t, cfg.Managers, 2)
	assert.True(t, cfg.Managers[0].HasRole(model.RoleOperationsManager))
	assert.True(t, cfg.Managers[0].ForwardEnabled)
	// Aaron has no email, so forwarding is forced off.
	assert.False(t, cfg.Managers[1].ForwardEnabled)

	assert.False(t, cfg.ReplyAllowed("BANKING"))
	assert.True(t, cfg.ReplyAllowed("SALES"))
}

func TestFileStore_ForwardEnabledDefaults(t *testing.T) {
	store, dir := newTestStore(t)
	writeTenantFile(t, dir, "forwarding", `{
		"managers": [
			{"name": "Hailey", "email": "hailey@example.com"},
			{"name": "Opted Out", "email": "out@example.com", "forwardEnabled": false},
			{"name": "Aaron"}
		]
	}`)

	cfg, err := store.TenantConfig(context.Background(), "forwarding")
	require.NoError(t, err)
	require.Len(t, cfg.Managers, 3)

	// Omitted key defaults to true when the manager has an address.
	assert.True(t, cfg.Managers[0].ForwardEnabled)
	// Explicit false is respected.
	assert.False(t, cfg.Managers[1].ForwardEnabled)
	// No address means nothing to forward to.
	assert.False(t, cfg.Managers[2].ForwardEnabled)
}

func TestFileStore_UnknownTenant(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.TenantConfig(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFileStore_MalformedJSON(t *testing.T) {
	store, dir := newTestStore(t)
	writeTenantFile(t, dir, "broken", "{not json")

	_, err := store.TenantConfig(context.Background(), "broken")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestFileStore_RejectsTooDeepTaxonomy(t *testing.T) {
	store, dir := newTestStore(t)
	writeTenantFile(t, dir, "deep", `{
		"taxonomy": [
			{"name": "A", "children": [
				{"name": "B", "children": [
					{"name": "C", "children": [
						{"name": "D"}
					]}
				]}
			]}
		]
	}`)

	_, err := store.TenantConfig(context.Background(), "deep")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestFileStore_RejectsDuplicateSiblings(t *testing.T) {
	store, dir := newTestStore(t)
	writeTenantFile(t, dir, "dup", `{
		"taxonomy": [{"name": "SALES"}, {"name": "sales"}]
	}`)

	_, err := store.TenantConfig(context.Background(), "dup")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestFileStore_RejectsUnknownRoleReference(t *testing.T) {
	store, dir := newTestStore(t)
	writeTenantFile(t, dir, "badrole", `{
		"managers": [{"name": "Aaron", "roles": ["ghost_role"]}]
	}`)

	_, err := store.TenantConfig(context.Background(), "badrole")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost_role")
}

func TestFileStore_TenantIDs(t *testing.T) {
	store, dir := newTestStore(t)
	writeTenantFile(t, dir, "beta", validConfig)
	writeTenantFile(t, dir, "alpha", validConfig)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))

	ids, err := store.TenantIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, ids)
}

func TestNewFileStore_MissingDirectory(t *testing.T) {
	_, err := NewFileStore(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
