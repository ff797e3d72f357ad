package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"

	"github.com/floworx/floworx-core/internal/classify"
	"github.com/floworx/floworx-core/internal/common"
	"github.com/floworx/floworx-core/internal/config"
	"github.com/floworx/floworx-core/internal/engine"
	"github.com/floworx/floworx-core/internal/llm"
	"github.com/floworx/floworx-core/internal/model"
	"github.com/floworx/floworx-core/internal/prompt"
	"github.com/floworx/floworx-core/internal/provider"
	"github.com/floworx/floworx-core/internal/service"
	"github.com/floworx/floworx-core/internal/storage"
	"github.com/floworx/floworx-core/internal/tenant"
)

// requireTenant returns the tenant flag or an error when missing.
func requireTenant() (string, error) {
	tenantID := viper.GetString("tenant")
	if strings.TrimSpace(tenantID) == "" {
		return "", fmt.Errorf("%w: --tenant is required", common.ErrMissingConfig)
	}
	return tenantID, nil
}

// initStorage opens the database and applies pending migrations.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/floworx/floworx.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initConfigStore opens the tenant configuration directory.
func initConfigStore() (service.ConfigStore, error) {
	dir := viper.GetString("tenants.dir")
	if dir == "" {
		dir = "$HOME/.config/floworx/tenants"
	}
	return tenant.NewFileStore(config.ExpandPath(dir))
}

// initLLMClient builds the completion client from configuration.
func initLLMClient() (llm.Client, error) {
	cfg := llm.Config{
		Provider:    viper.GetString("llm.provider"),
		Model:       viper.GetString("llm.model"),
		APIKey:      viper.GetString("llm.api_key"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
		Timeout:     viper.GetDuration("llm.timeout"),
	}
	if cfg.Provider == "" {
		cfg.Provider = "openai"
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: llm.api_key (or FLOWORX_LLM_API_KEY)", common.ErrMissingConfig)
	}
	return llm.NewClient(cfg)
}

// initEngine wires the full engine for CLI use. Commands that never call
// the LLM (reconcile, prompt preview, stats) work without an API key; the
// classifier is only constructed when one is configured.
func initEngine(ctx context.Context) (*engine.Engine, func(), error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}

	configs, err := initConfigStore()
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	var classifier *classify.Classifier
	if viper.GetString("llm.api_key") != "" {
		client, llmErr := initLLMClient()
		if llmErr != nil {
			cleanup()
			return nil, nil, llmErr
		}
		builder, builderErr := prompt.NewBuilder()
		if builderErr != nil {
			cleanup()
			return nil, nil, builderErr
		}
		classifier = classify.NewClassifier(client, builder, slog.Default())
	}

	eng := engine.New(configs, store, classifier, labelAPIFactory, slog.Default())
	return eng, cleanup, nil
}

// labelAPIFactory opens the provider label client for a tenant, using the
// OAuth application credentials and the tenant's stored token.
func labelAPIFactory(ctx context.Context, cfg *model.TenantConfig) (service.LabelAPI, error) {
	token, err := loadToken(cfg.TenantID)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Provider) {
	case "gmail":
		oauthCfg := &oauth2.Config{
			ClientID:     viper.GetString("oauth.google.client_id"),
			ClientSecret: viper.GetString("oauth.google.client_secret"),
			Endpoint:     google.Endpoint,
		}
		return provider.NewGmailClient(ctx, oauthCfg, token)
	case "outlook":
		oauthCfg := &oauth2.Config{
			ClientID:     viper.GetString("oauth.microsoft.client_id"),
			ClientSecret: viper.GetString("oauth.microsoft.client_secret"),
			Endpoint:     microsoft.AzureADEndpoint("common"),
		}
		return provider.NewOutlookClient(ctx, oauthCfg, token), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q for tenant %s", common.ErrInvalidConfig, cfg.Provider, cfg.TenantID)
	}
}

// loadToken reads the tenant's OAuth token from the token directory.
func loadToken(tenantID string) (*oauth2.Token, error) {
	dir := viper.GetString("oauth.token_dir")
	if dir == "" {
		dir = "$HOME/.config/floworx/tokens"
	}
	path := fmt.Sprintf("%s/%s.json", config.ExpandPath(dir), tenantID)

	data, err := os.ReadFile(path) // #nosec G304 -- path is rooted at the token dir
	if err != nil {
		return nil, fmt.Errorf("%w: OAuth token for tenant %s at %s", common.ErrMissingConfig, tenantID, path)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("%w: token file for tenant %s: %v", common.ErrInvalidConfig, tenantID, err)
	}
	return &token, nil
}

// emailFromFlags assembles an email from command flags, reading the body
// from stdin when --body is "-".
func emailFromFlags(from, to, subject, body string) (model.Email, error) {
	if body == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return model.Email{}, fmt.Errorf("failed to read body from stdin: %w", err)
		}
		body = string(data)
	}
	return model.Email{
		From:       from,
		To:         to,
		Subject:    subject,
		Body:       body,
		ReceivedAt: time.Now().UTC(),
	}, nil
}

// printJSON renders a value as indented JSON on stdout.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
