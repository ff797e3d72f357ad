// Package llm provides completion clients for the supported LLM providers.
package llm

import (
	"context"
	"time"
)

// Client defines the interface for LLM providers. A client takes a prompt
// and returns raw completion text; parsing and validation happen upstream.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config holds configuration for an LLM client.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}
