package classify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/floworx/floworx-core/internal/common"
	"github.com/floworx/floworx-core/internal/llm"
	"github.com/floworx/floworx-core/internal/model"
	"github.com/floworx/floworx-core/internal/prompt"
	"github.com/floworx/floworx-core/internal/service"
)

// Classifier drives the LLM to produce validated classifications.
type Classifier struct {
	client    llm.Client
	builder   *prompt.Builder
	logger    *slog.Logger
	retryOpts service.RetryOptions
}

// NewClassifier creates a classifier around an LLM client.
func NewClassifier(client llm.Client, builder *prompt.Builder, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		client:  client,
		builder: builder,
		logger:  logger,
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// Classify builds the tenant's classifier prompt, sends the email to the
// LLM, and validates the response. An invalid response triggers a stricter
// retry prompt within the bounded retry budget; persistent violations
// surface as a ValidationError for the caller's fallback policy.
func (c *Classifier) Classify(ctx context.Context, email model.Email, cfg *model.TenantConfig, corrections []model.CorrectionFeedback) (model.ClassificationResult, error) {
	systemPrompt, err := c.builder.BuildClassifierPrompt(cfg, corrections)
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("failed to build classifier prompt: %w", err)
	}

	userPrompt := formatEmail(email)

	var result model.ClassificationResult
	var lastRaw string
	var lastValidationErr error

	err = common.WithRetry(ctx, func() error {
		p := userPrompt
		if lastValidationErr != nil {
			retryPrompt, buildErr := c.builder.BuildRetryPrompt(prompt.RetryData{
				InvalidResponse: lastRaw,
				ErrorDetails:    lastValidationErr.Error(),
			})
			if buildErr != nil {
				return buildErr
			}
			p = userPrompt + "\n\n" + retryPrompt
		}

		raw, completeErr := c.client.Complete(ctx, systemPrompt, p)
		if completeErr != nil {
			c.logger.Warn("LLM completion attempt failed",
				"error", completeErr,
				"message_id", email.MessageID)
			return &common.RetryableError{Err: completeErr, Retryable: true}
		}
		lastRaw = raw

		parsed, parseErr := parseClassification(raw)
		if parseErr != nil {
			lastValidationErr = parseErr
			return &common.RetryableError{Err: parseErr, Retryable: true}
		}

		if validateErr := ValidateClassification(parsed, cfg.Taxonomy); validateErr != nil {
			c.logger.Warn("LLM returned invalid classification",
				"error", validateErr,
				"message_id", email.MessageID)
			lastValidationErr = validateErr
			return &common.RetryableError{Err: validateErr, Retryable: true}
		}

		result = parsed
		return nil
	}, c.retryOpts)

	if err != nil {
		if lastValidationErr != nil {
			return model.ClassificationResult{}, fmt.Errorf("%w: %w", common.ErrClassificationFailed, lastValidationErr)
		}
		return model.ClassificationResult{}, fmt.Errorf("%w: %w", common.ErrClassificationFailed, err)
	}

	c.logger.Info("email classified",
		"message_id", email.MessageID,
		"primary", result.PrimaryCategory,
		"secondary", result.SecondaryCategory,
		"tertiary", result.TertiaryCategory,
		"confidence", result.Confidence)

	return result, nil
}

// formatEmail renders the email for the user turn of the conversation.
func formatEmail(email model.Email) string {
	return fmt.Sprintf("From: %s\nTo: %s\nSubject: %s\nReceived: %s\n\n%s",
		email.From,
		email.To,
		email.Subject,
		email.ReceivedAt.Format(time.RFC3339),
		email.Body)
}
