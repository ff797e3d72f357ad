package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/floworx/floworx-core/internal/model"
)

func routeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Route an email to a staff member",
		Long: `Route one email through the priority pipeline and persist the decision
for audit. By default the email is classified first; pass explicit
--primary/--secondary flags to route a pre-classified email instead.

Examples:
  floworx route -t hailey --subject "Please ask Hailey to follow up" --body -
  floworx route -t hailey --subject "order update" --body "..." --primary SUPPLIERS`,
		RunE: runRoute,
	}

	cmd.Flags().String("from", "", "sender address")
	cmd.Flags().String("to", "", "recipient address")
	cmd.Flags().String("subject", "", "email subject")
	cmd.Flags().String("body", "", "email body (use - for stdin)")
	cmd.Flags().String("message-id", "", "provider message ID")
	cmd.Flags().String("primary", "", "skip classification and use this primary category")
	cmd.Flags().String("secondary", "", "secondary category (with --primary)")
	cmd.Flags().String("tertiary", "", "tertiary category (with --primary)")

	return cmd
}

func runRoute(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	tenantID, err := requireTenant()
	if err != nil {
		return err
	}

	eng, cleanup, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	email, err := emailFromFlags(
		mustFlag(cmd, "from"),
		mustFlag(cmd, "to"),
		mustFlag(cmd, "subject"),
		mustFlag(cmd, "body"),
	)
	if err != nil {
		return err
	}
	email.MessageID = mustFlag(cmd, "message-id")

	var classification model.ClassificationResult
	if primary := mustFlag(cmd, "primary"); primary != "" {
		classification = model.ClassificationResult{
			PrimaryCategory:   primary,
			SecondaryCategory: mustFlag(cmd, "secondary"),
			TertiaryCategory:  mustFlag(cmd, "tertiary"),
		}
	} else {
		classification, err = eng.Classify(ctx, tenantID, email)
		if err != nil {
			return fmt.Errorf("classification failed: %w", err)
		}
	}

	decision, err := eng.Route(ctx, tenantID, email, classification)
	if err != nil {
		return fmt.Errorf("routing failed: %w", err)
	}

	return printJSON(decision)
}
