package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify an email against the tenant's taxonomy",
		Long: `Classify one email with the tenant's category taxonomy and business
context. The LLM response is validated against the taxonomy before it is
returned; invalid responses are retried with a stricter prompt.

Examples:
  floworx classify -t hailey --subject "e-Transfer received" --body "You received $150"
  cat email.txt | floworx classify -t hailey --subject "Invoice 1042" --body -`,
		RunE: runClassify,
	}

	cmd.Flags().String("from", "", "sender address")
	cmd.Flags().String("to", "", "recipient address")
	cmd.Flags().String("subject", "", "email subject")
	cmd.Flags().String("body", "", "email body (use - for stdin)")
	cmd.Flags().String("message-id", "", "provider message ID")

	return cmd
}

func runClassify(cmd *cobra.Command, _ []string) error {
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

	result, err := eng.Classify(ctx, tenantID, email)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	return printJSON(result)
}

// mustFlag reads a string flag that is known to exist on the command.
func mustFlag(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			fmt.Printf("database migrated (path: %s)\n", viper.GetString("database.path"))
			return nil
		},
	}
}
