package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func tenantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "Inspect tenant configuration",
	}

	cmd.AddCommand(tenantsListCmd())
	cmd.AddCommand(tenantsShowCmd())
	cmd.AddCommand(tenantsPromptCmd())

	return cmd
}

func tenantsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured tenants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configs, err := initConfigStore()
			if err != nil {
				return err
			}

			ids, err := configs.TenantIDs(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func tenantsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show a tenant's configuration summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := requireTenant()
			if err != nil {
				return err
			}

			configs, err := initConfigStore()
			if err != nil {
				return err
			}

			cfg, err := configs.TenantConfig(cmd.Context(), tenantID)
			if err != nil {
				return err
			}

			fmt.Printf("tenant:   %s\n", cfg.TenantID)
			fmt.Printf("provider: %s\n", cfg.Provider)
			fmt.Printf("business: %s\n", cfg.Business.Name)
			fmt.Printf("managers: %d, suppliers: %d, roles: %d\n",
				len(cfg.Managers), len(cfg.Suppliers), len(cfg.Roles))

			if cfg.Taxonomy != nil {
				fmt.Println("taxonomy:")
				for _, node := range cfg.Taxonomy.Nodes {
					marker := ""
					if node.ProviderLabelID != "" {
						marker = " [bound]"
					}
					if node.Deleted {
						marker = " [deleted at provider]"
					}
					fmt.Printf("  %s%s\n", node.Path(), marker)
				}
			}
			return nil
		},
	}
}

func tenantsPromptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "Print the classifier system prompt the tenant's email will see",
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			preview, err := eng.PromptPreview(ctx, tenantID)
			if err != nil {
				return err
			}
			fmt.Println(preview)
			return nil
		},
	}
}
