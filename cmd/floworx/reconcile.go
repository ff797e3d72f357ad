package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Converge provider labels to the tenant taxonomy",
		Long: `Compare the tenant's configured taxonomy against the labels or folders
actually present at the mail provider and print the operations needed to
converge them. Nothing is changed unless --apply is given.

Reconciliation never deletes: labels the taxonomy doesn't know about are
reported as orphans and can be removed with --delete-orphans.

Examples:
  floworx reconcile -t hailey              # plan only
  floworx reconcile -t hailey --apply      # create/move/bind labels
  floworx reconcile -t hailey --apply --delete-orphans`,
		RunE: runReconcile,
	}

	cmd.Flags().Bool("apply", false, "apply the plan instead of only printing it")
	cmd.Flags().Bool("delete-orphans", false, "delete provider labels not present in the taxonomy (requires --apply)")

	return cmd
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	tenantID, err := requireTenant()
	if err != nil {
		return err
	}

	apply, _ := cmd.Flags().GetBool("apply")
	deleteOrphans, _ := cmd.Flags().GetBool("delete-orphans")
	if deleteOrphans && !apply {
		return fmt.Errorf("--delete-orphans requires --apply")
	}

	eng, cleanup, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := eng.Reconcile(ctx, tenantID, apply)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	if report.Plan.Empty() {
		fmt.Println("provider labels already match the taxonomy")
	} else {
		for _, op := range report.Plan.Ops {
			fmt.Printf("  %-6s %s\n", op.Kind, op.Path)
		}
	}

	if report.Result != nil {
		fmt.Printf("applied %d operation(s), %d failed\n",
			len(report.Result.Applied), len(report.Result.Failed))
		for _, f := range report.Result.Failed {
			fmt.Printf("  FAILED %-6s %s: %v\n", f.Op.Kind, f.Op.Path, f.Err)
		}
	}

	if len(report.Orphans) > 0 {
		fmt.Printf("%d orphaned label(s) not in the taxonomy:\n", len(report.Orphans))
		for _, l := range report.Orphans {
			fmt.Printf("  %s (%s)\n", l.Name, l.ID)
		}

		if deleteOrphans {
			result, delErr := eng.DeleteOrphans(ctx, tenantID, report.Orphans)
			if delErr != nil {
				return fmt.Errorf("orphan deletion failed: %w", delErr)
			}
			fmt.Printf("deleted %d orphan(s), %d failed\n",
				len(result.Applied), len(result.Failed))
		}
	}

	return nil
}
