package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloudgovern/policyaudit/internal/coverage"
)

func newCoverageCmd() *cobra.Command {
	var (
		tenantID    string
		catalogPath string
	)

	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Match the latest snapshot against the baseline catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			rt, err := newRuntime(nil, catalogPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			tenant := firstNonEmpty(tenantID, rt.cfg.Assessment.TenantID)
			snap, err := rt.repo.Latest(ctx, tenant)
			if err != nil {
				return fmt.Errorf("failed to load latest snapshot: %w", err)
			}
			if snap == nil {
				return fmt.Errorf("no snapshot stored for tenant %q", tenant)
			}

			result := rt.service.Coverage(snap.Assignments)

			if getOutputFormat() != "table" {
				return printOutput(result)
			}

			renderCoverage(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant ID")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "baseline catalog file (defaults to the built-in catalog)")

	return cmd
}

func renderCoverage(result coverage.Result) {
	t := NewTable("BASELINE ENTRY", "CATEGORY", "STATUS", "MATCHED WITH")
	for _, e := range result.Entries {
		matched := ""
		if len(e.MatchedWith) > 0 {
			matched = truncate(strings.Join(e.MatchedWith, ", "), 48)
		}
		t.AddRow(
			truncate(e.Name, 36),
			e.Category,
			string(e.Status),
			matched,
		)
	}
	t.Render()

	fmt.Println()
	fmt.Printf("Coverage: %d%% (%d matched, %d audit-only, %d missing of %d)  Enforced coverage: %d%%\n",
		result.CoveragePercent, result.Matched, result.AuditOnly, result.Missing,
		result.TotalEntries, result.EnforcedCoveragePercent)

	for _, c := range result.Categories {
		total := c.Matched + c.AuditOnly + c.Missing
		fmt.Printf("  %-16s %d matched, %d audit-only, %d missing of %d\n",
			c.Category, c.Matched, c.AuditOnly, c.Missing, total)
	}
}
