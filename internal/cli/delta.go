package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cloudgovern/policyaudit/internal/domain/snapshot"
)

func newDeltaCmd() *cobra.Command {
	var fromID, toID string

	cmd := &cobra.Command{
		Use:   "delta",
		Short: "Compare two stored snapshots",
		Long: `Compute the change report between two stored snapshots: new, removed
and changed assignments, effect distribution shifts, exemption churn, and an
overall trend verdict.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if fromID == "" || toID == "" {
				return fmt.Errorf("both --from and --to are required")
			}

			rt, err := newRuntime(nil, "")
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.service.DeltaBetween(ctx, fromID, toID)
			if err != nil {
				return fmt.Errorf("delta computation failed: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(result)
			}

			renderDelta(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&fromID, "from", "", "baseline snapshot ID")
	cmd.Flags().StringVar(&toID, "to", "", "comparison snapshot ID")

	return cmd
}

func renderDelta(d *snapshot.DeltaResult) {
	fmt.Printf("Trend: %s  Non-compliant: %+d  High risk: %+d  Enforced: %+d\n\n",
		formatTrend(string(d.Trend)), d.NonCompliantDelta, d.HighRiskDelta, d.EnforcedDelta)

	if !d.HasChanges() {
		fmt.Println("No changes between snapshots.")
		return
	}

	if len(d.NewAssignments) > 0 || len(d.RemovedAssignments) > 0 {
		t := NewTable("CHANGE", "ASSIGNMENT", "SCOPE", "EFFECT", "RISK")
		for i := range d.NewAssignments {
			r := &d.NewAssignments[i]
			t.AddRow("added", truncate(r.AssignmentName, 32), truncate(r.ScopePath, 40), r.Effect, formatImpact(string(r.RiskLevel)))
		}
		for i := range d.RemovedAssignments {
			r := &d.RemovedAssignments[i]
			t.AddRow("removed", truncate(r.AssignmentName, 32), truncate(r.ScopePath, 40), r.Effect, formatImpact(string(r.RiskLevel)))
		}
		t.Render()
		fmt.Println()
	}

	if len(d.ChangedAssignments) > 0 {
		t := NewTable("ASSIGNMENT", "FIELD", "BEFORE", "AFTER")
		for _, c := range d.ChangedAssignments {
			for _, f := range c.Changes {
				t.AddRow(truncate(c.AssignmentName, 32), f.Field, f.Previous, f.Current)
			}
		}
		t.Render()
		fmt.Println()
	}

	if len(d.EffectDeltas) > 0 {
		t := NewTable("EFFECT", "BEFORE", "AFTER", "DELTA")
		for _, e := range d.EffectDeltas {
			t.AddRow(e.Effect, strconv.Itoa(e.Previous), strconv.Itoa(e.Current), fmt.Sprintf("%+d", e.Delta))
		}
		t.Render()
	}

	if len(d.NewExemptions) > 0 || len(d.RemovedExemptions) > 0 {
		fmt.Printf("\nExemptions: %d added, %d removed\n", len(d.NewExemptions), len(d.RemovedExemptions))
	}
}
