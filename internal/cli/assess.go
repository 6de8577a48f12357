package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cloudgovern/policyaudit/internal/normalizer"
	"github.com/cloudgovern/policyaudit/internal/providers"
	"github.com/cloudgovern/policyaudit/internal/services"
)

func newAssessCmd() *cobra.Command {
	var (
		inputPath   string
		live        bool
		tenantID    string
		scopeFilter string
		versionTag  string
		catalogPath string
		persist     bool
		compare     bool
		summarize   bool
	)

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Run a policy assessment",
		Long: `Run a full assessment over policy assignments: normalize, classify,
match baseline coverage, and optionally persist the snapshot and diff it
against the previous one. Records come from an input file (--input) or are
fetched live from the governance API (--live).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if inputPath == "" && !live {
				return fmt.Errorf("either --input or --live is required")
			}

			var (
				resolver normalizer.DefinitionResolver
				input    services.AssessmentInput
			)

			if live {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				client, err := providers.NewAzureClient(cfg.Azure, newLogger(cfg))
				if err != nil {
					return fmt.Errorf("failed to create governance API client: %w", err)
				}
				assignments, err := client.ListAssignments(ctx)
				if err != nil {
					return fmt.Errorf("failed to list assignments: %w", err)
				}
				exemptions, err := client.ListExemptions(ctx)
				if err != nil {
					return fmt.Errorf("failed to list exemptions: %w", err)
				}
				input.Assignments = assignments
				input.Exemptions = exemptions
				resolver = client.Resolver(ctx)
			} else {
				doc, err := loadInput(inputPath)
				if err != nil {
					return err
				}
				input = doc.toServiceInput()
				resolver = doc.resolver()
			}

			rt, err := newRuntime(resolver, catalogPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			input.TenantID = firstNonEmpty(tenantID, rt.cfg.Assessment.TenantID)
			input.ScopeFilter = firstNonEmpty(scopeFilter, rt.cfg.Assessment.ScopeFilter)
			input.VersionTag = firstNonEmpty(versionTag, rt.cfg.Assessment.VersionTag)
			input.Persist = persist
			input.CompareLatest = compare

			result, err := rt.service.Run(ctx, input)
			if err != nil {
				return fmt.Errorf("assessment failed: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(result)
			}

			renderAssessment(result)

			if summarize {
				advisor := providers.NewAdvisor(rt.cfg.Advisor.OpenAIAPIKey)
				fmt.Println()
				fmt.Println(advisor.Summarize(ctx, result, "No advisor summary available."))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "assessment input file (json or yaml)")
	cmd.Flags().BoolVar(&live, "live", false, "fetch records live from the governance API")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant ID for the snapshot")
	cmd.Flags().StringVar(&scopeFilter, "scope", "", "restrict the run to scope paths containing this substring")
	cmd.Flags().StringVar(&versionTag, "version-tag", "", "version tag recorded on the snapshot")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "baseline catalog file (defaults to the built-in catalog)")
	cmd.Flags().BoolVar(&persist, "persist", false, "store the resulting snapshot")
	cmd.Flags().BoolVar(&compare, "compare", false, "diff against the tenant's latest stored snapshot")
	cmd.Flags().BoolVar(&summarize, "summarize", false, "append an advisor summary of the run")

	return cmd
}

func renderAssessment(result *services.AssessmentResult) {
	snap := result.Snapshot

	t := NewTable("ASSIGNMENT", "EFFECT", "MODE", "SECURITY", "COST", "RISK", "NON-COMPLIANT", "RECOMMENDATION")
	for i := range snap.Assignments {
		r := &snap.Assignments[i]
		t.AddRow(
			truncate(r.AssignmentName, 32),
			r.Effect,
			string(r.EnforcementMode),
			formatImpact(string(r.SecurityImpact)),
			formatImpact(string(r.CostImpact)),
			formatImpact(string(r.RiskLevel)),
			strconv.Itoa(r.NonCompliantResourceCount),
			truncate(r.Recommendation, 48),
		)
	}
	t.Render()

	s := snap.Summary
	fmt.Println()
	fmt.Printf("Assignments: %d (%d enforced, %d not enforced)  High risk: %d  Non-compliant resources: %d  Dropped: %d\n",
		s.TotalAssignments, s.EnforcedCount, s.NotEnforcedCount, s.HighRiskCount, s.NonCompliantResources, result.Dropped)
	c := result.Coverage
	fmt.Printf("Baseline coverage: %d%% (%d matched, %d audit-only, %d missing of %d)  Enforced coverage: %d%%\n",
		c.CoveragePercent, c.Matched, c.AuditOnly, c.Missing, c.TotalEntries, c.EnforcedCoveragePercent)

	if result.Delta != nil {
		fmt.Printf("Trend vs previous snapshot: %s\n", formatTrend(string(result.Delta.Trend)))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
