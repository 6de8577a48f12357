package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage stored assessment snapshots",
	}

	cmd.AddCommand(newSnapshotListCmd())
	cmd.AddCommand(newSnapshotShowCmd())
	cmd.AddCommand(newSnapshotPruneCmd())

	return cmd
}

func newSnapshotListCmd() *cobra.Command {
	var (
		tenantID string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			rt, err := newRuntime(nil, "")
			if err != nil {
				return err
			}
			defer rt.Close()

			tenant := firstNonEmpty(tenantID, rt.cfg.Assessment.TenantID)
			snaps, err := rt.repo.List(ctx, tenant, limit)
			if err != nil {
				return fmt.Errorf("failed to list snapshots: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(snaps)
			}

			t := NewTable("ID", "TIMESTAMP", "VERSION", "ASSIGNMENTS", "HIGH RISK", "NON-COMPLIANT")
			for _, s := range snaps {
				t.AddRow(
					s.ID,
					s.Timestamp.UTC().Format(time.RFC3339),
					s.VersionTag,
					strconv.Itoa(s.Summary.TotalAssignments),
					strconv.Itoa(s.Summary.HighRiskCount),
					strconv.Itoa(s.Summary.NonCompliantResources),
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant ID")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of snapshots to list")

	return cmd
}

func newSnapshotShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <snapshot-id>",
		Short: "Show one snapshot in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			rt, err := newRuntime(nil, "")
			if err != nil {
				return err
			}
			defer rt.Close()

			snap, err := rt.repo.GetByID(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load snapshot: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(snap)
			}

			fmt.Printf("Snapshot %s (%s) tenant=%s version=%s\n\n",
				snap.ID, snap.Timestamp.UTC().Format(time.RFC3339), snap.TenantID, snap.VersionTag)

			t := NewTable("ASSIGNMENT", "SCOPE", "EFFECT", "MODE", "SECURITY", "RISK")
			for i := range snap.Assignments {
				r := &snap.Assignments[i]
				t.AddRow(
					truncate(r.AssignmentName, 32),
					truncate(r.ScopePath, 40),
					r.Effect,
					string(r.EnforcementMode),
					formatImpact(string(r.SecurityImpact)),
					formatImpact(string(r.RiskLevel)),
				)
			}
			t.Render()
			return nil
		},
	}

	return cmd
}

func newSnapshotPruneCmd() *cobra.Command {
	var (
		tenantID  string
		olderThan int
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete snapshots older than a retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if olderThan < 1 {
				return fmt.Errorf("--older-than must be at least 1 day")
			}

			rt, err := newRuntime(nil, "")
			if err != nil {
				return err
			}
			defer rt.Close()

			tenant := firstNonEmpty(tenantID, rt.cfg.Assessment.TenantID)
			cutoff := time.Now().AddDate(0, 0, -olderThan)

			removed, err := rt.repo.Prune(ctx, tenant, cutoff)
			if err != nil {
				return fmt.Errorf("failed to prune snapshots: %w", err)
			}

			fmt.Printf("Removed %d snapshot(s) older than %s\n", removed, cutoff.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant ID")
	cmd.Flags().IntVar(&olderThan, "older-than", 90, "retention window in days")

	return cmd
}
