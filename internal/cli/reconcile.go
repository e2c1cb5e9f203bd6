package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xraph/fundraise"
	"github.com/xraph/fundraise/id"
)

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "reconcile <project-id>...",
		Short: "Rewrite cached totals and shares from live subscriptions",
		Long: `Reconcile recomputes each project's committed funding from its
subscriptions, rewrites the cached total when it drifted, and recalculates
every investor's share. It never moves money.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectIDs := make([]id.ProjectID, 0, len(args))
			for _, arg := range args {
				projectID, err := id.ParseProjectID(arg)
				if err != nil {
					return fmt.Errorf("invalid project id %q: %w", arg, err)
				}
				projectIDs = append(projectIDs, projectID)
			}

			ctx := cmd.Context()
			engine, err := rootOpts.openEngine(ctx)
			if err != nil {
				return err
			}
			defer engine.Stop() //nolint:errcheck // best effort on exit

			if err := engine.Start(ctx); err != nil {
				return err
			}

			reports := make([]*fundraise.ReconcileReport, 0, len(projectIDs))
			for _, projectID := range projectIDs {
				report, err := engine.Reconcile(ctx, projectID)
				if err != nil {
					return fmt.Errorf("reconcile %s: %w", projectID, err)
				}
				reports = append(reports, report)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}
			for _, r := range reports {
				fmt.Fprintf(out, "%s cached=%s authoritative=%s drifted=%t over_goal=%t shares_changed=%d\n",
					r.ProjectID, r.CachedBefore, r.Authoritative, r.Drifted, r.OverGoal, r.SharesChanged)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print reports as JSON")

	return cmd
}
