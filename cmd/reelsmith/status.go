package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/jonathan/reelsmith/internal/db"
	"github.com/spf13/cobra"
)

var (
	statusDBURL    string
	statusFilter   string
	statusPlatform string
	statusLimit    int
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Inspect archived runs",
	Long:  `Lists archived runs from the database, or shows the full attempt and decision history of a single run when a run ID is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatusCmd,
}

func init() {
	statusCmd.Flags().StringVar(&statusDBURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	statusCmd.Flags().StringVar(&statusFilter, "status", "", "Filter by terminal status (completed, completed_degraded, aborted, invalid_request)")
	statusCmd.Flags().StringVar(&statusPlatform, "platform", "", "Filter by target platform")
	statusCmd.Flags().IntVar(&statusLimit, "limit", 0, "Maximum number of runs to list (default 50)")
	rootCmd.AddCommand(statusCmd)
}

func runStatusCmd(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	databaseURL := statusDBURL
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return fmt.Errorf("database URL is required (set --db-url or DATABASE_URL)")
	}

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if len(args) == 1 {
		runID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run ID %q: %w", args[0], err)
		}
		return printRunDetail(ctx, database, runID)
	}

	runs, err := database.ListRuns(ctx, db.RunFilters{
		Status:   statusFilter,
		Platform: statusPlatform,
		Limit:    statusLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No archived runs found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTATUS\tPLATFORM\tMODE\tDURATION\tSPEND\tRELOOPS\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%ds\t$%.2f\t%d\t%s\n",
			r.ID, r.Status, r.Platform, r.ContentMode, r.DurationSeconds,
			r.SpendUSD, r.ReloopCount, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func printRunDetail(ctx context.Context, database *db.DB, runID uuid.UUID) error {
	record, err := database.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to fetch run: %w", err)
	}
	if record == nil {
		return fmt.Errorf("run %s not found", runID)
	}

	fmt.Printf("Run %s\n", record.ID)
	fmt.Printf("  Prompt:   %s\n", record.Prompt)
	fmt.Printf("  Target:   %s / %s / %ds\n", record.Platform, record.ContentMode, record.DurationSeconds)
	fmt.Printf("  Status:   %s", record.Status)
	if record.AbortReason != "" {
		fmt.Printf(" (%s)", record.AbortReason)
	}
	fmt.Println()
	fmt.Printf("  Spend:    $%.2f of $%.2f\n", record.SpendUSD, record.BudgetUSD)
	fmt.Printf("  Reloops:  %d\n", record.ReloopCount)

	attempts, err := database.GetAttempts(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to fetch attempts: %w", err)
	}
	if len(attempts) > 0 {
		fmt.Println("\nAttempts:")
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  PHASE\tIDX\tBACKEND\tOUTCOME\tCOST\tELAPSED")
		for _, a := range attempts {
			outcome := a.Outcome
			if a.FailureClass != "" {
				outcome = fmt.Sprintf("%s (%s)", a.Outcome, a.FailureClass)
			}
			fmt.Fprintf(w, "  %s\t%d\t%s\t%s\t$%.2f\t%dms\n",
				a.Phase, a.Index, a.CandidateID, outcome, a.CostUSD, a.ElapsedMS)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	decisions, err := database.GetDecisions(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to fetch decisions: %w", err)
	}
	for _, d := range decisions {
		fmt.Printf("\nDecision: %s", d.Strategy)
		if d.TargetPhase != "" {
			fmt.Printf(" -> %s", d.TargetPhase)
		}
		fmt.Printf("\n  %s (composite %.2f)\n", d.Justification, d.CompositeScore)
	}
	return nil
}
