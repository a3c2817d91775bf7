package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the overdue sweep once",
	Long: `Scan open loans past their due date, issue or refresh their overdue
fines, and mark newly overdue loans delinquent. Safe to re-run: a second
pass on the same day updates amounts without duplicating fines. Wire
this into cron (or any scheduler) for the daily run.`,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	svc, db, _, err := buildService()
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := svc.SweepOverdue(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, res.Summary())
	for _, e := range res.Errors {
		fmt.Fprintln(os.Stderr, "sweep error:", e)
	}
	if len(res.Errors) > 0 {
		return fmt.Errorf("%d loans failed", len(res.Errors))
	}
	return nil
}
