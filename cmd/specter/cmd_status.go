package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [file]",
	Short: "Show tracked units and session history",
	Long: `Without arguments, reports how many source units the store tracks.
With a file argument, shows the unit's last analyzed summary and its
session history, most recent first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(".", false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if len(args) == 0 {
		n, err := a.store.CountUnits(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Tracking %d source units in %s\n", n, a.root)
		return nil
	}

	path := args[0]
	hash, summary, err := a.store.GetUnit(ctx, path)
	if err != nil {
		return err
	}
	if hash == "" {
		return fmt.Errorf("%s is not tracked, run specter init first", path)
	}
	fmt.Printf("%s\n  hash: %s\n  %s\n", path, hash[:12], summary)

	sessions, err := a.store.SessionsForUnit(ctx, path)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("  no sessions recorded")
		return nil
	}
	fmt.Println("  sessions:")
	for _, s := range sessions {
		fmt.Printf("    %s  %-18s attempts=%d infra=%d elapsed=%s\n",
			s.FinishedAt.Format(time.RFC3339), s.Verdict, s.Attempts, s.InfraRetries, s.Elapsed.Round(time.Millisecond))
	}
	return nil
}
