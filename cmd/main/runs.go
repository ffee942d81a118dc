package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"forge/internal/db"
	"forge/internal/db/repositories"
)

var runsCmd = &cobra.Command{
	Use:   "runs <run-id>",
	Short: "Inspect the checkpointed steps of a workflow run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRuns,
}

func runRuns(cmd *cobra.Command, args []string) error {
	runID := args[0]
	databaseURL, _ := cmd.Flags().GetString("database")

	database, err := db.New(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()
	repos := repositories.New(database)

	steps, err := repos.WorkflowSteps.ListForRun(cmd.Context(), runID)
	if err != nil {
		return fmt.Errorf("failed to load steps for run %s: %w", runID, err)
	}
	if len(steps) == 0 {
		return fmt.Errorf("no steps recorded for run %s", runID)
	}

	fmt.Printf("Run %s (%d steps)\n", runID, len(steps))
	for _, step := range steps {
		fmt.Printf("  [%s] %s", step.Status, step.Name)
		if step.Error != nil {
			fmt.Printf("  %s", *step.Error)
		}
		fmt.Println()
	}
	return nil
}
