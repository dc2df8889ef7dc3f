package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <job-id>...",
	Short: "Delete jobs and their artifacts",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDelete,
}

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear <failed|all>",
	Short: "Bulk-delete failed or all jobs",
	Long: `Bulk-delete jobs. The filter is required: "failed" removes only
failed jobs, "all" wipes the whole queue. The command asks before
deleting; pass --yes to skip the prompt.

Examples:
  scribeflow clear failed
  scribeflow clear all --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "delete without asking")
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	failed := 0
	for _, id := range args {
		if err := apiClient.DeleteJob(ctx, id); err != nil {
			failed++
			fmt.Printf("✗ %s: %v\n", id, err)
			continue
		}
		fmt.Printf("Deleted %s.\n", id)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d deletions failed", failed, len(args))
	}
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	filter := args[0]
	if filter != "failed" && filter != "all" {
		return fmt.Errorf("invalid filter %q (expected failed or all)", filter)
	}

	if !clearYes {
		prompt := "Delete all failed jobs and their artifacts?"
		if filter == "all" {
			prompt = "Delete ALL jobs and their artifacts?"
		}
		if !confirm(prompt) {
			fmt.Println("Nothing deleted.")
			return nil
		}
	}

	deleted, err := apiClient.ClearJobs(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("clear jobs: %w", err)
	}

	fmt.Printf("Deleted %d jobs.\n", deleted)
	return nil
}
