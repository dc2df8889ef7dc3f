package cli

import (
	"context"
	"fmt"

	"github.com/scribeflow/scribeflow/internal/client"
	"github.com/spf13/cobra"
)

var startFollow bool

var startCmd = &cobra.Command{
	Use:   "start <job-id>...",
	Short: "Submit draft jobs for transcription",
	Long: `Submit one or more draft jobs into the transcription queue.

Examples:
  scribeflow start ab12cd34
  scribeflow start ab12cd34 ef56ab78
  scribeflow start ab12cd34 --follow`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStart,
}

var startAllCmd = &cobra.Command{
	Use:   "start-all",
	Short: "Submit all draft jobs for transcription",
	RunE:  runStartAll,
}

func init() {
	startCmd.Flags().BoolVarP(&startFollow, "follow", "f", false, "watch progress of the started jobs")
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	result, err := apiClient.Start(ctx, args)
	if err != nil {
		return fmt.Errorf("start jobs: %w", err)
	}
	printStartResult(result)

	if startFollow && result.Started > 0 {
		for _, id := range args {
			job, err := apiClient.GetJob(ctx, id)
			if err != nil {
				return fmt.Errorf("get job %s: %w", id, err)
			}
			fmt.Printf("\n%s\n", job.Filename)
			if err := RunJobProgress(apiClient, job); err != nil {
				return err
			}
		}
	}

	if len(result.Errors) > 0 {
		return fmt.Errorf("%d jobs could not be started", len(result.Errors))
	}
	return nil
}

func runStartAll(cmd *cobra.Command, args []string) error {
	result, err := apiClient.StartAll(context.Background())
	if err != nil {
		return fmt.Errorf("start all drafts: %w", err)
	}

	if result.Started == 0 && len(result.Errors) == 0 {
		fmt.Println("No draft jobs to start.")
		return nil
	}
	printStartResult(result)

	if len(result.Errors) > 0 {
		return fmt.Errorf("%d jobs could not be started", len(result.Errors))
	}
	return nil
}

func printStartResult(result *client.StartResult) {
	fmt.Printf("Started %d jobs.\n", result.Started)
	for _, e := range result.Errors {
		fmt.Printf("  ✗ %s\n", e)
	}
}
