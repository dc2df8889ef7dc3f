package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/scribeflow/scribeflow/internal/client"
	"github.com/scribeflow/scribeflow/internal/models"
	"github.com/spf13/cobra"
)

var (
	cleanupTemplate string
	cleanupProvider string
	cleanupModel    string
	cleanupForce    bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup <job-id>",
	Short: "Run LLM cleanup on a transcript",
	Long: `Run LLM cleanup on a completed transcription. The command starts the
cleanup server-side and polls until it finishes. Stopping the wait
with Ctrl+C does not stop the cleanup.

Subcommands:
  show  Print the cleaned transcript

Examples:
  scribeflow cleanup ab12cd34
  scribeflow cleanup ab12cd34 --template detailed --provider anthropic
  scribeflow cleanup show ab12cd34`,
	Args: cobra.ExactArgs(1),
	RunE: runCleanup,
}

var cleanupShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Print the cleaned transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runCleanupShow,
}

func init() {
	cleanupCmd.Flags().StringVarP(&cleanupTemplate, "template", "t", "standard", "cleanup template id")
	cleanupCmd.Flags().StringVar(&cleanupProvider, "provider", "", "LLM provider (default from server settings)")
	cleanupCmd.Flags().StringVarP(&cleanupModel, "model", "m", "", "LLM model (default from server settings)")
	cleanupCmd.Flags().BoolVar(&cleanupForce, "force", false, "replace an existing cleaned transcript without asking")

	cleanupCmd.AddCommand(cleanupShowCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	// Re-running replaces the stored cleaned transcript, so an existing
	// one needs an explicit go-ahead first.
	if !cleanupForce {
		_, err := apiClient.Cleaned(context.Background(), jobID)
		switch {
		case err == nil:
			if !confirm(fmt.Sprintf("Job %s already has a cleaned transcript. Replace it?", jobID)) {
				fmt.Println("Keeping the existing cleaned transcript.")
				return nil
			}
		case !errors.Is(err, client.ErrNotFound):
			return fmt.Errorf("check existing cleanup: %w", err)
		}
	}

	runner := client.NewCleanupRunner(apiClient)
	op, err := runStageUI("Cleanup", func(ctx context.Context) (*models.Operation, error) {
		return runner.RunCleanup(ctx, jobID, cleanupTemplate, cleanupProvider, cleanupModel)
	})
	if err != nil {
		return err
	}
	if op == nil {
		return nil
	}

	fmt.Printf("Use 'scribeflow cleanup show %s' to read the result.\n", jobID)
	return nil
}

func runCleanupShow(cmd *cobra.Command, args []string) error {
	cleaned, err := apiClient.Cleaned(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("get cleaned transcript: %w", err)
	}

	fmt.Printf("# %s (cleaned with %s, %s/%s)\n\n",
		cleaned.Metadata.Filename, cleaned.Metadata.Template,
		cleaned.Metadata.Provider, cleaned.Metadata.Model)

	for _, seg := range cleaned.Segments {
		name := seg.Speaker
		if sp, ok := cleaned.Speakers[seg.Speaker]; ok && sp.Name != "" {
			name = sp.Name
		}
		fmt.Printf("[%s] %s: %s\n", formatTimestamp(seg.Start), name, seg.Text)
	}

	if verbose {
		fmt.Printf("\nSegments: %d (from %d), tokens %d in / %d out\n",
			cleaned.Stats.CleanedSegments, cleaned.Stats.OriginalSegments,
			cleaned.Stats.InputTokens, cleaned.Stats.OutputTokens)
	}

	return nil
}
