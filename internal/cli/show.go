package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/scribeflow/scribeflow/internal/models"
	"github.com/spf13/cobra"
)

var showTranscript bool

var showCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show job details",
	Long: `Show the status, settings and results of a job.

Examples:
  scribeflow show ab12cd34
  scribeflow show ab12cd34 --transcript`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVarP(&showTranscript, "transcript", "t", false, "print the plain-text transcript")
}

func runShow(cmd *cobra.Command, args []string) error {
	id := args[0]
	ctx := context.Background()

	job, err := apiClient.GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	fmt.Printf("Job: %s\n", models.MustRecordIDString(job.ID))
	fmt.Printf("  File:     %s\n", job.Filename)
	fmt.Printf("  Status:   %s", job.Status)
	if job.Status == models.JobStatusProcessing || job.Status == models.JobStatusDiarizing {
		fmt.Printf(" (%.0f%%)", job.Progress)
	}
	fmt.Println()
	fmt.Printf("  Engine:   %s/%s\n", job.Engine, job.Model)
	if job.Language != "" {
		fmt.Printf("  Language: %s\n", job.Language)
	}
	if job.Context != "" {
		fmt.Printf("  Context:  %s\n", job.Context)
	}
	fmt.Printf("  Uploaded: %s\n", job.CreatedAt.Format(time.RFC3339))

	if job.Error != nil {
		fmt.Printf("  Error:    %s\n", *job.Error)
	}

	if job.Status == models.JobStatusCompleted {
		fmt.Println("\nResults:")
		if job.DurationSeconds != nil {
			fmt.Printf("  Duration:   %s\n", formatDuration(*job.DurationSeconds))
		}
		if job.SpeakersCount != nil {
			fmt.Printf("  Speakers:   %d\n", *job.SpeakersCount)
		}
		if job.LanguageDetected != "" {
			fmt.Printf("  Language:   %s\n", job.LanguageDetected)
		}
		if job.ProcessingSeconds != nil {
			fmt.Printf("  Processing: %s\n", formatDuration(*job.ProcessingSeconds))
		}
		if len(job.SpeakerNames) > 0 {
			fmt.Println("  Speaker names:")
			for id, name := range job.SpeakerNames {
				fmt.Printf("    %s: %s\n", id, name)
			}
		}
	}

	if showTranscript {
		txt, err := apiClient.Download(ctx, "/api/transcribe/"+id+"/transcript.txt")
		if err != nil {
			return fmt.Errorf("download transcript: %w", err)
		}
		fmt.Printf("\n%s", txt)
	}

	return nil
}
