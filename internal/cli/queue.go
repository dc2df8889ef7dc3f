package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/scribeflow/scribeflow/internal/client"
	"github.com/scribeflow/scribeflow/internal/models"
	"github.com/spf13/cobra"
)

var queueWatch bool

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the transcription queue",
	Long: `Show all jobs grouped into queue sections: draft, queued, active
and done. With --watch the view refreshes every few seconds until
interrupted.

Examples:
  scribeflow queue
  scribeflow queue --watch`,
	RunE: runQueue,
}

func init() {
	queueCmd.Flags().BoolVarP(&queueWatch, "watch", "w", false, "refresh continuously")
}

func runQueue(cmd *cobra.Command, args []string) error {
	view := client.NewQueueView(apiClient)

	if !queueWatch {
		snap, err := view.Refresh(context.Background())
		if err != nil {
			return fmt.Errorf("fetch queue: %w", err)
		}
		printQueue(snap)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	view.Run(ctx,
		func(snap client.QueueSnapshot) {
			fmt.Print("\x1b[2J\x1b[H")
			printQueue(snap)
			fmt.Println("(Ctrl+C to exit)")
		},
		func(err error) {
			fmt.Fprintf(os.Stderr, "poll error: %v\n", err)
		},
	)
	return nil
}

func printQueue(snap client.QueueSnapshot) {
	if len(snap.Jobs) == 0 {
		fmt.Println("Queue is empty.")
		return
	}

	for _, bucket := range client.BucketOrder {
		jobs := snap.Sections[bucket]
		if len(jobs) == 0 {
			continue
		}

		fmt.Printf("%s (%d)\n", bucketTitle(bucket), len(jobs))
		for _, job := range jobs {
			printQueueRow(job)
		}
		fmt.Println()
	}
}

func bucketTitle(b models.Bucket) string {
	switch b {
	case models.BucketDraft:
		return "Drafts"
	case models.BucketQueued:
		return "Queued"
	case models.BucketActive:
		return "Active"
	default:
		return "Done"
	}
}

func printQueueRow(job models.Job) {
	id := models.MustRecordIDString(job.ID)

	detail := ""
	switch job.Status {
	case models.JobStatusProcessing, models.JobStatusDiarizing:
		detail = fmt.Sprintf(" %3.0f%%", job.Progress)
	case models.JobStatusFailed:
		if job.Error != nil {
			detail = " " + *job.Error
		}
	case models.JobStatusCompleted:
		if job.DurationSeconds != nil {
			detail = " " + formatDuration(*job.DurationSeconds)
		}
	}

	fmt.Printf("  %-10s %-12s %s%s\n", id, job.Status, job.Filename, detail)
	if verbose {
		fmt.Printf("             %s/%s  uploaded %s\n",
			job.Engine, job.Model, job.CreatedAt.Format("2006-01-02 15:04"))
	}
}
