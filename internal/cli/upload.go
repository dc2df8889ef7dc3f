package cli

import (
	"context"
	"fmt"

	"github.com/scribeflow/scribeflow/internal/client"
	"github.com/scribeflow/scribeflow/internal/models"
	"github.com/spf13/cobra"
)

var (
	uploadEngine      string
	uploadModel       string
	uploadLanguage    string
	uploadMinSpeakers int
	uploadMaxSpeakers int
	uploadContext     string
	uploadQueue       bool
	uploadFollow      bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload audio files for transcription",
	Long: `Upload one or more audio files. Files are uploaded sequentially and
land as drafts; use --queue to submit them for transcription right away.

Supported formats: mp3, m4a, wav, ogg, flac, webm.

Examples:
  scribeflow upload meeting.mp3
  scribeflow upload standup.m4a retro.m4a --queue
  scribeflow upload interview.wav --engine deepgram --model nova-3 --queue --follow
  scribeflow upload allhands.mp3 --min-speakers 3 --max-speakers 8 --context "Q3 planning"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadEngine, "engine", "e", "", "transcription engine (default from server settings)")
	uploadCmd.Flags().StringVarP(&uploadModel, "model", "m", "", "engine model (default from server settings)")
	uploadCmd.Flags().StringVarP(&uploadLanguage, "language", "l", "", "language hint (empty = auto-detect)")
	uploadCmd.Flags().IntVar(&uploadMinSpeakers, "min-speakers", 0, "minimum expected speakers")
	uploadCmd.Flags().IntVar(&uploadMaxSpeakers, "max-speakers", 0, "maximum expected speakers")
	uploadCmd.Flags().StringVar(&uploadContext, "context", "", "free-text context passed to the engine")
	uploadCmd.Flags().BoolVarP(&uploadQueue, "queue", "q", false, "queue for transcription immediately instead of leaving a draft")
	uploadCmd.Flags().BoolVarP(&uploadFollow, "follow", "f", false, "watch transcription progress after queueing (implies --queue)")
}

func runUpload(cmd *cobra.Command, args []string) error {
	if uploadFollow {
		uploadQueue = true
	}

	opts := client.UploadOptions{
		Engine:   uploadEngine,
		Model:    uploadModel,
		Language: uploadLanguage,
		Context:  uploadContext,
		Queued:   uploadQueue,
	}
	if uploadMinSpeakers > 0 {
		opts.MinSpeakers = &uploadMinSpeakers
	}
	if uploadMaxSpeakers > 0 {
		opts.MaxSpeakers = &uploadMaxSpeakers
	}

	ctx := context.Background()
	uploader := client.NewUploader(apiClient, opts)
	outcomes := uploader.Run(ctx, args)

	failed := 0
	var queued []*models.Job
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Printf("✗ %s: %v\n", o.Path, o.Err)
			continue
		}
		id := models.MustRecordIDString(o.Job.ID)
		fmt.Printf("✓ %s (%s, %s)\n", o.Path, id, o.Job.Status)
		if verbose {
			fmt.Printf("  Engine: %s/%s\n", o.Job.Engine, o.Job.Model)
		}
		if o.Job.Status == models.JobStatusQueued {
			queued = append(queued, o.Job)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(outcomes))
	}

	if uploadFollow {
		for _, job := range queued {
			fmt.Printf("\n%s\n", job.Filename)
			if err := RunJobProgress(apiClient, job); err != nil {
				return err
			}
		}
	}

	return nil
}
