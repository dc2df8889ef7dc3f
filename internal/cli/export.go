package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scribeflow/scribeflow/internal/models"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <job-id> <path>",
	Short: "Export all artifacts of a job",
	Long: `Export the transcript, cleaned transcript, and insight documents
of a completed job into a directory.

Examples:
  scribeflow export ab12cd34 ./meeting-notes
  scribeflow export ab12cd34 ~/Documents/standup`,
	Args: cobra.ExactArgs(2),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	jobID, exportPath := args[0], args[1]
	ctx := context.Background()

	job, err := apiClient.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}
	if job.Status != models.JobStatusCompleted {
		return fmt.Errorf("job %s is %s, only completed jobs can be exported", jobID, job.Status)
	}

	if err := os.MkdirAll(exportPath, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	exported := 0
	write := func(name string, data []byte) error {
		path := filepath.Join(exportPath, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		exported++
		fmt.Printf("  %s\n", name)
		return nil
	}

	txt, err := apiClient.Download(ctx, "/api/transcribe/"+jobID+"/transcript.txt")
	if err != nil {
		return fmt.Errorf("download transcript: %w", err)
	}
	if err := write(models.DownloadName("transcript", job.Filename, "txt"), txt); err != nil {
		return err
	}

	// Derived artifacts are optional; skip what has not been generated.
	if cleaned, err := apiClient.Cleaned(ctx, jobID); err == nil {
		if err := write(models.DownloadName("transcript-cleaned", job.Filename, "txt"), renderCleanedText(cleaned)); err != nil {
			return err
		}
	}

	summaries, err := apiClient.ListInsights(ctx, jobID)
	if err != nil {
		return fmt.Errorf("list insights: %w", err)
	}
	for _, s := range summaries {
		md, err := apiClient.Download(ctx, "/api/insights/jobs/"+jobID+"/"+s.TemplateID+"/insights.md")
		if err != nil {
			return fmt.Errorf("download insights %s: %w", s.TemplateID, err)
		}
		if err := write(models.DownloadName("insights-"+s.TemplateID, job.Filename, "md"), md); err != nil {
			return err
		}

		mindmap, err := apiClient.Download(ctx, "/api/insights/jobs/"+jobID+"/"+s.TemplateID+"/mindmap.md")
		if err != nil {
			continue // no mindmap for this template
		}
		if err := write(models.DownloadName("mindmap-"+s.TemplateID, job.Filename, "md"), mindmap); err != nil {
			return err
		}
	}

	fmt.Printf("Exported %d files to %s.\n", exported, exportPath)
	return nil
}

// renderCleanedText flattens a cleaned transcript into the same plain-text
// shape the server writes for the original transcript.
func renderCleanedText(cleaned *models.CleanedTranscript) []byte {
	var out []byte
	for _, seg := range cleaned.Segments {
		name := seg.Speaker
		if sp, ok := cleaned.Speakers[seg.Speaker]; ok && sp.Name != "" {
			name = sp.Name
		}
		out = append(out, fmt.Sprintf("[%s] %s: %s\n", formatTimestamp(seg.Start), name, seg.Text)...)
	}
	return out
}
