package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scribeflow/scribeflow/internal/client"
	"github.com/scribeflow/scribeflow/internal/mindmap"
	"github.com/scribeflow/scribeflow/internal/models"
	"github.com/spf13/cobra"
)

var (
	insightsTemplate string
	insightsSource   string
	insightsProvider string
	insightsModel    string
	insightsForce    bool
	insightsFormat   string
	insightsOut      string
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Generate and read meeting insights",
	Long: `Generate structured insights (summaries, action items, mindmaps)
from a completed transcription.

Subcommands:
  generate  Run insight extraction for a template
  list      List stored insight documents
  show      Print an insight document
  export    Write an insight document or mindmap to a file

Examples:
  scribeflow insights generate ab12cd34 --template meeting-summary
  scribeflow insights generate ab12cd34 --template meeting-summary --source cleaned
  scribeflow insights list ab12cd34
  scribeflow insights show ab12cd34 meeting-summary
  scribeflow insights export ab12cd34 meeting-summary --format svg --out ./mindmap.svg`,
}

var insightsGenerateCmd = &cobra.Command{
	Use:   "generate <job-id>",
	Short: "Run insight extraction for a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runInsightsGenerate,
}

var insightsListCmd = &cobra.Command{
	Use:   "list <job-id>",
	Short: "List stored insight documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runInsightsList,
}

var insightsShowCmd = &cobra.Command{
	Use:   "show <job-id> <template-id>",
	Short: "Print an insight document",
	Args:  cobra.ExactArgs(2),
	RunE:  runInsightsShow,
}

var insightsExportCmd = &cobra.Command{
	Use:   "export <job-id> <template-id>",
	Short: "Write an insight document or mindmap to a file",
	Args:  cobra.ExactArgs(2),
	RunE:  runInsightsExport,
}

func init() {
	insightsGenerateCmd.Flags().StringVarP(&insightsTemplate, "template", "t", "", "insight template id (required)")
	insightsGenerateCmd.Flags().StringVarP(&insightsSource, "source", "s", "original", "transcript source: original or cleaned")
	insightsGenerateCmd.Flags().StringVar(&insightsProvider, "provider", "", "LLM provider (default from server settings)")
	insightsGenerateCmd.Flags().StringVarP(&insightsModel, "model", "m", "", "LLM model (default from server settings)")
	insightsGenerateCmd.Flags().BoolVar(&insightsForce, "force", false, "replace an existing insight document without asking")
	insightsGenerateCmd.MarkFlagRequired("template")

	insightsExportCmd.Flags().StringVarP(&insightsFormat, "format", "f", "md", "export format: md, mindmap or svg")
	insightsExportCmd.Flags().StringVarP(&insightsOut, "out", "o", "", "output path (default derived from the recording name)")

	insightsCmd.AddCommand(insightsGenerateCmd)
	insightsCmd.AddCommand(insightsListCmd)
	insightsCmd.AddCommand(insightsShowCmd)
	insightsCmd.AddCommand(insightsExportCmd)
}

func runInsightsGenerate(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	if insightsSource != "original" && insightsSource != "cleaned" {
		return fmt.Errorf("invalid source %q (expected original or cleaned)", insightsSource)
	}

	sources, err := apiClient.InsightSources(context.Background(), jobID)
	if err != nil {
		return fmt.Errorf("check sources: %w", err)
	}
	if insightsSource == "cleaned" && !sources.Cleaned {
		return fmt.Errorf("no cleaned transcript yet, run 'scribeflow cleanup %s' first", jobID)
	}

	// Regenerating replaces the stored document for this template, so an
	// existing one needs an explicit go-ahead first.
	if !insightsForce {
		_, err := apiClient.GetInsights(context.Background(), jobID, insightsTemplate)
		switch {
		case err == nil:
			if !confirm(fmt.Sprintf("Job %s already has a %q insight document. Replace it?", jobID, insightsTemplate)) {
				fmt.Println("Keeping the existing insight document.")
				return nil
			}
		case !errors.Is(err, client.ErrNotFound):
			return fmt.Errorf("check existing insights: %w", err)
		}
	}

	runner := client.NewInsightsRunner(apiClient)
	op, err := runStageUI("Insights", func(ctx context.Context) (*models.Operation, error) {
		return runner.RunInsights(ctx, jobID, insightsTemplate, insightsSource, insightsProvider, insightsModel)
	})
	if err != nil {
		return err
	}
	if op == nil {
		return nil
	}

	fmt.Printf("Use 'scribeflow insights show %s %s' to read the result.\n", jobID, insightsTemplate)
	return nil
}

func runInsightsList(cmd *cobra.Command, args []string) error {
	summaries, err := apiClient.ListInsights(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("list insights: %w", err)
	}

	if len(summaries) == 0 {
		fmt.Println("No insight documents found.")
		return nil
	}

	fmt.Printf("Insights (%d):\n\n", len(summaries))
	for _, s := range summaries {
		fmt.Printf("- %-24s %s (%s)\n", s.TemplateID, s.TemplateName, s.CreatedAt)
	}

	return nil
}

func runInsightsShow(cmd *cobra.Command, args []string) error {
	ins, err := apiClient.GetInsights(context.Background(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("get insights: %w", err)
	}

	fmt.Printf("# %s\n", ins.Metadata.TemplateName)
	if ins.Description != "" {
		fmt.Printf("%s\n", ins.Description)
	}
	for _, sec := range ins.Sections {
		fmt.Printf("\n## %s\n\n%s\n", sec.Title, sec.Content)
	}
	if ins.Mindmap != nil {
		fmt.Printf("\n## Mindmap\n\n%s\n", ins.Mindmap.Content)
	}

	if verbose {
		fmt.Printf("\nGenerated from %s source by %s/%s, tokens %d in / %d out",
			ins.Metadata.Source, ins.Metadata.Provider, ins.Metadata.Model,
			ins.Stats.InputTokens, ins.Stats.OutputTokens)
		if ins.Stats.CostUSD != nil {
			fmt.Printf(", $%.4f", *ins.Stats.CostUSD)
		}
		fmt.Println()
	}

	return nil
}

func runInsightsExport(cmd *cobra.Command, args []string) error {
	jobID, templateID := args[0], args[1]
	ctx := context.Background()

	job, err := apiClient.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	var data []byte
	var defaultName string

	switch insightsFormat {
	case "md":
		data, err = apiClient.Download(ctx, "/api/insights/jobs/"+jobID+"/"+templateID+"/insights.md")
		if err != nil {
			return fmt.Errorf("download insights: %w", err)
		}
		defaultName = models.DownloadName("insights", job.Filename, "md")

	case "mindmap":
		data, err = apiClient.Download(ctx, "/api/insights/jobs/"+jobID+"/"+templateID+"/mindmap.md")
		if err != nil {
			return fmt.Errorf("download mindmap: %w", err)
		}
		defaultName = models.DownloadName("mindmap", job.Filename, "md")

	case "svg":
		ins, err := apiClient.GetInsights(ctx, jobID, templateID)
		if err != nil {
			return fmt.Errorf("get insights: %w", err)
		}
		if ins.Mindmap == nil || ins.Mindmap.Content == "" {
			return fmt.Errorf("insight document has no mindmap")
		}
		data = []byte(mindmap.SVG(mindmap.Parse(ins.Mindmap.Content)))
		defaultName = models.DownloadName("mindmap", job.Filename, "svg")

	default:
		return fmt.Errorf("invalid format %q (expected md, mindmap or svg)", insightsFormat)
	}

	out := insightsOut
	if out == "" {
		out = defaultName
	}

	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	fmt.Printf("Wrote %s.\n", filepath.Clean(out))
	return nil
}
