package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/scribeflow/scribeflow/internal/template"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage cleanup and insight templates",
	Long: `Manage the prompt templates used by cleanup and insight generation.

Subcommands:
  list    List all templates
  show    Show a template
  add     Add or update a cleanup template from a YAML file
  delete  Delete a custom cleanup template

Examples:
  scribeflow templates list
  scribeflow templates show standard
  scribeflow templates add ./my-template.yaml
  scribeflow templates delete my-template`,
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all templates",
	RunE:  runTemplatesList,
}

var templatesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesShow,
}

var templatesAddCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Add or update a cleanup template from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesAdd,
}

var templatesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a custom cleanup template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesDelete,
}

func init() {
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesShowCmd)
	templatesCmd.AddCommand(templatesAddCmd)
	templatesCmd.AddCommand(templatesDeleteCmd)
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cleanup, err := apiClient.CleanupTemplates(ctx)
	if err != nil {
		return fmt.Errorf("list cleanup templates: %w", err)
	}
	insight, err := apiClient.InsightTemplates(ctx)
	if err != nil {
		return fmt.Errorf("list insight templates: %w", err)
	}

	fmt.Printf("Cleanup templates (%d):\n\n", len(cleanup))
	for _, t := range cleanup {
		fmt.Printf("- %-24s %s%s\n", t.ID, t.Name, builtInMark(t.BuiltIn))
	}

	fmt.Printf("\nInsight templates (%d):\n\n", len(insight))
	for _, t := range insight {
		mindmapMark := ""
		if t.IncludeMindmap {
			mindmapMark = " +mindmap"
		}
		fmt.Printf("- %-24s %s (%d sections%s)%s\n", t.ID, t.Name, len(t.Sections), mindmapMark, builtInMark(t.BuiltIn))
	}

	return nil
}

func builtInMark(builtIn bool) string {
	if builtIn {
		return " [built-in]"
	}
	return ""
}

func runTemplatesShow(cmd *cobra.Command, args []string) error {
	id := args[0]
	ctx := context.Background()

	cleanup, err := apiClient.CleanupTemplates(ctx)
	if err != nil {
		return fmt.Errorf("list cleanup templates: %w", err)
	}
	for _, t := range cleanup {
		if t.ID == id {
			fmt.Printf("# %s\n", t.Name)
			if t.Description != "" {
				fmt.Printf("%s\n", t.Description)
			}
			fmt.Printf("\nTemperature: %.1f\n\n---\n\n%s\n", t.Temperature, t.SystemPrompt)
			return nil
		}
	}

	insight, err := apiClient.InsightTemplates(ctx)
	if err != nil {
		return fmt.Errorf("list insight templates: %w", err)
	}
	for _, t := range insight {
		if t.ID == id {
			fmt.Printf("# %s\n", t.Name)
			if t.Description != "" {
				fmt.Printf("%s\n", t.Description)
			}
			fmt.Printf("\nSections:\n")
			for _, sec := range t.Sections {
				fmt.Printf("- %s: %s\n", sec.ID, sec.Title)
			}
			if t.IncludeMindmap {
				fmt.Println("- mindmap")
			}
			return nil
		}
	}

	return fmt.Errorf("template not found: %s", id)
}

func runTemplatesAdd(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	var tpl template.CleanupTemplate
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	if tpl.ID == "" {
		return fmt.Errorf("template file is missing an id")
	}

	if err := apiClient.SaveCleanupTemplate(context.Background(), tpl); err != nil {
		return fmt.Errorf("save template: %w", err)
	}

	fmt.Printf("Saved template: %s\n", tpl.ID)
	return nil
}

func runTemplatesDelete(cmd *cobra.Command, args []string) error {
	id := args[0]

	if err := apiClient.DeleteCleanupTemplate(context.Background(), id); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}

	fmt.Printf("Deleted template: %s\n", id)
	return nil
}
