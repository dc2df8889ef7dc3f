package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List transcription engines and LLM models",
	Long: `List the available transcription engines and the LLM model catalog
with per-token pricing where configured.

Examples:
  scribeflow models
  scribeflow models --verbose`,
	RunE: runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	engines, err := apiClient.Engines(ctx)
	if err != nil {
		return fmt.Errorf("list engines: %w", err)
	}

	fmt.Printf("Transcription engines (%d):\n\n", len(engines))
	for _, e := range engines {
		mark := ""
		if !e.Available {
			mark = " [needs API key]"
		}
		fmt.Printf("- %-12s %s%s\n", e.ID, e.Name, mark)
		if verbose {
			fmt.Printf("  Models: %v\n", e.Models)
			fmt.Printf("  Diarization: %t, initial prompt: %t\n",
				e.SupportsDiarization, e.SupportsInitialPrompt)
		}
	}

	catalog, err := apiClient.Models(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}

	providers := make([]string, 0, len(catalog))
	for p := range catalog {
		providers = append(providers, p)
	}
	sort.Strings(providers)

	fmt.Println("\nLLM models:")
	for _, p := range providers {
		fmt.Printf("\n%s:\n", p)
		for _, m := range catalog[p] {
			pricing := "pricing not configured"
			if m.InputPricePer1M != nil && m.OutputPrice1M != nil {
				pricing = fmt.Sprintf("$%.2f in / $%.2f out per 1M tokens",
					*m.InputPricePer1M, *m.OutputPrice1M)
			}
			fmt.Printf("- %-32s %s (%s)\n", m.ID, m.Name, pricing)
		}
	}

	return nil
}
